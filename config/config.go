package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"

	invite "github.com/goliatone/go-auth-invite"
)

// Config is the process configuration, read from the environment
type Config struct {
	Debug bool `env:"INVITE_DEBUG" envDefault:"false"`

	PublicURL       string        `env:"INVITE_PUBLIC_URL" envDefault:"http://localhost:1337"`
	AdminURL        string        `env:"INVITE_ADMIN_URL"`
	CredentialBytes int           `env:"INVITE_CREDENTIAL_BYTES" envDefault:"32"`
	Validity        time.Duration `env:"INVITE_VALIDITY" envDefault:"24h"`

	Database Database
	HTTP     HTTP
	Session  Session
	Admin    Admin
	SMTP     SMTP
	Log      Log
}

type Database struct {
	DSN          string `env:"INVITE_DB_DSN" envDefault:"file::memory:?cache=shared"`
	MaxOpenConns int    `env:"INVITE_DB_MAX_OPEN_CONNS" envDefault:"0"`
	AutoMigrate  bool   `env:"INVITE_DB_AUTO_MIGRATE" envDefault:"true"`
}

type HTTP struct {
	Addr        string        `env:"INVITE_HTTP_ADDR" envDefault:":1337"`
	ReadTimeout time.Duration `env:"INVITE_HTTP_READ_TIMEOUT" envDefault:"5s"`
	AppName     string        `env:"INVITE_HTTP_APP_NAME" envDefault:"Invite"`
}

type Session struct {
	SigningKey string        `env:"INVITE_SESSION_SIGNING_KEY"`
	TTL        time.Duration `env:"INVITE_SESSION_TTL" envDefault:"24h"`
	Issuer     string        `env:"INVITE_SESSION_ISSUER" envDefault:"go-auth-invite"`
	Audience   []string      `env:"INVITE_SESSION_AUDIENCE" envSeparator:","`
}

// Admin routes require APIKey unless Open is set
type Admin struct {
	APIKey        string `env:"INVITE_ADMIN_API_KEY"`
	Open          bool   `env:"INVITE_ADMIN_OPEN" envDefault:"false"`
	PreferredRole string `env:"INVITE_ADMIN_PREFERRED_ROLE" envDefault:"strapi-editor"`
	FallbackRole  string `env:"INVITE_ADMIN_FALLBACK_ROLE" envDefault:"strapi-author"`
	Mirror        bool   `env:"INVITE_ADMIN_MIRROR" envDefault:"true"`
}

// SMTP settings. An empty Host disables mail delivery.
type SMTP struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"`
}

type Log struct {
	Level  string `env:"INVITE_LOG_LEVEL" envDefault:"info"`
	Pretty bool   `env:"INVITE_LOG_PRETTY" envDefault:"false"`
}

var _ invite.Config = Config{}

// Load parses the environment and validates the result
func Load() (Config, error) {
	return LoadWith(env.Options{})
}

// LoadWith parses using opts, tests use it to inject an environment map
func LoadWith(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, goerrors.Wrap(err, goerrors.CategoryValidation, "parse environment")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.PublicURL, validation.Required, is.RequestURL),
		validation.Field(&c.AdminURL, is.RequestURL),
		validation.Field(&c.CredentialBytes, validation.Min(invite.MinCredentialBytes)),
		validation.Field(&c.Validity, validation.Min(time.Minute)),
	)
	if err == nil {
		err = validation.ValidateStruct(&c.Session,
			validation.Field(&c.Session.SigningKey, validation.Required, validation.Length(16, 0)),
			validation.Field(&c.Session.TTL, validation.Min(time.Minute)),
		)
	}
	if err == nil && !c.Admin.Open {
		err = validation.ValidateStruct(&c.Admin,
			validation.Field(&c.Admin.APIKey, validation.Required, validation.Length(16, 0)),
		)
	}
	if err == nil {
		err = validation.ValidateStruct(&c.Database,
			validation.Field(&c.Database.DSN, validation.Required),
		)
	}
	if err == nil && c.SMTP.Host != "" {
		err = validation.ValidateStruct(&c.SMTP,
			validation.Field(&c.SMTP.Port, validation.Required),
			validation.Field(&c.SMTP.From, validation.Required, is.Email),
		)
	}

	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid configuration")
	}
	return nil
}

func (c Config) GetPublicURL() string {
	return c.PublicURL
}

func (c Config) GetAdminURL() string {
	if c.AdminURL == "" {
		return c.PublicURL
	}
	return c.AdminURL
}

func (c Config) GetCredentialBytes() int {
	return c.CredentialBytes
}

func (c Config) GetValidity() time.Duration {
	return c.Validity
}

func (c Config) GetAdminPreferredRole() string {
	return c.Admin.PreferredRole
}

func (c Config) GetAdminFallbackRole() string {
	return c.Admin.FallbackRole
}

func (c Config) GetSigningKey() string {
	return c.Session.SigningKey
}

func (c Config) GetSessionTTL() time.Duration {
	return c.Session.TTL
}

func (c Config) GetSessionIssuer() string {
	return c.Session.Issuer
}

func (c Config) GetSessionAudience() []string {
	return c.Session.Audience
}

func (c Config) MailEnabled() bool {
	return c.SMTP.Host != ""
}
