package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const DefaultPingTimeout = 5 * time.Second

// Options selects and tunes the database connection
type Options struct {
	DSN          string
	MaxOpenConns int
	AutoMigrate  bool
	Debug        bool
	PingTimeout  time.Duration
	Logger       persistence.Logger
}

var _ persistence.Config = Options{}

func (o Options) GetDebug() bool {
	return o.Debug
}

func (o Options) GetDriver() string {
	return Driver(o.DSN)
}

func (o Options) GetServer() string {
	return o.DSN
}

func (o Options) GetPingTimeout() time.Duration {
	if o.PingTimeout <= 0 {
		return DefaultPingTimeout
	}
	return o.PingTimeout
}

func (o Options) GetOtelIdentifier() string {
	return ""
}

func (o Options) GetMigrationsEnabled() bool {
	return o.AutoMigrate
}

func (o Options) GetSeedsEnabled() bool {
	return false
}

// Driver infers the driver from the DSN scheme
func Driver(dsn string) string {
	d := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(d, "postgres://") || strings.HasPrefix(d, "postgresql://") {
		return DriverPostgres
	}
	return DriverSQLite
}

// Open connects a persistence client for opts.DSN. postgres:// DSNs use
// pgx, everything else is handed to sqlite.
func Open(opts Options) (*persistence.Client, error) {
	if strings.TrimSpace(opts.DSN) == "" {
		return nil, goerrors.New("database dsn is required", goerrors.CategoryValidation).
			WithTextCode("DSN_REQUIRED")
	}

	var (
		sqldb   *sql.DB
		dialect schema.Dialect
		err     error
	)

	switch Driver(opts.DSN) {
	case DriverPostgres:
		sqldb, err = sql.Open("pgx", opts.DSN)
		dialect = pgdialect.New()
	default:
		sqldb, err = openSQLite(opts.DSN)
		dialect = sqlitedialect.New()
	}

	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, fmt.Sprintf("open %s", opts.GetDriver()))
	}

	if opts.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(opts.MaxOpenConns)
	}

	registerModels()

	var clientOpts []persistence.ClientOption
	if opts.Debug {
		clientOpts = append(clientOpts, persistence.WithBundebug())
	}

	client, err := persistence.New(opts, sqldb, dialect, clientOpts...)
	if err != nil {
		_ = sqldb.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, fmt.Sprintf("connect %s", opts.GetDriver()))
	}

	if opts.Logger != nil {
		client.SetLogger(opts.Logger)
	}

	if Driver(opts.DSN) == DriverSQLite {
		if _, err := client.DB().Exec("PRAGMA foreign_keys = ON;"); err != nil {
			_ = client.Close()
			return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "configure sqlite")
		}
	}

	return client, nil
}

func openSQLite(dsn string) (*sql.DB, error) {
	dsn = strings.TrimPrefix(dsn, "sqlite://")
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	// an in memory database only lives as long as its connection
	if strings.Contains(dsn, ":memory:") {
		sqldb.SetMaxOpenConns(1)
	}

	return sqldb, nil
}
