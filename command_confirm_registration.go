package invite

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type ConfirmRegistrationMessage struct {
	Token    string `json:"confirmationToken" example:"9f2c...e1" doc:"Confirmation credential from the registration link"`
	Email    string `json:"email" example:"alice@example.com" doc:"Email the invitation was sent to"`
	Password string `json:"password" example:"some_secret_word" doc:"Password"`
	Username string `json:"username,omitempty" example:"alice" doc:"Optional username"`
}

func (m ConfirmRegistrationMessage) Type() string {
	return "registration.confirm"
}

func (m ConfirmRegistrationMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Token, validation.Required),
		validation.Field(&m.Email, validation.Required),
		validation.Field(&m.Password, validation.Required),
	)
}

// ConfirmationResult is the session token plus the safe account projection
type ConfirmationResult struct {
	SessionToken string        `json:"sessionToken"`
	User         AccountRecord `json:"user"`
}

// CredentialLookup is the read only view used to pre-fill the registration form
type CredentialLookup struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

// ConfirmationService exchanges a pending credential and a password for
// an active account and a session token.
type ConfirmationService struct {
	repo     RepositoryManager
	sessions SessionIssuer
	hasher   PasswordHasher
	activity ActivitySink
	logger   Logger
	now      Clock
	validity time.Duration
}

// NewConfirmationService creates a service with sane defaults.
func NewConfirmationService(repo RepositoryManager, sessions SessionIssuer) *ConfirmationService {
	return &ConfirmationService{
		repo:     repo,
		sessions: sessions,
		hasher:   NewPasswordHasher(),
		activity: noopActivitySink{},
		logger:   defLogger{},
		validity: DefaultValidity,
	}
}

// WithConfig applies the validity window
func (s *ConfirmationService) WithConfig(cfg Config) *ConfirmationService {
	if cfg != nil && cfg.GetValidity() > 0 {
		s.validity = cfg.GetValidity()
	}
	return s
}

func (s *ConfirmationService) WithPasswordHasher(h PasswordHasher) *ConfirmationService {
	if h != nil {
		s.hasher = h
	}
	return s
}

// WithActivitySink sets the sink used to emit confirmation events.
func (s *ConfirmationService) WithActivitySink(sink ActivitySink) *ConfirmationService {
	s.activity = normalizeActivitySink(sink)
	return s
}

// WithLogger overrides the logger used by the service.
func (s *ConfirmationService) WithLogger(logger Logger) *ConfirmationService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *ConfirmationService) WithClock(c Clock) *ConfirmationService {
	s.now = c
	return s
}

// Confirm activates the account holding token, provided email matches and
// the credential has not expired or been consumed.
func (s *ConfirmationService) Confirm(ctx context.Context, msg ConfirmRegistrationMessage) (*ConfirmationResult, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during registration confirmation",
		)
	default:
		return s.execute(ctx, msg)
	}
}

func (s *ConfirmationService) execute(ctx context.Context, msg ConfirmRegistrationMessage) (*ConfirmationResult, error) {
	msg.Token = strings.TrimSpace(msg.Token)
	msg.Email = strings.TrimSpace(msg.Email)
	msg.Username = strings.TrimSpace(msg.Username)

	if err := msg.Validate(); err != nil {
		return nil, malformedRequest(err)
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	account, err := s.repo.Accounts().FindPending(ctx, msg.Token, msg.Email)
	if err != nil {
		if IsRecordNotFound(err) {
			return nil, ErrInvalidOrExpiredCredential
		}
		s.logger.Error("confirm registration load account", "error", err)
		return nil, ErrRepositoryFailure
	}

	if err := ValidateTransition(account, StateActive); err != nil {
		return nil, ErrInvalidOrExpiredCredential
	}

	if account.CredentialIssuedAt == nil {
		s.logger.Warn("pending credential without issue date", "account_id", account.ID.String())
		return nil, ErrInvalidOrExpiredCredential
	}

	now := s.now.now()
	if CredentialExpired(*account.CredentialIssuedAt, s.validity, now) {
		return nil, ErrInvalidOrExpiredCredential
	}

	passwordHash, err := s.hasher.HashPassword(msg.Password)
	if err != nil {
		return nil, malformedRequest(err)
	}

	username := account.Username
	if msg.Username != "" {
		username = msg.Username
	}

	// the read above is not locked, the conditional write decides the winner
	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return s.repo.Accounts().ActivateTx(ctx, tx, Activation{
			AccountID:    account.ID,
			Credential:   msg.Token,
			PasswordHash: passwordHash,
			Username:     username,
			ActivatedAt:  now,
		})
	})

	if err != nil {
		if errors.Is(err, ErrActivationConflict) {
			s.logger.Info("confirm registration lost activation race", "account_id", account.ID.String())
			return nil, ErrActivationConflict
		}
		s.logger.Error("confirm registration activate", "account_id", account.ID.String(), "error", err)
		return nil, ErrRepositoryFailure
	}

	account.Username = username
	account.PasswordHash = passwordHash
	account.Confirmed = true
	account.ConfirmationToken = nil
	account.CredentialIssuedAt = nil

	token, err := s.sessions.Issue(account)
	if err != nil {
		// the account is active at this point, the client can log in normally
		s.logger.Error("confirm registration issue session", "account_id", account.ID.String(), "error", err)
		return nil, ErrRepositoryFailure
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEvent{
		EventType: ActivityEventRegistrationConfirmed,
		AccountID: account.ID.String(),
		Email:     account.Email,
		Account:   account,
	})

	return &ConfirmationResult{
		SessionToken: token,
		User:         NewAccountRecord(account),
	}, nil
}

// LookupCredential returns the email and username bound to a live credential
func (s *ConfirmationService) LookupCredential(ctx context.Context, token string) (*CredentialLookup, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, malformedRequest(validation.Errors{
			"token": errors.New("cannot be blank"),
		})
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	account, err := s.repo.Accounts().FindByCredential(ctx, token)
	if err != nil {
		if IsRecordNotFound(err) {
			return nil, ErrInvalidOrExpiredCredential
		}
		s.logger.Error("lookup credential", "error", err)
		return nil, ErrRepositoryFailure
	}

	if account.CredentialIssuedAt == nil ||
		CredentialExpired(*account.CredentialIssuedAt, s.validity, s.now.now()) {
		return nil, ErrInvalidOrExpiredCredential
	}

	return &CredentialLookup{
		Email:    account.Email,
		Username: account.Username,
	}, nil
}
