package invite

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type CreateAccountMessage struct {
	Email    string `json:"email" example:"alice@example.com" doc:"Account email"`
	Username string `json:"username,omitempty" example:"alice" doc:"Optional username"`
	Invite   bool   `json:"invite,omitempty" doc:"Issue an invitation right away"`
}

func (m CreateAccountMessage) Type() string {
	return "account.create"
}

func (m CreateAccountMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, validation.Required, is.Email),
		validation.Field(&m.Username, validation.Length(0, 128)),
	)
}

// AccountResult is the created account plus the invitation issued with it
type AccountResult struct {
	Account    AccountRecord     `json:"account"`
	Invitation *InvitationResult `json:"invitation,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// WarningInvitationFailed is set when the account was created but the
// invitation requested with it was not
const WarningInvitationFailed = "invitation_failed"

// AccountService creates unconfirmed accounts and publishes account.created
type AccountService struct {
	repo        RepositoryManager
	invitations *InvitationService
	activity    ActivitySink
	logger      Logger
}

// NewAccountService creates a service with sane defaults.
func NewAccountService(repo RepositoryManager) *AccountService {
	return &AccountService{
		repo:     repo,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithInvitationService enables issuing an invitation on creation
func (s *AccountService) WithInvitationService(invitations *InvitationService) *AccountService {
	s.invitations = invitations
	return s
}

// WithActivitySink sets the sink that receives account.created. The admin
// mirror is usually registered here.
func (s *AccountService) WithActivitySink(sink ActivitySink) *AccountService {
	s.activity = normalizeActivitySink(sink)
	return s
}

// WithLogger overrides the logger used by the service.
func (s *AccountService) WithLogger(logger Logger) *AccountService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// CreateAccount stores an account in the CREATED state
func (s *AccountService) CreateAccount(ctx context.Context, msg CreateAccountMessage) (*AccountResult, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account creation",
		)
	default:
		return s.execute(ctx, msg)
	}
}

func (s *AccountService) execute(ctx context.Context, msg CreateAccountMessage) (*AccountResult, error) {
	msg.Email = strings.TrimSpace(msg.Email)
	msg.Username = strings.TrimSpace(msg.Username)

	if err := msg.Validate(); err != nil {
		return nil, malformedRequest(err)
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	if _, err := s.repo.Accounts().GetByEmail(ctx, msg.Email); err == nil {
		return nil, ErrAccountExists
	} else if !IsRecordNotFound(err) {
		s.logger.Error("create account lookup", "email", msg.Email, "error", err)
		return nil, ErrRepositoryFailure
	}

	account := &Account{
		Email:    msg.Email,
		Username: msg.Username,
	}

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		created, err := s.repo.Accounts().CreateTx(ctx, tx, account)
		if err != nil {
			return err
		}
		if created != nil {
			account = created
		}
		return nil
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrAccountExists
		}
		s.logger.Error("create account", "email", msg.Email, "error", err)
		return nil, ErrRepositoryFailure
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEvent{
		EventType: ActivityEventAccountCreated,
		AccountID: account.ID.String(),
		Email:     account.Email,
		Account:   account,
	})

	result := &AccountResult{Account: NewAccountRecord(account)}

	if msg.Invite && s.invitations != nil {
		inv, err := s.invitations.CreateInvitation(ctx, CreateInvitationMessage{
			Email:     account.Email,
			AccountID: account.ID.String(),
		})
		if err != nil {
			// the account exists, an invitation can be issued later
			s.logger.Error("create account invite", "account_id", account.ID.String(), "error", err)
			result.Warnings = append(result.Warnings, WarningInvitationFailed)
			return result, nil
		}
		result.Invitation = inv
	}

	return result, nil
}
