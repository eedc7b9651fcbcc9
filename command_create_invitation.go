package invite

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// WarningNotificationFailed is attached to results whose state change
// persisted but whose notification could not be delivered.
const WarningNotificationFailed = "notification_failed"

const commandTimeout = time.Second * 10

type CreateInvitationMessage struct {
	Email     string `json:"email" example:"alice@example.com" doc:"Invitee email"`
	AccountID string `json:"userId" example:"350399bc-c095-4bdc-a59c-3352d44848e4" doc:"Target account ID"`
}

func (m CreateInvitationMessage) Type() string {
	return "invitation.create"
}

func (m CreateInvitationMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Email, validation.Required, is.Email),
		validation.Field(&m.AccountID, validation.Required, is.UUID),
	)
}

// InvitationResult is returned by a successful CreateInvitation call.
// Success stays true when only the notification failed.
type InvitationResult struct {
	InvitationID      string    `json:"inviteId"`
	Success           bool      `json:"success"`
	ExpiresAt         time.Time `json:"expiresAt"`
	Link              string    `json:"-"`
	Warnings          []string  `json:"warnings,omitempty"`
	NotificationError error     `json:"-"`
}

// InvitationService issues invitations and the pending credential that
// goes with them.
type InvitationService struct {
	repo            RepositoryManager
	credentials     CredentialIssuer
	notifier        NotificationSink
	activity        ActivitySink
	logger          Logger
	now             Clock
	publicURL       string
	credentialBytes int
	validity        time.Duration
}

// NewInvitationService creates a service with sane defaults.
func NewInvitationService(repo RepositoryManager) *InvitationService {
	return &InvitationService{
		repo:            repo,
		credentials:     NewCredentialIssuer(),
		notifier:        LogSink{},
		activity:        noopActivitySink{},
		logger:          defLogger{},
		publicURL:       DefaultPublicURL,
		credentialBytes: DefaultCredentialBytes,
		validity:        DefaultValidity,
	}
}

// WithConfig applies link, credential and validity settings
func (s *InvitationService) WithConfig(cfg Config) *InvitationService {
	if cfg == nil {
		return s
	}
	if u := cfg.GetPublicURL(); u != "" {
		s.publicURL = u
	}
	if n := cfg.GetCredentialBytes(); n > 0 {
		s.credentialBytes = n
	}
	if v := cfg.GetValidity(); v > 0 {
		s.validity = v
	}
	return s
}

func (s *InvitationService) WithCredentialIssuer(issuer CredentialIssuer) *InvitationService {
	if issuer != nil {
		s.credentials = issuer
	}
	return s
}

func (s *InvitationService) WithNotificationSink(sink NotificationSink) *InvitationService {
	if sink != nil {
		s.notifier = sink
	}
	return s
}

// WithActivitySink sets the sink used to emit invitation events.
func (s *InvitationService) WithActivitySink(sink ActivitySink) *InvitationService {
	s.activity = normalizeActivitySink(sink)
	return s
}

// WithLogger overrides the logger used by the service.
func (s *InvitationService) WithLogger(logger Logger) *InvitationService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *InvitationService) WithClock(c Clock) *InvitationService {
	s.now = c
	return s
}

// CreateInvitation issues a fresh credential for the account, records the
// invitation and sends the registration link.
func (s *InvitationService) CreateInvitation(ctx context.Context, msg CreateInvitationMessage) (*InvitationResult, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during invitation creation",
		)
	default:
		return s.execute(ctx, msg)
	}
}

func (s *InvitationService) execute(ctx context.Context, msg CreateInvitationMessage) (*InvitationResult, error) {
	msg.Email = strings.TrimSpace(msg.Email)
	msg.AccountID = strings.TrimSpace(msg.AccountID)

	if err := msg.Validate(); err != nil {
		return nil, malformedRequest(err)
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	accountID := uuid.MustParse(msg.AccountID)

	account, err := s.repo.Accounts().GetByID(ctx, accountID)
	if err != nil {
		if IsRecordNotFound(err) {
			return nil, ErrAccountNotFound
		}
		s.logger.Error("create invitation load account", "account_id", msg.AccountID, "error", err)
		return nil, ErrRepositoryFailure
	}

	if err := ValidateTransition(account, StatePending); err != nil {
		return nil, ErrAccountAlreadyConfirmed
	}

	if NormalizeEmail(account.Email) != NormalizeEmail(msg.Email) {
		return nil, malformedRequest(validation.Errors{
			"email": errors.New("does not match the account email"),
		})
	}

	credential, err := s.credentials.Issue(s.credentialBytes)
	if err != nil {
		s.logger.Error("create invitation issue credential", "error", err)
		return nil, ErrRepositoryFailure
	}

	now := s.now.now()
	invitation := &Invitation{
		Email:     account.Email,
		Token:     credential,
		AccountID: account.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.validity),
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := s.repo.Invitations().CreateTx(ctx, tx, invitation); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store invitation")
		}

		if err := s.repo.Accounts().IssueCredentialTx(ctx, tx, account.ID, credential, now); err != nil {
			if IsRecordNotFound(err) {
				return ErrAccountAlreadyConfirmed
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store pending credential")
		}

		return nil
	})

	if err != nil {
		if errors.Is(err, ErrAccountAlreadyConfirmed) {
			return nil, ErrAccountAlreadyConfirmed
		}
		s.logger.Error("create invitation transaction", "account_id", msg.AccountID, "error", err)
		return nil, ErrRepositoryFailure
	}

	result := &InvitationResult{
		InvitationID: invitation.ID.String(),
		Success:      true,
		ExpiresAt:    invitation.ExpiresAt,
		Link:         RegistrationLink(s.publicURL, credential, account.Email, account.Username),
	}

	if err := s.notifier.Send(ctx, NewInvitationMessage(account.Email, result.Link, s.validity)); err != nil {
		s.logger.Warn("invitation notification failed",
			"invitation_id", result.InvitationID,
			"email", account.Email,
			"error", err,
		)
		result.NotificationError = errors.Join(ErrNotificationFailure, err)
		result.Warnings = append(result.Warnings, WarningNotificationFailed)
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEvent{
		EventType: ActivityEventInvitationCreated,
		AccountID: account.ID.String(),
		Email:     account.Email,
		Account:   account,
		Metadata: map[string]any{
			"invitation_id":       result.InvitationID,
			"expires_at":          invitation.ExpiresAt,
			"notification_failed": result.NotificationError != nil,
		},
		OccurredAt: now,
	})

	return result, nil
}

// ListInvitations returns every invitation, newest first
func (s *InvitationService) ListInvitations(ctx context.Context) ([]*Invitation, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	records, err := s.repo.Invitations().List(ctx)
	if err != nil {
		s.logger.Error("list invitations", "error", err)
		return nil, ErrRepositoryFailure
	}
	return records, nil
}

// malformedRequest keeps ErrMalformedRequest matchable with errors.Is
// while carrying the per field details.
func malformedRequest(err error) error {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return errors.Join(ErrMalformedRequest, err)
	}

	verr := goerrors.FromOzzoValidation(verrs, "invalid request").WithTextCode(TextCodeValidation)
	sort.Slice(verr.ValidationErrors, func(i, j int) bool {
		return verr.ValidationErrors[i].Field < verr.ValidationErrors[j].Field
	})

	return errors.Join(ErrMalformedRequest, verr)
}
