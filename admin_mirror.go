package invite

import (
	"context"

	"github.com/goliatone/hashid/pkg/hashid"
)

const (
	DefaultAdminPreferredRole = "strapi-editor"
	DefaultAdminFallbackRole  = "strapi-author"
)

// MirrorOutcome tells callers what a Mirror call did
type MirrorOutcome string

const (
	MirrorCreated        MirrorOutcome = "created"
	MirrorSkippedExists  MirrorOutcome = "skipped_exists"
	MirrorSkippedNoRole  MirrorOutcome = "skipped_no_role"
	MirrorFailed         MirrorOutcome = "failed"
	MirrorNotifyFailed   MirrorOutcome = "notification_failed"
	MirrorSkippedInvalid MirrorOutcome = "skipped_invalid"
)

// AdminMirrorService provisions an inactive admin identity for new
// accounts. It never fails the flow that triggered it.
type AdminMirrorService struct {
	admins        AdminIdentities
	tokens        AdminTokenIssuer
	notifier      NotificationSink
	activity      ActivitySink
	logger        Logger
	now           Clock
	adminURL      string
	preferredRole string
	fallbackRole  string
}

var _ ActivitySink = (*AdminMirrorService)(nil)

// NewAdminMirrorService creates a mirror with the default role policy
func NewAdminMirrorService(admins AdminIdentities) *AdminMirrorService {
	return &AdminMirrorService{
		admins:        admins,
		tokens:        NewAdminTokenIssuer(),
		notifier:      LogSink{},
		activity:      noopActivitySink{},
		logger:        defLogger{},
		adminURL:      DefaultPublicURL,
		preferredRole: DefaultAdminPreferredRole,
		fallbackRole:  DefaultAdminFallbackRole,
	}
}

// WithConfig applies the admin link base and role policy
func (s *AdminMirrorService) WithConfig(cfg Config) *AdminMirrorService {
	if cfg == nil {
		return s
	}
	if u := cfg.GetAdminURL(); u != "" {
		s.adminURL = u
	} else if u := cfg.GetPublicURL(); u != "" {
		s.adminURL = u
	}
	if r := cfg.GetAdminPreferredRole(); r != "" {
		s.preferredRole = r
	}
	if r := cfg.GetAdminFallbackRole(); r != "" {
		s.fallbackRole = r
	}
	return s
}

// WithAdminTokenIssuer sets the source of admin registration tokens
func (s *AdminMirrorService) WithAdminTokenIssuer(issuer AdminTokenIssuer) *AdminMirrorService {
	if issuer != nil {
		s.tokens = issuer
	}
	return s
}

func (s *AdminMirrorService) WithNotificationSink(sink NotificationSink) *AdminMirrorService {
	if sink != nil {
		s.notifier = sink
	}
	return s
}

// WithActivitySink sets the sink notified after an admin was mirrored
func (s *AdminMirrorService) WithActivitySink(sink ActivitySink) *AdminMirrorService {
	s.activity = normalizeActivitySink(sink)
	return s
}

// WithLogger overrides the logger used by the service.
func (s *AdminMirrorService) WithLogger(logger Logger) *AdminMirrorService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *AdminMirrorService) WithClock(c Clock) *AdminMirrorService {
	s.now = c
	return s
}

// Record implements ActivitySink. Only account.created events are handled.
func (s *AdminMirrorService) Record(ctx context.Context, event ActivityEvent) error {
	if event.EventType != ActivityEventAccountCreated {
		return nil
	}

	account := event.Account
	if account == nil {
		account = &Account{Email: event.Email}
	}

	s.Mirror(ctx, account)
	return nil
}

// Mirror creates the admin identity for account unless one already exists.
// Failures are logged and reported through the outcome only.
func (s *AdminMirrorService) Mirror(ctx context.Context, account *Account) MirrorOutcome {
	if account == nil || NormalizeEmail(account.Email) == "" {
		s.logger.Warn("admin mirror skipped, account has no email")
		return MirrorSkippedInvalid
	}

	email := NormalizeEmail(account.Email)

	existing, err := s.admins.GetByEmail(ctx, email)
	if err == nil && existing != nil {
		s.logger.Debug("admin mirror skipped, admin exists", "email", email)
		return MirrorSkippedExists
	}
	if err != nil && !IsRecordNotFound(err) {
		s.logger.Error("admin mirror lookup failed", "email", email, "error", err)
		return MirrorFailed
	}

	role, ok := s.resolveRole(ctx)
	if !ok {
		s.logger.Warn("admin mirror skipped, no admin role available",
			"preferred", s.preferredRole,
			"fallback", s.fallbackRole,
		)
		return MirrorSkippedNoRole
	}

	token, err := s.tokens.IssueRegistrationToken()
	if err != nil {
		s.logger.Error("admin mirror issue registration token", "email", email, "error", err)
		return MirrorFailed
	}

	admin := &AdminIdentity{
		Email:             email,
		Username:          account.Username,
		RegistrationToken: &token,
		RoleID:            role.ID,
		IsActive:          false,
		Blocked:           false,
	}

	// same email, same id: a concurrent mirror of the account collides on the key
	if id, err := hashid.NewUUID(email); err == nil {
		admin.ID = id
	}

	if _, err := s.admins.Create(ctx, admin); err != nil {
		if IsUniqueViolation(err) {
			s.logger.Info("admin mirror skipped, already mirrored", "email", email)
			return MirrorSkippedExists
		}
		s.logger.Error("admin mirror create failed", "email", email, "error", err)
		return MirrorFailed
	}

	s.logger.Info("admin mirror created", "email", email, "role", role.Code)

	recordActivity(ctx, s.activity, s.logger, ActivityEvent{
		EventType: ActivityEventAdminMirrored,
		AccountID: account.ID.String(),
		Email:     email,
		Account:   account,
		Metadata: map[string]any{
			"admin_id": admin.ID.String(),
			"role":     role.Code,
		},
		OccurredAt: s.now.now(),
	})

	link := AdminRegistrationLink(s.adminURL, token)
	if err := s.notifier.Send(ctx, NewAdminRegistrationMessage(email, link)); err != nil {
		s.logger.Warn("admin mirror notification failed", "email", email, "error", err)
		return MirrorNotifyFailed
	}

	return MirrorCreated
}

func (s *AdminMirrorService) resolveRole(ctx context.Context) (*AdminRole, bool) {
	for _, code := range []string{s.preferredRole, s.fallbackRole} {
		if code == "" {
			continue
		}
		role, err := s.admins.RoleByCode(ctx, code)
		if err == nil && role != nil {
			return role, true
		}
		if err != nil && !IsRecordNotFound(err) {
			s.logger.Error("admin mirror role lookup failed", "code", code, "error", err)
		}
	}
	return nil, false
}
