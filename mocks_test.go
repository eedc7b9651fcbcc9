package invite_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/bcrypt"

	invite "github.com/goliatone/go-auth-invite"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

// testClock is a settable clock shared by the services under test
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: testNow}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *testClock) Clock() invite.Clock {
	return c.Now
}

func setupDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	_, err = db.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	_, err = invite.Migrate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

func setupRepo(t *testing.T) (*bun.DB, invite.RepositoryManager) {
	t.Helper()
	db := setupDB(t)
	return db, invite.NewRepositoryManager(db)
}

func createAccount(t *testing.T, repo invite.RepositoryManager, email, username string) *invite.Account {
	t.Helper()

	account := &invite.Account{Email: email, Username: username}
	err := repo.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		created, err := repo.Accounts().CreateTx(ctx, tx, account)
		if err == nil && created != nil {
			account = created
		}
		return err
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, account.ID)
	return account
}

func reload(t *testing.T, repo invite.RepositoryManager, id uuid.UUID) *invite.Account {
	t.Helper()
	account, err := repo.Accounts().GetByID(context.Background(), id)
	require.NoError(t, err)
	return account
}

func fastHasher() invite.PasswordHasher {
	return invite.BcryptHasher{Cost: bcrypt.MinCost}
}

// captureSink records every message and can be told to fail
type captureSink struct {
	mu       sync.Mutex
	messages []invite.Message
	err      error
}

func (s *captureSink) Send(_ context.Context, msg invite.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *captureSink) Sent() []invite.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]invite.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// recordingActivity keeps every activity event
type recordingActivity struct {
	mu     sync.Mutex
	events []invite.ActivityEvent
}

func (r *recordingActivity) Record(_ context.Context, event invite.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingActivity) Types() []invite.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]invite.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

// sequenceIssuer hands out predictable credentials
type sequenceIssuer struct {
	mu     sync.Mutex
	values []string
	sizes  []int
}

func (s *sequenceIssuer) Issue(byteLength int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sizes = append(s.sizes, byteLength)
	if len(s.values) == 0 {
		return "", errors.New("sequence exhausted")
	}
	v := s.values[0]
	s.values = s.values[1:]
	return v, nil
}

// staticConfig implements invite.Config
type staticConfig struct {
	publicURL       string
	adminURL        string
	credentialBytes int
	validity        time.Duration
	preferredRole   string
	fallbackRole    string
}

func (c staticConfig) GetPublicURL() string          { return c.publicURL }
func (c staticConfig) GetAdminURL() string           { return c.adminURL }
func (c staticConfig) GetCredentialBytes() int       { return c.credentialBytes }
func (c staticConfig) GetValidity() time.Duration    { return c.validity }
func (c staticConfig) GetAdminPreferredRole() string { return c.preferredRole }
func (c staticConfig) GetAdminFallbackRole() string  { return c.fallbackRole }

// stubSessions returns a fixed session token
type stubSessions struct {
	token string
	err   error
	seen  []*invite.Account
}

func (s *stubSessions) Issue(account *invite.Account) (string, error) {
	s.seen = append(s.seen, account)
	if s.err != nil {
		return "", s.err
	}
	return s.token, nil
}

// harness bundles the services of one test over one database
type harness struct {
	db            *bun.DB
	repo          invite.RepositoryManager
	clock         *testClock
	notifier      *captureSink
	activity      *recordingActivity
	tokens        *invite.TokenService
	invitations   *invite.InvitationService
	confirmations *invite.ConfirmationService
	accounts      *invite.AccountService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, repo := setupRepo(t)
	h := &harness{
		db:       db,
		repo:     repo,
		clock:    newTestClock(),
		notifier: &captureSink{},
		activity: &recordingActivity{},
	}

	cfg := staticConfig{publicURL: "https://app.example.com"}
	logger := invite.NoopLogger()

	h.tokens = invite.NewTokenService([]byte("test-signing-key-0123456789"), time.Hour, "go-auth-invite", nil, logger).
		WithClock(h.clock.Clock())

	h.invitations = invite.NewInvitationService(repo).
		WithConfig(cfg).
		WithNotificationSink(h.notifier).
		WithActivitySink(h.activity).
		WithLogger(logger).
		WithClock(h.clock.Clock())

	h.confirmations = invite.NewConfirmationService(repo, h.tokens).
		WithConfig(cfg).
		WithPasswordHasher(fastHasher()).
		WithActivitySink(h.activity).
		WithLogger(logger).
		WithClock(h.clock.Clock())

	h.accounts = invite.NewAccountService(repo).
		WithInvitationService(h.invitations).
		WithActivitySink(h.activity).
		WithLogger(logger)

	return h
}

// invite issues an invitation for account and returns the credential from the link
func (h *harness) invite(t *testing.T, account *invite.Account) (*invite.InvitationResult, string) {
	t.Helper()

	res, err := h.invitations.CreateInvitation(context.Background(), invite.CreateInvitationMessage{
		Email:     account.Email,
		AccountID: account.ID.String(),
	})
	require.NoError(t, err)

	stored := reload(t, h.repo, account.ID)
	require.NotNil(t, stored.ConfirmationToken)
	return res, *stored.ConfirmationToken
}
