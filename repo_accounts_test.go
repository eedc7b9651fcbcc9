package invite_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	invite "github.com/goliatone/go-auth-invite"
)

func issueCredential(t *testing.T, repo invite.RepositoryManager, id uuid.UUID, credential string, at time.Time) error {
	t.Helper()
	return repo.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		return repo.Accounts().IssueCredentialTx(ctx, tx, id, credential, at)
	})
}

func activate(repo invite.RepositoryManager, act invite.Activation) error {
	return repo.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		return repo.Accounts().ActivateTx(ctx, tx, act)
	})
}

func TestAccountsCreateNormalizesEmail(t *testing.T) {
	_, repo := setupRepo(t)

	account := createAccount(t, repo, "  Alice@Example.com ", " alice ")
	assert.Equal(t, "alice@example.com", account.Email)
	assert.Equal(t, "alice", account.Username)

	found, err := repo.Accounts().GetByEmail(context.Background(), "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.ID, found.ID)
	assert.Equal(t, invite.StateCreated, found.State())
}

func TestAccountsDuplicateEmail(t *testing.T) {
	_, repo := setupRepo(t)
	createAccount(t, repo, "alice@example.com", "")

	err := repo.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := repo.Accounts().CreateTx(ctx, tx, &invite.Account{Email: "alice@example.com"})
		return err
	})
	require.Error(t, err)
	assert.True(t, invite.IsUniqueViolation(err))
}

func TestAccountsGetByIDNotFound(t *testing.T) {
	_, repo := setupRepo(t)

	_, err := repo.Accounts().GetByID(context.Background(), uuid.New())
	assert.True(t, invite.IsRecordNotFound(err))
}

func TestAccountsIssueCredential(t *testing.T) {
	_, repo := setupRepo(t)
	account := createAccount(t, repo, "alice@example.com", "alice")

	require.NoError(t, issueCredential(t, repo, account.ID, "first", testNow))

	stored := reload(t, repo, account.ID)
	assert.Equal(t, invite.StatePending, stored.State())
	assert.Equal(t, "first", stored.PendingCredential())
	require.NotNil(t, stored.CredentialIssuedAt)
	assert.True(t, testNow.Equal(stored.CredentialIssuedAt.UTC()))

	// a second issuance replaces the first
	require.NoError(t, issueCredential(t, repo, account.ID, "second", testNow.Add(time.Hour)))

	_, err := repo.Accounts().FindByCredential(context.Background(), "first")
	assert.True(t, invite.IsRecordNotFound(err))

	found, err := repo.Accounts().FindByCredential(context.Background(), "second")
	require.NoError(t, err)
	assert.Equal(t, account.ID, found.ID)
}

func TestAccountsFindPendingMatchesEmail(t *testing.T) {
	_, repo := setupRepo(t)
	account := createAccount(t, repo, "alice@example.com", "alice")
	require.NoError(t, issueCredential(t, repo, account.ID, "cred", testNow))

	found, err := repo.Accounts().FindPending(context.Background(), "cred", "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.ID, found.ID)

	_, err = repo.Accounts().FindPending(context.Background(), "cred", "mallory@example.com")
	assert.True(t, invite.IsRecordNotFound(err))

	_, err = repo.Accounts().FindPending(context.Background(), "other", "alice@example.com")
	assert.True(t, invite.IsRecordNotFound(err))
}

func TestAccountsActivateIsSingleUse(t *testing.T) {
	_, repo := setupRepo(t)
	account := createAccount(t, repo, "alice@example.com", "alice")
	require.NoError(t, issueCredential(t, repo, account.ID, "cred", testNow))

	// both readers see the pending account before either writes
	first, err := repo.Accounts().FindPending(context.Background(), "cred", "alice@example.com")
	require.NoError(t, err)
	second, err := repo.Accounts().FindPending(context.Background(), "cred", "alice@example.com")
	require.NoError(t, err)

	act := invite.Activation{
		AccountID:    first.ID,
		Credential:   "cred",
		PasswordHash: "hash-1",
		Username:     "alice",
		ActivatedAt:  testNow,
	}
	require.NoError(t, activate(repo, act))

	act.AccountID = second.ID
	act.PasswordHash = "hash-2"
	err = activate(repo, act)
	assert.ErrorIs(t, err, invite.ErrActivationConflict)

	stored := reload(t, repo, account.ID)
	assert.Equal(t, invite.StateActive, stored.State())
	assert.Equal(t, "hash-1", stored.PasswordHash)
	assert.Nil(t, stored.ConfirmationToken)
	assert.Nil(t, stored.CredentialIssuedAt)
}

func TestAccountsIssueCredentialSkipsConfirmed(t *testing.T) {
	_, repo := setupRepo(t)
	account := createAccount(t, repo, "alice@example.com", "alice")
	require.NoError(t, issueCredential(t, repo, account.ID, "cred", testNow))
	require.NoError(t, activate(repo, invite.Activation{
		AccountID:    account.ID,
		Credential:   "cred",
		PasswordHash: "hash",
		ActivatedAt:  testNow,
	}))

	err := issueCredential(t, repo, account.ID, "again", testNow)
	assert.True(t, invite.IsRecordNotFound(err))

	stored := reload(t, repo, account.ID)
	assert.Equal(t, invite.StateActive, stored.State())
}

func TestAccountsActivateWithStaleCredential(t *testing.T) {
	_, repo := setupRepo(t)
	account := createAccount(t, repo, "alice@example.com", "alice")
	require.NoError(t, issueCredential(t, repo, account.ID, "old", testNow))
	require.NoError(t, issueCredential(t, repo, account.ID, "new", testNow.Add(time.Minute)))

	err := activate(repo, invite.Activation{
		AccountID:    account.ID,
		Credential:   "old",
		PasswordHash: "hash",
		ActivatedAt:  testNow,
	})
	assert.ErrorIs(t, err, invite.ErrActivationConflict)
	assert.Equal(t, invite.StatePending, reload(t, repo, account.ID).State())
}
