package invite_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	invite "github.com/goliatone/go-auth-invite"
)

var signingKey = []byte("test-signing-key-0123456789")

func newTokenAccount() *invite.Account {
	return &invite.Account{
		ID:        uuid.MustParse("350399bc-c095-4bdc-a59c-3352d44848e4"),
		Email:     "alice@example.com",
		Username:  "alice",
		Confirmed: true,
	}
}

func TestTokenServiceIssueAndValidate(t *testing.T) {
	clock := newTestClock()
	ts := invite.NewTokenService(signingKey, time.Hour, "go-auth-invite", jwt.ClaimStrings{"web"}, invite.NoopLogger()).
		WithClock(clock.Clock())

	account := newTokenAccount()
	token, err := ts.Issue(account)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ts.Validate(token)
	require.NoError(t, err)

	assert.Equal(t, account.ID.String(), claims.Subject())
	assert.Equal(t, account.ID.String(), claims.AccountID())
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "go-auth-invite", claims.Issuer)
	assert.Equal(t, testNow.Unix(), claims.IssuedAt().Unix())
	assert.Equal(t, testNow.Add(time.Hour).Unix(), claims.Expires().Unix())
	assert.NotEmpty(t, claims.ID)
}

func TestTokenServiceUniqueTokenIDs(t *testing.T) {
	ts := invite.NewTokenService(signingKey, time.Hour, "", nil, invite.NoopLogger())

	first, err := ts.Issue(newTokenAccount())
	require.NoError(t, err)
	second, err := ts.Issue(newTokenAccount())
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestTokenServiceExpired(t *testing.T) {
	clock := newTestClock()
	ts := invite.NewTokenService(signingKey, time.Hour, "go-auth-invite", nil, invite.NoopLogger()).
		WithClock(clock.Clock())

	token, err := ts.Issue(newTokenAccount())
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)

	_, err = ts.Validate(token)
	assert.ErrorIs(t, err, invite.ErrTokenExpired)
}

func TestTokenServiceRejectsTampered(t *testing.T) {
	ts := invite.NewTokenService(signingKey, time.Hour, "go-auth-invite", nil, invite.NoopLogger())

	token, err := ts.Issue(newTokenAccount())
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		ts    *invite.TokenService
	}{
		{
			name:  "garbage",
			token: "not-a-jwt",
			ts:    ts,
		},
		{
			name:  "truncated signature",
			token: token[:len(token)-4],
			ts:    ts,
		},
		{
			name:  "other signing key",
			token: token,
			ts:    invite.NewTokenService([]byte("another-signing-key-9876543210"), time.Hour, "go-auth-invite", nil, invite.NoopLogger()),
		},
		{
			name:  "other issuer",
			token: token,
			ts:    invite.NewTokenService(signingKey, time.Hour, "someone-else", nil, invite.NoopLogger()),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.ts.Validate(tt.token)
			assert.ErrorIs(t, err, invite.ErrTokenMalformed)
		})
	}
}

func TestTokenServiceAudience(t *testing.T) {
	web := invite.NewTokenService(signingKey, time.Hour, "go-auth-invite", jwt.ClaimStrings{"web", "mobile"}, invite.NoopLogger())
	token, err := web.Issue(newTokenAccount())
	require.NoError(t, err)

	mobile := invite.NewTokenService(signingKey, time.Hour, "go-auth-invite", jwt.ClaimStrings{"mobile"}, invite.NoopLogger())
	_, err = mobile.Validate(token)
	assert.NoError(t, err)

	admin := invite.NewTokenService(signingKey, time.Hour, "go-auth-invite", jwt.ClaimStrings{"admin"}, invite.NoopLogger())
	_, err = admin.Validate(token)
	assert.ErrorIs(t, err, invite.ErrTokenMalformed)
}

func TestTokenServiceRejectsNilAccount(t *testing.T) {
	ts := invite.NewTokenService(signingKey, time.Hour, "", nil, invite.NoopLogger())
	_, err := ts.Issue(nil)
	assert.Error(t, err)
}
