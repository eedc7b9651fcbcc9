package invite

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ErrTokenExpired is returned when validating an expired session token
var ErrTokenExpired = goerrors.New("session token expired", goerrors.CategoryAuth).
	WithTextCode(goerrors.TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens we can not parse or verify
var ErrTokenMalformed = goerrors.New("malformed session token", goerrors.CategoryAuth).
	WithTextCode(goerrors.TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// TokenService signs HS256 session tokens for activated accounts
type TokenService struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	now        Clock
	logger     Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, ttl time.Duration, issuer string, audience jwt.ClaimStrings, logger Logger) *TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{
		signingKey: signingKey,
		ttl:        ttl,
		issuer:     issuer,
		audience:   audience,
		logger:     normalizeLogger(logger),
	}
}

// WithClock overrides the time source used for iat and exp
func (ts *TokenService) WithClock(c Clock) *TokenService {
	ts.now = c
	return ts
}

// Issue implements SessionIssuer
func (ts *TokenService) Issue(account *Account) (string, error) {
	if account == nil {
		return "", goerrors.New("account must not be nil", goerrors.CategoryInternal)
	}

	now := ts.now.now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   account.ID.String(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
		UID:      account.ID.String(),
		Email:    account.Email,
		Username: account.Username,
	}

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary claims using the configured signing key.
func (ts *TokenService) SignClaims(claims *SessionClaims) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning its claims
func (ts *TokenService) Validate(tokenString string) (*SessionClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 3)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}
	if ts.now != nil {
		parserOptions = append(parserOptions, jwt.WithTimeFunc(ts.now))
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token service unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		ts.logger.Debug("token service validate failed", "error", err)
		return nil, ErrTokenMalformed
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrTokenMalformed
}
