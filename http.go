package invite

import (
	"context"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"

	"github.com/goliatone/go-auth-invite/middleware/jwtware"
)

// DefaultSessionContextKey is the router local holding validated claims
const DefaultSessionContextKey = "session"

// ErrSessionRequired is returned when a session route has no valid token
var ErrSessionRequired = goerrors.New("missing or invalid session token", goerrors.CategoryAuth).
	WithTextCode("SESSION_REQUIRED").
	WithCode(goerrors.CodeUnauthorized)

// SessionRoutes serves the account behind a session token issued on activation
type SessionRoutes struct {
	tokens *TokenService
	repo   RepositoryManager
	Logger Logger
	Path   string
}

func NewSessionRoutes(tokens *TokenService, repo RepositoryManager) *SessionRoutes {
	return &SessionRoutes{
		tokens: tokens,
		repo:   repo,
		Logger: defLogger{},
		Path:   "/api/session",
	}
}

// RegisterSessionRoutes mounts GET /api/session behind the session guard
func RegisterSessionRoutes[T any](app router.Router[T], tokens *TokenService, repo RepositoryManager, logger Logger) *SessionRoutes {
	routes := NewSessionRoutes(tokens, repo)
	if logger != nil {
		routes.Logger = logger
	}

	app.Get(routes.Path, routes.CurrentAccount, routes.Guard()).
		SetName("session.get")

	return routes
}

// Guard validates the bearer session token and stores the claims in the
// router locals and the request context.
func (s *SessionRoutes) Guard() router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		ContextKey:     DefaultSessionContextKey,
		TokenLookup:    "header:" + router.HeaderAuthorization,
		AuthScheme:     "Bearer",
		TokenValidator: sessionValidator{tokens: s.tokens},
		ErrorHandler:   s.authErrorHandler,
		ContextEnricher: func(c context.Context, claims jwtware.SessionClaims) context.Context {
			if sc, ok := claims.(*SessionClaims); ok {
				return WithClaimsContext(c, sc)
			}
			return c
		},
	})
}

// CurrentAccount returns the account named by the session claims
func (s *SessionRoutes) CurrentAccount(ctx router.Context) error {
	claims, ok := GetClaims(ctx.Context())
	if !ok {
		return s.authErrorHandler(ctx, ErrSessionRequired)
	}

	id, err := uuid.Parse(claims.AccountID())
	if err != nil {
		return s.authErrorHandler(ctx, ErrTokenMalformed)
	}

	account, err := s.repo.Accounts().GetByID(ctx.Context(), id)
	if err != nil {
		if IsRecordNotFound(err) {
			return s.authErrorHandler(ctx, ErrSessionRequired)
		}
		s.Logger.Error("session account lookup", "account_id", id.String(), "error", err)
		return ctx.JSON(http.StatusInternalServerError, ErrorBody{Error: ErrorDetail{
			Message: MessageProcessingError,
		}})
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"user":      NewAccountRecord(account),
		"expiresAt": claims.Expires(),
	})
}

func (s *SessionRoutes) authErrorHandler(ctx router.Context, err error) error {
	richErr := ErrSessionRequired
	var ge *goerrors.Error
	if goerrors.As(err, &ge) && ge.Category == goerrors.CategoryAuth {
		richErr = ge
	}

	s.Logger.Info("session rejected", "error", err, "text_code", richErr.TextCode)

	return ctx.JSON(http.StatusUnauthorized, ErrorBody{Error: ErrorDetail{
		Message:  richErr.Message,
		TextCode: richErr.TextCode,
	}})
}

type sessionValidator struct {
	tokens *TokenService
}

func (v sessionValidator) Validate(raw string) (jwtware.SessionClaims, error) {
	claims, err := v.tokens.Validate(raw)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
