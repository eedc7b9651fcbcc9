package invite

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RegistrationRoutes holds the paths the controller mounts
type RegistrationRoutes struct {
	Invites         string
	ValidateInvite  string
	ConfirmRegister string
	Accounts        string
}

// RegistrationController exposes the invitation workflow over HTTP
type RegistrationController struct {
	Debug         bool
	Logger        Logger
	Routes        *RegistrationRoutes
	Invitations   *InvitationService
	Confirmations *ConfirmationService
	Accounts      *AccountService
	AdminAPIKey   string
	AdminOpen     bool
	ErrorHandler  func(router.Context, error) error
}

type RegistrationControllerOption func(*RegistrationController) *RegistrationController

// WithInvitationService sets the service behind the invite routes
func WithInvitationService(s *InvitationService) RegistrationControllerOption {
	return func(c *RegistrationController) *RegistrationController {
		c.Invitations = s
		return c
	}
}

// WithConfirmationService sets the service behind confirmation and lookup
func WithConfirmationService(s *ConfirmationService) RegistrationControllerOption {
	return func(c *RegistrationController) *RegistrationController {
		c.Confirmations = s
		return c
	}
}

// WithAccountService mounts the account creation route
func WithAccountService(s *AccountService) RegistrationControllerOption {
	return func(c *RegistrationController) *RegistrationController {
		c.Accounts = s
		return c
	}
}

// WithAdminAPIKey guards administrative routes with a bearer key
func WithAdminAPIKey(key string) RegistrationControllerOption {
	return func(c *RegistrationController) *RegistrationController {
		c.AdminAPIKey = key
		return c
	}
}

// WithOpenAdminRoutes serves administrative routes without a key.
// Only meant for local development.
func WithOpenAdminRoutes(open bool) RegistrationControllerOption {
	return func(c *RegistrationController) *RegistrationController {
		c.AdminOpen = open
		return c
	}
}

func WithControllerLogger(logger Logger) RegistrationControllerOption {
	return func(c *RegistrationController) *RegistrationController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerDebug(debug bool) RegistrationControllerOption {
	return func(c *RegistrationController) *RegistrationController {
		c.Debug = debug
		return c
	}
}

func NewRegistrationController(opts ...RegistrationControllerOption) *RegistrationController {
	c := &RegistrationController{
		Logger: defLogger{},
		Routes: &RegistrationRoutes{
			Invites:         "/api/invites",
			ValidateInvite:  "/api/invites/validate",
			ConfirmRegister: "/api/registration/confirm",
			Accounts:        "/api/accounts",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.writeError
	}

	if c.Invitations == nil {
		panic("Missing InvitationService in registration controller...")
	}

	if c.Confirmations == nil {
		panic("Missing ConfirmationService in registration controller...")
	}

	return c
}

// RegisterRegistrationRoutes mounts the invitation workflow routes
func RegisterRegistrationRoutes[T any](app router.Router[T], opts ...RegistrationControllerOption) *RegistrationController {
	controller := NewRegistrationController(opts...)

	admin := AdminKeyGuard(controller.AdminAPIKey, controller.ErrorHandler)
	if controller.AdminOpen {
		controller.Logger.Warn("administrative routes are served without an API key")
		admin = func(hf router.HandlerFunc) router.HandlerFunc { return hf }
	}

	app.Post(controller.Routes.Invites, controller.CreateInvite, admin).
		SetName("invites.post")
	app.Get(controller.Routes.Invites, controller.ListInvites, admin).
		SetName("invites.get")
	app.Get(controller.Routes.ValidateInvite, controller.ValidateInvite).
		SetName("invites-validate.get")
	app.Post(controller.Routes.ConfirmRegister, controller.ConfirmRegistration).
		SetName("registration-confirm.post")

	if controller.Accounts != nil {
		app.Post(controller.Routes.Accounts, controller.CreateAccount, admin).
			SetName("accounts.post")
	}

	return controller
}

// CreateInvitePayload is the invitation request body
type CreateInvitePayload struct {
	Email  string `json:"email" form:"email"`
	UserID string `json:"userId" form:"userId"`
}

func (a *RegistrationController) CreateInvite(ctx router.Context) error {
	payload := new(CreateInvitePayload)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Warn("create invite parse payload", "error", err)
		return a.ErrorHandler(ctx, malformedRequest(err))
	}

	if a.Debug {
		fmt.Println("======= CREATE INVITE ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("============================")
	}

	res, err := a.Invitations.CreateInvitation(ctx.Context(), CreateInvitationMessage{
		Email:     payload.Email,
		AccountID: payload.UserID,
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	message := "Invitation sent successfully"
	if len(res.Warnings) > 0 {
		message = "Invitation created, notification could not be delivered"
	}

	body := map[string]any{
		"success":  res.Success,
		"inviteId": res.InvitationID,
		"message":  message,
	}
	if len(res.Warnings) > 0 {
		body["warnings"] = res.Warnings
	}

	return ctx.JSON(http.StatusOK, body)
}

func (a *RegistrationController) ListInvites(ctx router.Context) error {
	records, err := a.Invitations.ListInvitations(ctx.Context())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}
	return ctx.JSON(http.StatusOK, records)
}

func (a *RegistrationController) ValidateInvite(ctx router.Context) error {
	lookup, err := a.Confirmations.LookupCredential(ctx.Context(), ctx.Query("token"))
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}
	return ctx.JSON(http.StatusOK, lookup)
}

// ConfirmRegistrationPayload is the confirmation request body
type ConfirmRegistrationPayload struct {
	ConfirmationToken string `json:"confirmationToken" form:"confirmationToken"`
	Email             string `json:"email" form:"email"`
	Password          string `json:"password" form:"password"`
	Username          string `json:"username" form:"username"`
}

func (a *RegistrationController) ConfirmRegistration(ctx router.Context) error {
	payload := new(ConfirmRegistrationPayload)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Warn("confirm registration parse payload", "error", err)
		return a.ErrorHandler(ctx, malformedRequest(err))
	}

	res, err := a.Confirmations.Confirm(ctx.Context(), ConfirmRegistrationMessage{
		Token:    payload.ConfirmationToken,
		Email:    payload.Email,
		Password: payload.Password,
		Username: payload.Username,
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"jwt":          res.SessionToken,
		"sessionToken": res.SessionToken,
		"user":         res.User,
	})
}

// CreateAccountPayload is the account creation request body
type CreateAccountPayload struct {
	Email    string `json:"email" form:"email"`
	Username string `json:"username" form:"username"`
	Invite   bool   `json:"invite" form:"invite"`
}

func (a *RegistrationController) CreateAccount(ctx router.Context) error {
	payload := new(CreateAccountPayload)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Warn("create account parse payload", "error", err)
		return a.ErrorHandler(ctx, malformedRequest(err))
	}

	res, err := a.Accounts.CreateAccount(ctx.Context(), CreateAccountMessage{
		Email:    payload.Email,
		Username: payload.Username,
		Invite:   payload.Invite,
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	body := map[string]any{
		"id":        res.Account.ID,
		"email":     res.Account.Email,
		"username":  res.Account.Username,
		"confirmed": res.Account.Confirmed,
	}
	warnings := res.Warnings
	if res.Invitation != nil {
		body["inviteId"] = res.Invitation.InvitationID
		warnings = append(warnings, res.Invitation.Warnings...)
	}
	if len(warnings) > 0 {
		body["warnings"] = warnings
	}

	return ctx.JSON(http.StatusCreated, body)
}

// ErrorBody is the JSON error envelope: {"error": {"message": ...}}
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Message    string                    `json:"message"`
	TextCode   string                    `json:"code,omitempty"`
	Validation goerrors.ValidationErrors `json:"validation,omitempty"`
}

func (a *RegistrationController) writeError(ctx router.Context, err error) error {
	status, body := ErrorResponse(err)
	if status >= http.StatusInternalServerError {
		a.Logger.Error("registration request failed", "error", err)
	}
	return ctx.JSON(status, body)
}

// ErrorResponse maps a service error to an HTTP status and a sanitized body.
// Credential failures share one message whatever the sub case.
func ErrorResponse(err error) (int, ErrorBody) {
	switch {
	case IsInvalidCredential(err):
		return http.StatusBadRequest, ErrorBody{Error: ErrorDetail{
			Message:  MessageInvalidOrExpired,
			TextCode: TextCodeInvalidOrExpired,
		}}
	case errors.Is(err, ErrMalformedRequest):
		detail := ErrorDetail{
			Message:  ErrMalformedRequest.Message,
			TextCode: TextCodeMalformedRequest,
		}
		detail.Validation = ValidationFields(err)
		return http.StatusBadRequest, ErrorBody{Error: detail}
	case errors.Is(err, ErrAccountNotFound):
		return http.StatusNotFound, ErrorBody{Error: ErrorDetail{
			Message:  ErrAccountNotFound.Message,
			TextCode: TextCodeAccountNotFound,
		}}
	case errors.Is(err, ErrAccountExists):
		return http.StatusConflict, ErrorBody{Error: ErrorDetail{
			Message:  ErrAccountExists.Message,
			TextCode: TextCodeAccountExists,
		}}
	case errors.Is(err, ErrAccountAlreadyConfirmed):
		return http.StatusConflict, ErrorBody{Error: ErrorDetail{
			Message:  ErrAccountAlreadyConfirmed.Message,
			TextCode: TextCodeAccountAlreadyConfirmed,
		}}
	case errors.Is(err, ErrUnauthorizedAdmin):
		return http.StatusUnauthorized, ErrorBody{Error: ErrorDetail{
			Message:  ErrUnauthorizedAdmin.Message,
			TextCode: ErrUnauthorizedAdmin.TextCode,
		}}
	}

	return http.StatusInternalServerError, ErrorBody{Error: ErrorDetail{
		Message: MessageProcessingError,
	}}
}

// ErrUnauthorizedAdmin is returned when an admin route is called without the key
var ErrUnauthorizedAdmin = goerrors.New("missing or invalid admin credentials", goerrors.CategoryAuthz).
	WithTextCode("ADMIN_UNAUTHORIZED").
	WithCode(goerrors.CodeUnauthorized)

// AdminKeyGuard rejects requests whose bearer token does not match key.
// An empty key rejects every request.
func AdminKeyGuard(key string, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if key == "" {
				return errorHandler(ctx, ErrUnauthorizedAdmin)
			}

			header := ctx.Header(router.HeaderAuthorization)
			const scheme = "Bearer "
			if len(header) <= len(scheme) || !strings.EqualFold(header[:len(scheme)], scheme) {
				return errorHandler(ctx, ErrUnauthorizedAdmin)
			}

			token := strings.TrimSpace(header[len(scheme):])
			if subtle.ConstantTimeCompare([]byte(token), []byte(key)) != 1 {
				return errorHandler(ctx, ErrUnauthorizedAdmin)
			}

			return hf(ctx)
		}
	}
}
