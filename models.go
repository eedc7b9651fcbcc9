package invite

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountState is the registration state derived from an account record
type AccountState = string

const (
	// StateCreated account exists, no invitation has been issued
	StateCreated AccountState = "created"
	// StatePending account holds a live confirmation credential
	StatePending AccountState = "pending"
	// StateActive account was confirmed and can log in
	StateActive AccountState = "active"
)

// Account is the end user record gated by the invitation flow
type Account struct {
	bun.BaseModel      `bun:"table:accounts,alias:acc"`
	ID                 uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email              string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Username           string     `bun:"username" json:"username,omitempty"`
	PasswordHash       string     `bun:"password_hash" json:"-"`
	Confirmed          bool       `bun:"confirmed,notnull" json:"confirmed"`
	ConfirmationToken  *string    `bun:"confirmation_token" json:"-"`
	CredentialIssuedAt *time.Time `bun:"credential_issued_at,nullzero" json:"-"`
	CreatedAt          *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt          *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// State reports where the account sits in the registration flow
func (a *Account) State() AccountState {
	if a == nil {
		return ""
	}
	if a.Confirmed {
		return StateActive
	}
	if a.ConfirmationToken != nil && *a.ConfirmationToken != "" {
		return StatePending
	}
	return StateCreated
}

// PendingCredential returns the live credential or an empty string
func (a *Account) PendingCredential() string {
	if a == nil || a.ConfirmationToken == nil {
		return ""
	}
	return *a.ConfirmationToken
}

// AccountRecord is the safe projection of an account we hand to clients.
// It never carries the password hash or the pending credential.
type AccountRecord struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Confirmed bool   `json:"confirmed"`
}

// NewAccountRecord builds the public projection of an account
func NewAccountRecord(a *Account) AccountRecord {
	if a == nil {
		return AccountRecord{}
	}
	return AccountRecord{
		ID:        a.ID.String(),
		Email:     a.Email,
		Username:  a.Username,
		Confirmed: a.Confirmed,
	}
}

// Invitation is the append only audit record of an issuance
type Invitation struct {
	bun.BaseModel `bun:"table:invitations,alias:inv"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id"`
	Email         string    `bun:"email,notnull" json:"email"`
	Token         string    `bun:"token,notnull" json:"-"`
	AccountID     uuid.UUID `bun:"account_id,notnull,type:uuid" json:"account_id"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
	ExpiresAt     time.Time `bun:"expires_at,notnull" json:"expires_at"`
}

// Expired reports whether the invitation window has closed at t
func (i *Invitation) Expired(t time.Time) bool {
	return t.After(i.ExpiresAt)
}

// AdminRole is a role an admin identity can be assigned to
type AdminRole struct {
	bun.BaseModel `bun:"table:admin_roles,alias:arl"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id"`
	Code          string    `bun:"code,notnull,unique" json:"code"`
	Name          string    `bun:"name,notnull" json:"name"`
}

// AdminIdentity mirrors an account in the administrative user store
type AdminIdentity struct {
	bun.BaseModel     `bun:"table:admin_users,alias:adm"`
	ID                uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id"`
	Email             string     `bun:"email,notnull,unique" json:"email"`
	Username          string     `bun:"username" json:"username,omitempty"`
	RegistrationToken *string    `bun:"registration_token" json:"-"`
	RoleID            uuid.UUID  `bun:"role_id,notnull,type:uuid" json:"role_id"`
	IsActive          bool       `bun:"is_active,notnull" json:"is_active"`
	Blocked           bool       `bun:"blocked,notnull" json:"blocked"`
	CreatedAt         *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// NormalizeEmail is the canonical form we store and compare emails in
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
