package invite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// IssueCredentialSQL stores a new pending credential, replacing any earlier
// one. Confirmed accounts are left untouched.
var IssueCredentialSQL = `UPDATE "accounts"
SET
	"confirmation_token" = ?,
	"credential_issued_at" = ?,
	"confirmed" = FALSE,
	"updated_at" = ?
WHERE
	"id" = ?
AND "confirmed" = FALSE;`

// ActivateAccountSQL consumes the credential. It only matches while the
// credential we read is still the live one, so concurrent confirmations
// of the same token see exactly one affected row between them.
var ActivateAccountSQL = `UPDATE "accounts"
SET
	"password_hash" = ?,
	"username" = ?,
	"confirmed" = TRUE,
	"confirmation_token" = NULL,
	"credential_issued_at" = NULL,
	"updated_at" = ?
WHERE
	"id" = ?
AND "confirmation_token" = ?
AND "confirmed" = FALSE;`

// Activation is the conditional write that moves PENDING to ACTIVE
type Activation struct {
	AccountID    uuid.UUID
	Credential   string
	PasswordHash string
	Username     string
	ActivatedAt  time.Time
}

// Accounts is the account store the registration flow runs against
type Accounts interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	FindByCredential(ctx context.Context, credential string) (*Account, error)
	FindPending(ctx context.Context, credential, email string) (*Account, error)
	FindPendingTx(ctx context.Context, tx bun.IDB, credential, email string) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error)
	IssueCredentialTx(ctx context.Context, tx bun.IDB, id uuid.UUID, credential string, issuedAt time.Time) error
	ActivateTx(ctx context.Context, tx bun.IDB, activation Activation) error
}

type accounts struct {
	repository.Repository[*Account]
	db *bun.DB
}

var _ Accounts = (*accounts)(nil)

// NewAccountsRepository returns the bun backed account store
func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accounts{
		Repository: repo,
		db:         db,
	}
}

func (a *accounts) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	record := &Account{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, "id", id.String())
	}
	return record, nil
}

func (a *accounts) GetByEmail(ctx context.Context, email string) (*Account, error) {
	record := &Account{}
	err := a.db.NewSelect().
		Model(record).
		Where("lower(?TableAlias.email) = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, "email", email)
	}
	return record, nil
}

func (a *accounts) FindByCredential(ctx context.Context, credential string) (*Account, error) {
	record := &Account{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.confirmation_token = ?", credential).
		Where("?TableAlias.confirmed = ?", false).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, "credential", "<redacted>")
	}
	return record, nil
}

func (a *accounts) FindPending(ctx context.Context, credential, email string) (*Account, error) {
	return a.FindPendingTx(ctx, a.db, credential, email)
}

func (a *accounts) FindPendingTx(ctx context.Context, tx bun.IDB, credential, email string) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.confirmation_token = ?", credential).
		Where("lower(?TableAlias.email) = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, "email", email)
	}
	return record, nil
}

func (a *accounts) CreateTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error) {
	prepareAccountDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *accounts) IssueCredentialTx(ctx context.Context, tx bun.IDB, id uuid.UUID, credential string, issuedAt time.Time) error {
	res, err := tx.NewRaw(IssueCredentialSQL, credential, issuedAt, issuedAt, id.String()).Exec(ctx)
	if err != nil {
		return err
	}
	return expectRows(res, "id", id.String())
}

func (a *accounts) ActivateTx(ctx context.Context, tx bun.IDB, act Activation) error {
	res, err := tx.NewRaw(
		ActivateAccountSQL,
		act.PasswordHash,
		act.Username,
		act.ActivatedAt,
		act.AccountID.String(),
		act.Credential,
	).Exec(ctx)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return ErrActivationConflict
	}

	return nil
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	record.Email = NormalizeEmail(record.Email)
	record.Username = strings.TrimSpace(record.Username)

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	now := time.Now()
	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}
	if record.UpdatedAt == nil {
		record.UpdatedAt = &now
	}
}

// IsRecordNotFound reports whether err means the lookup matched nothing
func IsRecordNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err)
}

func notFoundOr(err error, key, value string) error {
	if IsRecordNotFound(err) {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				key: value,
			})
	}
	return err
}

func expectRows(res sql.Result, key, value string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				key: value,
			})
	}
	return nil
}
