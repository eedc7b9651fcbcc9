package invite

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Invitations is the append only invitation audit store
type Invitations interface {
	CreateTx(ctx context.Context, tx bun.IDB, invitation *Invitation) (*Invitation, error)
	List(ctx context.Context) ([]*Invitation, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*Invitation, error)
}

type invitations struct {
	repository.Repository[*Invitation]
	db *bun.DB
}

var _ Invitations = (*invitations)(nil)

// NewInvitationsRepository returns the bun backed invitation store
func NewInvitationsRepository(db *bun.DB) Invitations {
	repo := repository.NewRepository[*Invitation](db, repository.ModelHandlers[*Invitation]{
		NewRecord: func() *Invitation { return &Invitation{} },
		GetID: func(i *Invitation) uuid.UUID {
			if i == nil {
				return uuid.Nil
			}
			return i.ID
		},
		SetID: func(i *Invitation, id uuid.UUID) {
			if i != nil {
				i.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token"
		},
	})

	return &invitations{
		Repository: repo,
		db:         db,
	}
}

func (r *invitations) CreateTx(ctx context.Context, tx bun.IDB, record *Invitation) (*Invitation, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	record.Email = NormalizeEmail(record.Email)
	return r.Repository.CreateTx(ctx, tx, record)
}

func (r *invitations) List(ctx context.Context) ([]*Invitation, error) {
	records := []*Invitation{}
	err := r.db.NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.created_at DESC").
		Scan(ctx)
	if err != nil && !IsRecordNotFound(err) {
		return nil, err
	}
	return records, nil
}

func (r *invitations) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*Invitation, error) {
	records := []*Invitation{}
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.account_id = ?", accountID.String()).
		OrderExpr("?TableAlias.created_at DESC").
		Scan(ctx)
	if err != nil && !IsRecordNotFound(err) {
		return nil, err
	}
	return records, nil
}
