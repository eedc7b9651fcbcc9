package invite

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AdminIdentities is the administrative user store the mirror writes to
type AdminIdentities interface {
	GetByEmail(ctx context.Context, email string) (*AdminIdentity, error)
	Create(ctx context.Context, admin *AdminIdentity) (*AdminIdentity, error)
	RoleByCode(ctx context.Context, code string) (*AdminRole, error)
}

type adminIdentities struct {
	repository.Repository[*AdminIdentity]
	db *bun.DB
}

var _ AdminIdentities = (*adminIdentities)(nil)

// NewAdminIdentitiesRepository returns the bun backed admin store
func NewAdminIdentitiesRepository(db *bun.DB) AdminIdentities {
	repo := repository.NewRepository[*AdminIdentity](db, repository.ModelHandlers[*AdminIdentity]{
		NewRecord: func() *AdminIdentity { return &AdminIdentity{} },
		GetID: func(a *AdminIdentity) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *AdminIdentity, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &adminIdentities{
		Repository: repo,
		db:         db,
	}
}

func (r *adminIdentities) GetByEmail(ctx context.Context, email string) (*AdminIdentity, error) {
	record := &AdminIdentity{}
	err := r.db.NewSelect().
		Model(record).
		Where("lower(?TableAlias.email) = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, "email", email)
	}
	return record, nil
}

func (r *adminIdentities) Create(ctx context.Context, record *AdminIdentity) (*AdminIdentity, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt == nil {
		now := time.Now()
		record.CreatedAt = &now
	}
	record.Email = NormalizeEmail(record.Email)
	return r.Repository.CreateTx(ctx, r.db, record)
}

func (r *adminIdentities) RoleByCode(ctx context.Context, code string) (*AdminRole, error) {
	record := &AdminRole{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.code = ?", code).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, "code", code)
	}
	return record, nil
}
