package invite

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Validate() error
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Accounts() Accounts
	Invitations() Invitations
	AdminIdentities() AdminIdentities
}

type mngr struct {
	db          *bun.DB
	accounts    Accounts
	invitations Invitations
	admins      AdminIdentities
}

// NewRepositoryManager wires the bun repositories over a single database
func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:          db,
		accounts:    NewAccountsRepository(db),
		invitations: NewInvitationsRepository(db),
		admins:      NewAdminIdentitiesRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	if m.invitations == nil {
		return errors.New("repository invitations should be initialized")
	}

	if m.admins == nil {
		return errors.New("repository admin identities should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Accounts() Accounts {
	return m.accounts
}

func (m mngr) Invitations() Invitations {
	return m.invitations
}

func (m mngr) AdminIdentities() AdminIdentities {
	return m.admins
}
