package repository

import (
	"context"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"

	invite "github.com/goliatone/go-auth-invite"
)

// NewRepositoryManager returns the registration repositories over db
func NewRepositoryManager(db *bun.DB) invite.RepositoryManager {
	return invite.NewRepositoryManager(db)
}

func registerModels() {
	persistence.RegisterModel((*invite.Account)(nil))
	persistence.RegisterModel((*invite.Invitation)(nil))
	persistence.RegisterModel((*invite.AdminRole)(nil))
	persistence.RegisterModel((*invite.AdminIdentity)(nil))
}

// Bootstrap opens the database, applies the migrations for its dialect
// and returns the repository manager bound to it.
func Bootstrap(ctx context.Context, opts Options) (*persistence.Client, invite.RepositoryManager, error) {
	client, err := Open(opts)
	if err != nil {
		return nil, nil, err
	}

	client.RegisterDialectMigrations(invite.GetMigrationsFS(), invite.MigrationOptions()...)

	if err := client.ValidateDialects(ctx); err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	// disabled migrations are a no-op
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	repo := NewRepositoryManager(client.DB())
	if err := repo.Validate(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	return client, repo, nil
}
