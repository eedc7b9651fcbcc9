package invite

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// MigrationsSourceLabel names the embedded migrations in dialect reports
const MigrationsSourceLabel = "data/sql/migrations"

// GetMigrationsFS returns the migration files for this package. SQL lives
// in one directory per dialect: postgres/ and sqlite/.
func GetMigrationsFS() fs.FS {
	sub, err := fs.Sub(migrationsFS, MigrationsSourceLabel)
	if err != nil {
		return migrationsFS
	}
	return sub
}

// MigrationOptions registers the embedded migrations for postgres and
// sqlite. Missing coverage for either dialect is reported as an error.
func MigrationOptions() []persistence.DialectMigrationOption {
	return []persistence.DialectMigrationOption{
		persistence.WithDialectSourceLabel(MigrationsSourceLabel),
		persistence.WithValidationTargets("postgres", "sqlite"),
		persistence.WithDialectValidator(dialectCoverageError),
	}
}

// Migrate applies the embedded migrations matching the dialect of db
func Migrate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrations := persistence.NewMigrations()
	migrations.RegisterDialectMigrations(GetMigrationsFS(), MigrationOptions()...)

	if err := migrations.ValidateDialects(ctx, db); err != nil {
		return nil, err
	}

	if err := migrations.Migrate(ctx, db); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "apply migrations")
	}

	return migrations.Report(), nil
}

func dialectCoverageError(_ context.Context, result persistence.DialectValidationResult) error {
	dialects := make([]string, 0, len(result.MissingDialects))
	for dialect := range result.MissingDialects {
		dialects = append(dialects, dialect)
	}
	sort.Strings(dialects)

	return goerrors.New(
		fmt.Sprintf("migrations in %s missing for: %s", result.SourceLabel, strings.Join(dialects, ", ")),
		goerrors.CategoryInternal,
	).WithTextCode("MIGRATIONS_DIALECT_MISSING").
		WithMetadata(map[string]any{"missing": result.MissingDialects})
}
