package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration is one checksum-tracked, ordered schema change.
type Migration struct {
	Version   int
	Name      string
	SQL       string
	Checksum  string
	AppliedAt *time.Time
}

// Migrator applies go:embed'd SQL migrations through a checksum-tracked
// schema_migrations table: a two-tier approach where AutoMigrate handles
// model-expressible changes and this tracks raw SQL for everything else,
// run against the plain *sql.DB gorm exposes.
type Migrator struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMigrator builds a Migrator over s's underlying connection.
func NewMigrator(s *Store, logger *zap.Logger) (*Migrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return nil, fmt.Errorf("underlying sql.DB: %w", err)
	}
	return &Migrator{db: sqlDB, logger: logger}, nil
}

// Apply runs every pending migration in version order, inside its own
// transaction, verifying the checksum of migrations already applied.
func (m *Migrator) Apply(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			checksum TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	migrations, err := loadMigrations()
	if err != nil {
		return err
	}

	applied, err := m.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, mig := range migrations {
		if existing, ok := applied[mig.Version]; ok {
			if existing.Checksum != mig.Checksum {
				return fmt.Errorf("migration %d checksum mismatch: expected %s, got %s",
					mig.Version, existing.Checksum, mig.Checksum)
			}
			continue
		}
		if err := m.applyOne(ctx, mig); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migrator) appliedMigrations(ctx context.Context) (map[int]Migration, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version, name, checksum, applied_at FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]Migration)
	for rows.Next() {
		var mig Migration
		var appliedAt time.Time
		if err := rows.Scan(&mig.Version, &mig.Name, &mig.Checksum, &appliedAt); err != nil {
			return nil, fmt.Errorf("scan migration row: %w", err)
		}
		mig.AppliedAt = &appliedAt
		applied[mig.Version] = mig
	}
	return applied, rows.Err()
}

func (m *Migrator) applyOne(ctx context.Context, mig Migration) error {
	m.logger.Info("applying migration", zap.Int("version", mig.Version), zap.String("name", mig.Name))

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
		return fmt.Errorf("apply migration %d: %w", mig.Version, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, name, checksum) VALUES ($1, $2, $3)`,
		mig.Version, mig.Name, mig.Checksum); err != nil {
		return fmt.Errorf("record migration %d: %w", mig.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", mig.Version, err)
	}
	return nil
}

func loadMigrations() ([]Migration, error) {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	migrations := make([]Migration, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		parts := strings.SplitN(entry.Name(), "_", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid migration filename: %s", entry.Name())
		}
		version, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid migration version in %s: %w", entry.Name(), err)
		}

		content, err := migrationFiles.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		sum := sha256.Sum256(content)
		migrations = append(migrations, Migration{
			Version:  version,
			Name:     strings.TrimSuffix(parts[1], ".sql"),
			SQL:      string(content),
			Checksum: fmt.Sprintf("%x", sum),
		})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}
