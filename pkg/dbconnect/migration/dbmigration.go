package migration

import (
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

type MigrationInterface interface {
	UpMigration(*sql.DB) error
}

// GooseMigration накатывает SQL-миграции goose из встроенной файловой системы.
type GooseMigration struct {
	FS  fs.FS
	Dir string
	log *zap.Logger
}

func NewGooseMigration(fsys fs.FS, dir string, log *zap.Logger) *GooseMigration {
	if dir == "" {
		dir = "."
	}
	return &GooseMigration{FS: fsys, Dir: dir, log: log.Named("migration")}
}

func (m *GooseMigration) UpMigration(db *sql.DB) error {
	goose.SetBaseFS(m.FS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	m.log.Info("checking for pending migrations", zap.String("dir", m.Dir))

	if err := goose.Up(db, m.Dir); err != nil {
		m.log.Error("failed to run migrations", zap.Error(err))
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	m.log.Info("migrations completed", zap.Int64("version", version))
	return nil
}
