package gormdb

import (
	"context"
	"embed"
	"path"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// RunMigrations applies the embedded migrations for the dialect db was
// opened with.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	dialect, dir := "sqlite3", "sqlite"
	if db.Dialector.Name() == "postgres" {
		dialect, dir = "postgres", "postgres"
	}
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.UpContext(ctx, sqlDB, path.Join("migrations", dir)); err != nil {
		return err
	}

	return nil
}
