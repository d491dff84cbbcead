package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// openSQL abre a conexão database/sql usada apenas pelo migrate e espera o banco subir
func openSQL(ctx context.Context, cfg DatabaseConfig, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	for i := 0; i < 30; i++ {
		if err := db.PingContext(ctx); err == nil {
			logger.Info("✅ Connected to checkout database (database/sql)")
			return db, nil
		}
		logger.Info("⏳ Waiting for database...", zap.Int("attempt", i+1), zap.Int("max", 30))
		time.Sleep(1 * time.Second)
	}

	db.Close()
	return nil, fmt.Errorf("failed to connect to database after 30 attempts")
}

// runMigrations cria o schema e, opcionalmente, carrega o catálogo de exemplo
func runMigrations(ctx context.Context, db *sql.DB, seed bool, logger *zap.Logger) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	logger.Info("📋 Schema applied")

	if seed {
		if _, err := tx.ExecContext(ctx, seedSQL); err != nil {
			return fmt.Errorf("failed to seed catalog: %w", err)
		}
		logger.Info("🌱 Catalog seeded")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}
