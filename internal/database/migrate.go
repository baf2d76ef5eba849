package database

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

//go:embed schema.sql
var schema string

// Schema returns the DDL applied by Migrate
func Schema() string {
	return schema
}

// Migrate applies the schema. Statements are idempotent, so it runs on
// every start.
func Migrate(ctx context.Context, p *pgxpool.Pool) error {
	start := time.Now()
	if _, err := p.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	log.Info().Dur("duration", time.Since(start)).Msg("Database schema applied")
	return nil
}
