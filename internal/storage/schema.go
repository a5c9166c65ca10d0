package storage

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/sirupsen/logrus"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates the tables and indexes if they do not exist.
// Every statement is idempotent, so repeated startups are safe.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}

	logrus.Debug("Database schema ensured")
	return nil
}
