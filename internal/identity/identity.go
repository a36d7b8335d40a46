// Package identity maps the identifiers a tenant may arrive with onto one
// canonical tenant key.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/radiusdt/creatorpulse/internal/storage"
)

// ErrEmptyTenantID is returned for blank identifiers.
var ErrEmptyTenantID = errors.New("tenant id is empty")

// AliasStore looks up the canonical tenant for an alias. Unknown aliases
// return storage.ErrNotFound.
type AliasStore interface {
	LookupAlias(ctx context.Context, alias string) (string, error)
}

// Resolver resolves raw tenant identifiers.
type Resolver struct {
	aliases AliasStore
	logger  *zap.Logger
}

// NewResolver creates a resolver. A nil store resolves every id to itself.
func NewResolver(aliases AliasStore, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{aliases: aliases, logger: logger}
}

// Canonical returns the single key every metric query for rawID must use.
// Ids without an alias resolve to themselves after trimming.
func (r *Resolver) Canonical(ctx context.Context, rawID string) (string, error) {
	id := strings.TrimSpace(rawID)
	if id == "" {
		return "", ErrEmptyTenantID
	}
	if r.aliases == nil {
		return id, nil
	}

	canonical, err := r.aliases.LookupAlias(ctx, id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return id, nil
	case err != nil:
		return "", fmt.Errorf("failed to resolve tenant alias: %w", err)
	}

	canonical = strings.TrimSpace(canonical)
	if canonical == "" {
		return id, nil
	}
	if canonical != id {
		r.logger.Debug("Resolved tenant alias", zap.String("canonical", canonical))
	}
	return canonical, nil
}

// InMemoryAliasStore implements AliasStore.
type InMemoryAliasStore struct {
	mu      sync.RWMutex
	aliases map[string]string
}

func NewInMemoryAliasStore() *InMemoryAliasStore {
	return &InMemoryAliasStore{aliases: make(map[string]string)}
}

// Put maps alias onto tenantID.
func (s *InMemoryAliasStore) Put(alias, tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aliases[alias] = tenantID
}

func (s *InMemoryAliasStore) LookupAlias(ctx context.Context, alias string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.aliases[alias]
	if !ok {
		return "", storage.ErrNotFound
	}
	return id, nil
}

// PostgresAliasStore implements AliasStore on the tenant_aliases table.
type PostgresAliasStore struct {
	pool *pgxpool.Pool
}

func NewPostgresAliasStore(pool *pgxpool.Pool) *PostgresAliasStore {
	return &PostgresAliasStore{pool: pool}
}

func (s *PostgresAliasStore) LookupAlias(ctx context.Context, alias string) (string, error) {
	var tenantID string
	err := s.pool.QueryRow(ctx, `
		SELECT tenant_id FROM tenant_aliases WHERE alias = $1
	`, alias).Scan(&tenantID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up alias: %w", err)
	}
	return tenantID, nil
}

// PutAlias maps alias onto tenantID, replacing any previous mapping.
func (s *PostgresAliasStore) PutAlias(ctx context.Context, alias, tenantID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tenant_aliases (alias, tenant_id) VALUES ($1, $2)
		ON CONFLICT (alias) DO UPDATE SET tenant_id = EXCLUDED.tenant_id
	`, alias, tenantID)
	if err != nil {
		return fmt.Errorf("failed to store alias: %w", err)
	}
	return nil
}
