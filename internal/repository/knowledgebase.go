package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/recall/internal/domain"
)

// KnowledgebaseRepository persists knowledgebase metadata and answers the
// engine's routing questions (shared flag, admin tenant, embedding dimension).
type KnowledgebaseRepository struct {
	pool *pgxpool.Pool
}

func NewKnowledgebaseRepository(pool *pgxpool.Pool) *KnowledgebaseRepository {
	return &KnowledgebaseRepository{pool: pool}
}

func (r *KnowledgebaseRepository) Create(ctx context.Context, kb *domain.Knowledgebase) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO knowledgebases (id, tenant_id, name, embedding_dim, shared, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		kb.ID, kb.TenantID, kb.Name, kb.EmbeddingDim, kb.Shared, kb.CreatedAt,
	)
	return err
}

func (r *KnowledgebaseRepository) GetByID(ctx context.Context, id string) (*domain.Knowledgebase, error) {
	var kb domain.Knowledgebase
	err := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, name, embedding_dim, shared, created_at
		 FROM knowledgebases WHERE id = $1`,
		id,
	).Scan(&kb.ID, &kb.TenantID, &kb.Name, &kb.EmbeddingDim, &kb.Shared, &kb.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrKnowledgebaseNotFound
		}
		return nil, err
	}
	return &kb, nil
}

func (r *KnowledgebaseRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Knowledgebase, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, name, embedding_dim, shared, created_at
		 FROM knowledgebases WHERE tenant_id = $1 ORDER BY created_at DESC`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var kbs []*domain.Knowledgebase
	for rows.Next() {
		var kb domain.Knowledgebase
		if err := rows.Scan(&kb.ID, &kb.TenantID, &kb.Name, &kb.EmbeddingDim, &kb.Shared, &kb.CreatedAt); err != nil {
			return nil, err
		}
		kbs = append(kbs, &kb)
	}
	return kbs, rows.Err()
}

func (r *KnowledgebaseRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM knowledgebases WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrKnowledgebaseNotFound
	}
	return nil
}

// IsShared reports whether a knowledgebase is shared across tenants.
func (r *KnowledgebaseRepository) IsShared(ctx context.Context, kbID string) (bool, error) {
	var shared bool
	err := r.pool.QueryRow(ctx,
		`SELECT shared FROM knowledgebases WHERE id = $1`,
		kbID,
	).Scan(&shared)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, domain.ErrKnowledgebaseNotFound
		}
		return false, err
	}
	return shared, nil
}

// AdminTenantID returns the tenant that hosts shared knowledgebases.
func (r *KnowledgebaseRepository) AdminTenantID(ctx context.Context) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx,
		`SELECT id FROM tenants WHERE is_admin ORDER BY created_at ASC LIMIT 1`,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrAdminTenantNotFound
		}
		return "", err
	}
	return id, nil
}

// EmbeddingDim returns the embedding dimension of a knowledgebase.
func (r *KnowledgebaseRepository) EmbeddingDim(ctx context.Context, kbID string) (int, error) {
	var dim int
	err := r.pool.QueryRow(ctx,
		`SELECT embedding_dim FROM knowledgebases WHERE id = $1`,
		kbID,
	).Scan(&dim)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrKnowledgebaseNotFound
		}
		return 0, err
	}
	return dim, nil
}
