//go:build integration

package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/recall/internal/domain"
)

func TestKnowledgebaseRepositoryCRUD(t *testing.T) {
	ctx, pool := newTestDB(t)
	repo := NewKnowledgebaseRepository(pool)
	tenantID := seedTenant(t, pool)

	kb := &domain.Knowledgebase{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		Name:         "docs",
		EmbeddingDim: 1536,
		Shared:       false,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.Create(ctx, kb))

	got, err := repo.GetByID(ctx, kb.ID)
	require.NoError(t, err)
	assert.Equal(t, kb.Name, got.Name)
	assert.Equal(t, 1536, got.EmbeddingDim)

	listed, err := repo.ListByTenant(ctx, tenantID)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	require.NoError(t, repo.Delete(ctx, kb.ID))
	_, err = repo.GetByID(ctx, kb.ID)
	assert.ErrorIs(t, err, domain.ErrKnowledgebaseNotFound)
}

func TestKnowledgebaseRepositoryResolver(t *testing.T) {
	ctx, pool := newTestDB(t)
	repo := NewKnowledgebaseRepository(pool)
	tenants := NewTenantRepository(pool)

	admin := &domain.Tenant{ID: uuid.NewString(), Name: "admin", IsAdmin: true, CreatedAt: time.Now().UTC()}
	require.NoError(t, tenants.Create(ctx, admin))
	regular := &domain.Tenant{ID: uuid.NewString(), Name: "acme", CreatedAt: time.Now().UTC().Add(time.Second)}
	require.NoError(t, tenants.Create(ctx, regular))

	shared := &domain.Knowledgebase{
		ID: uuid.NewString(), TenantID: admin.ID, Name: "public",
		EmbeddingDim: 768, Shared: true, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, shared))
	private := &domain.Knowledgebase{
		ID: uuid.NewString(), TenantID: regular.ID, Name: "mine",
		EmbeddingDim: 1536, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, private))

	isShared, err := repo.IsShared(ctx, shared.ID)
	require.NoError(t, err)
	assert.True(t, isShared)

	isShared, err = repo.IsShared(ctx, private.ID)
	require.NoError(t, err)
	assert.False(t, isShared)

	adminID, err := repo.AdminTenantID(ctx)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, adminID)

	dim, err := repo.EmbeddingDim(ctx, shared.ID)
	require.NoError(t, err)
	assert.Equal(t, 768, dim)

	_, err = repo.EmbeddingDim(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrKnowledgebaseNotFound)
}

func TestAdminTenantIDWithoutAdmin(t *testing.T) {
	ctx, pool := newTestDB(t)
	repo := NewKnowledgebaseRepository(pool)

	_, err := repo.AdminTenantID(ctx)
	assert.ErrorIs(t, err, domain.ErrAdminTenantNotFound)
}
