package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/recall/internal/domain"
)

type fakeUUIDGenerator struct {
	ids  []string
	next int
}

func (g *fakeUUIDGenerator) NewString() string {
	id := g.ids[g.next%len(g.ids)]
	g.next++
	return id
}

type fakeTenantRepo struct {
	tenants map[string]*domain.Tenant
	err     error
}

func newFakeTenantRepo() *fakeTenantRepo {
	return &fakeTenantRepo{tenants: make(map[string]*domain.Tenant)}
}

func (r *fakeTenantRepo) Create(ctx context.Context, tenant *domain.Tenant) error {
	if r.err != nil {
		return r.err
	}
	r.tenants[tenant.ID] = tenant
	return nil
}

func (r *fakeTenantRepo) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	if t, ok := r.tenants[id]; ok {
		return t, nil
	}
	return nil, domain.ErrTenantNotFound
}

func (r *fakeTenantRepo) GetByName(ctx context.Context, name string) (*domain.Tenant, error) {
	for _, t := range r.tenants {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, domain.ErrTenantNotFound
}

func (r *fakeTenantRepo) Delete(ctx context.Context, id string) error {
	delete(r.tenants, id)
	return nil
}

type fakeAPIKeyRepo struct {
	keys map[string]*domain.APIKey
	err  error
}

func newFakeAPIKeyRepo() *fakeAPIKeyRepo {
	return &fakeAPIKeyRepo{keys: make(map[string]*domain.APIKey)}
}

func (r *fakeAPIKeyRepo) Create(ctx context.Context, key *domain.APIKey) error {
	if r.err != nil {
		return r.err
	}
	r.keys[key.ID] = key
	return nil
}

func (r *fakeAPIKeyRepo) GetByID(ctx context.Context, id string) (*domain.APIKey, error) {
	if k, ok := r.keys[id]; ok {
		return k, nil
	}
	return nil, domain.ErrAPIKeyNotFound
}

func (r *fakeAPIKeyRepo) GetByHash(ctx context.Context, hash string) (*domain.APIKey, error) {
	for _, k := range r.keys {
		if k.KeyHash == hash {
			return k, nil
		}
	}
	return nil, domain.ErrAPIKeyNotFound
}

func (r *fakeAPIKeyRepo) GetByTenantID(ctx context.Context, tenantID string) ([]*domain.APIKey, error) {
	var out []*domain.APIKey
	for _, k := range r.keys {
		if k.TenantID == tenantID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (r *fakeAPIKeyRepo) Revoke(ctx context.Context, id string) error {
	k, ok := r.keys[id]
	if !ok {
		return domain.ErrAPIKeyNotFound
	}
	now := time.Now().UTC()
	k.RevokedAt = &now
	return nil
}

func (r *fakeAPIKeyRepo) Delete(ctx context.Context, id string) error {
	delete(r.keys, id)
	return nil
}

func newTestAuthService() (*AuthService, *fakeTenantRepo, *fakeAPIKeyRepo) {
	tenants := newFakeTenantRepo()
	keys := newFakeAPIKeyRepo()
	gen := &fakeUUIDGenerator{ids: []string{"id-1", "id-2", "id-3", "id-4"}}
	return NewAuthService(tenants, keys, gen), tenants, keys
}

func TestCreateTenant(t *testing.T) {
	svc, tenants, _ := newTestAuthService()

	tenant, err := svc.CreateTenant(context.Background(), "acme", true)
	require.NoError(t, err)

	assert.Equal(t, "id-1", tenant.ID)
	assert.Equal(t, "acme", tenant.Name)
	assert.True(t, tenant.IsAdmin)
	assert.False(t, tenant.CreatedAt.IsZero())
	assert.Contains(t, tenants.tenants, "id-1")
}

func TestCreateTenantEmptyName(t *testing.T) {
	svc, _, _ := newTestAuthService()

	_, err := svc.CreateTenant(context.Background(), "", false)
	require.Error(t, err)

	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodeValidation, derr.Code)
}

func TestCreateAPIKey(t *testing.T) {
	svc, _, keys := newTestAuthService()
	tenant, err := svc.CreateTenant(context.Background(), "acme", false)
	require.NoError(t, err)

	token, err := svc.CreateAPIKey(context.Background(), tenant.ID, "ci")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(token, "rcl_"))
	assert.Len(t, token, len("rcl_")+64)
	assert.True(t, IsValidAPIToken(token))

	// Only the hash is stored.
	require.Len(t, keys.keys, 1)
	for _, k := range keys.keys {
		assert.NotEqual(t, token, k.KeyHash)
		assert.Len(t, k.KeyHash, 64)
		assert.Equal(t, tenant.ID, k.TenantID)
		assert.Equal(t, "ci", k.Name)
	}
}

func TestCreateAPIKeyUnknownTenant(t *testing.T) {
	svc, _, _ := newTestAuthService()

	_, err := svc.CreateAPIKey(context.Background(), "missing", "ci")
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)
}

func TestCreateAPIKeyValidation(t *testing.T) {
	svc, _, _ := newTestAuthService()

	_, err := svc.CreateAPIKey(context.Background(), "", "ci")
	require.Error(t, err)

	_, err = svc.CreateAPIKey(context.Background(), "t1", "")
	require.Error(t, err)
}

func TestCreateAPIKeyWithToken(t *testing.T) {
	svc, _, keys := newTestAuthService()
	tenant, err := svc.CreateTenant(context.Background(), "acme", false)
	require.NoError(t, err)

	token := "rcl_" + strings.Repeat("ab", 32)
	require.NoError(t, svc.CreateAPIKeyWithToken(context.Background(), tenant.ID, "bootstrap", token))
	require.Len(t, keys.keys, 1)

	tenantID, err := svc.ValidateAPIKey(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, tenantID)
}

func TestCreateAPIKeyWithTokenRejectsBadFormat(t *testing.T) {
	svc, _, _ := newTestAuthService()
	tenant, err := svc.CreateTenant(context.Background(), "acme", false)
	require.NoError(t, err)

	err = svc.CreateAPIKeyWithToken(context.Background(), tenant.ID, "bootstrap", "sk-not-ours")
	require.Error(t, err)

	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodeValidation, derr.Code)
}

func TestValidateAPIKey(t *testing.T) {
	svc, _, _ := newTestAuthService()
	tenant, err := svc.CreateTenant(context.Background(), "acme", false)
	require.NoError(t, err)
	token, err := svc.CreateAPIKey(context.Background(), tenant.ID, "ci")
	require.NoError(t, err)

	tenantID, err := svc.ValidateAPIKey(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, tenantID)
}

func TestValidateAPIKeyRejectsMalformed(t *testing.T) {
	svc, _, _ := newTestAuthService()

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"wrong prefix", "key_" + strings.Repeat("a", 64)},
		{"short hex", "rcl_" + strings.Repeat("a", 32)},
		{"non-hex", "rcl_" + strings.Repeat("z", 64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAPIKey(context.Background(), tt.token)
			assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)
		})
	}
}

func TestValidateAPIKeyUnknownToken(t *testing.T) {
	svc, _, _ := newTestAuthService()

	_, err := svc.ValidateAPIKey(context.Background(), "rcl_"+strings.Repeat("a", 64))
	assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)
}

func TestValidateAPIKeyRevoked(t *testing.T) {
	svc, _, keys := newTestAuthService()
	tenant, err := svc.CreateTenant(context.Background(), "acme", false)
	require.NoError(t, err)
	token, err := svc.CreateAPIKey(context.Background(), tenant.ID, "ci")
	require.NoError(t, err)

	for id := range keys.keys {
		require.NoError(t, svc.RevokeAPIKey(context.Background(), id))
	}

	_, err = svc.ValidateAPIKey(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrAPIKeyRevoked)
}

func TestListAPIKeys(t *testing.T) {
	svc, _, _ := newTestAuthService()
	tenant, err := svc.CreateTenant(context.Background(), "acme", false)
	require.NoError(t, err)

	_, err = svc.CreateAPIKey(context.Background(), tenant.ID, "one")
	require.NoError(t, err)
	_, err = svc.CreateAPIKey(context.Background(), tenant.ID, "two")
	require.NoError(t, err)

	listed, err := svc.ListAPIKeys(context.Background(), tenant.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	_, err = svc.ListAPIKeys(context.Background(), "")
	assert.Error(t, err)
}

func TestIsValidAPIToken(t *testing.T) {
	assert.True(t, IsValidAPIToken("rcl_"+strings.Repeat("0", 64)))
	assert.True(t, IsValidAPIToken("rcl_"+strings.Repeat("F", 64)))
	assert.False(t, IsValidAPIToken("rcl_"))
	assert.False(t, IsValidAPIToken(strings.Repeat("a", 68)))
}
