package domain

import (
	"fmt"
	"time"
)

// Tenant owns an index namespace. Shared knowledgebases are physically
// indexed under the administrative tenant's namespace.
type Tenant struct {
	ID        string
	Name      string
	IsAdmin   bool
	CreatedAt time.Time
}

// NewTenant creates a new Tenant instance
func NewTenant(id, name string, isAdmin bool, createdAt time.Time) *Tenant {
	return &Tenant{
		ID:        id,
		Name:      name,
		IsAdmin:   isAdmin,
		CreatedAt: createdAt,
	}
}

// ValidateTenant validates a Tenant instance
func ValidateTenant(t *Tenant) error {
	if t == nil {
		return fmt.Errorf("tenant cannot be nil")
	}

	if t.ID == "" {
		return fmt.Errorf("tenant ID is required")
	}

	if t.Name == "" {
		return fmt.Errorf("tenant Name is required")
	}

	return nil
}

// APIKey represents an API key for authentication
type APIKey struct {
	ID        string
	TenantID  string
	Name      string
	KeyHash   string // Never store plaintext keys
	CreatedAt time.Time
	RevokedAt *time.Time
}

// IsRevoked returns true if the API key has been revoked
func (a *APIKey) IsRevoked() bool {
	return a.RevokedAt != nil
}

// ValidateAPIKey validates an APIKey instance
func ValidateAPIKey(a *APIKey) error {
	if a == nil {
		return fmt.Errorf("api key cannot be nil")
	}

	if a.ID == "" {
		return fmt.Errorf("api key ID is required")
	}

	if a.TenantID == "" {
		return fmt.Errorf("api key TenantID is required")
	}

	if a.Name == "" {
		return fmt.Errorf("api key Name is required")
	}

	if a.KeyHash == "" {
		return fmt.Errorf("api key KeyHash is required")
	}

	return nil
}
