package domain

import (
	"fmt"
	"time"
)

// Knowledgebase is a named collection of documents sharing one embedding
// model (and therefore one embedding dimension) and one index namespace.
type Knowledgebase struct {
	ID           string
	TenantID     string
	Name         string
	EmbeddingDim int
	Shared       bool
	CreatedAt    time.Time
}

// ValidateKnowledgebase validates a Knowledgebase instance
func ValidateKnowledgebase(kb *Knowledgebase) error {
	if kb == nil {
		return fmt.Errorf("knowledgebase cannot be nil")
	}

	if kb.ID == "" {
		return fmt.Errorf("knowledgebase ID is required")
	}

	if kb.TenantID == "" {
		return fmt.Errorf("knowledgebase TenantID is required")
	}

	if kb.Name == "" {
		return fmt.Errorf("knowledgebase Name is required")
	}

	if kb.EmbeddingDim <= 0 {
		return fmt.Errorf("knowledgebase EmbeddingDim must be greater than 0")
	}

	return nil
}
