package database

import (
	"github.com/robalyx/termsgate/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	consent *models.ConsentModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		consent: models.NewConsent(db, logger),
	}
}

// Consent returns the consent record model repository.
func (r *Repository) Consent() *models.ConsentModel {
	return r.consent
}
