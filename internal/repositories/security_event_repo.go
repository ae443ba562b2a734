package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hostall/hostguard/internal/database"
	"github.com/hostall/hostguard/internal/models"
)

// SecurityEventRepository mirrors guard security events to the store.
// Writes are best-effort; callers decide whether failures matter.
type SecurityEventRepository struct {
	db *database.DB
}

// NewSecurityEventRepository creates a new SecurityEventRepository
func NewSecurityEventRepository(db *database.DB) *SecurityEventRepository {
	return &SecurityEventRepository{db: db}
}

// Append inserts a security event
func (r *SecurityEventRepository) Append(ctx context.Context, event *models.SecurityEvent) error {
	query := `
		INSERT INTO security_events (id, event_type, user_email, success, details, user_agent, client_ip, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	var metadata []byte
	if event.Metadata != nil {
		var err error
		metadata, err = json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal event metadata: %w", err)
		}
	}

	_, err := r.db.Pool.Exec(ctx, query,
		event.ID,
		event.Type,
		event.UserEmail,
		event.Success,
		event.Details,
		event.UserAgent,
		event.ClientIP,
		metadata,
		event.Timestamp,
	)
	return database.MapPostgresError(err)
}
