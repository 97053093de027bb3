// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ashureev/chameleon/internal/domain"
)

// ErrLeadNotFound is returned when a lead update matches no row.
var ErrLeadNotFound = errors.New("lead not found")

// Repository defines the interface for persisting visitors and leads.
type Repository interface {
	// GetVisitor retrieves a visitor by id. It returns nil, nil when absent.
	GetVisitor(ctx context.Context, visitorID string) (*domain.Visitor, error)

	// UpsertVisitor creates or updates a visitor record.
	UpsertVisitor(ctx context.Context, visitor *domain.Visitor) error

	// UpdateLastSeen updates the last_seen_at timestamp for a visitor.
	UpdateLastSeen(ctx context.Context, visitorID string, lastSeen time.Time) error

	// SetVisitorLanguage records the last language chosen by a visitor.
	SetVisitorLanguage(ctx context.Context, visitorID, language string) error

	// SaveLead inserts a lead and sets its ID.
	SaveLead(ctx context.Context, lead *domain.Lead) error

	// UpdateLeadStatus records the delivery outcome of a lead.
	UpdateLeadStatus(ctx context.Context, id int64, status domain.LeadStatus) error

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
