package contact

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashureev/chameleon/internal/chat"
	"github.com/ashureev/chameleon/internal/domain"
	"github.com/ashureev/chameleon/internal/identity"
	"github.com/ashureev/chameleon/internal/store"
)

// Recorder persists every lead before forwarding it. With no forwarder the
// lead is only recorded and reported as delivered.
type Recorder struct {
	repo    store.Repository
	forward chat.ContactSender
	logger  *slog.Logger
}

// NewRecorder returns a Recorder. forward may be nil.
func NewRecorder(repo store.Repository, forward chat.ContactSender, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{repo: repo, forward: forward, logger: logger}
}

// SendContact implements chat.ContactSender.
func (r *Recorder) SendContact(ctx context.Context, info domain.ContactInfo) (bool, error) {
	lead := &domain.Lead{
		VisitorID: identity.VisitorIDFromContext(ctx),
		SessionID: identity.SessionIDFromContext(ctx),
		Contact:   info,
		Status:    domain.LeadPending,
	}
	if r.forward == nil {
		lead.Status = domain.LeadRecorded
	}
	if err := r.repo.SaveLead(ctx, lead); err != nil {
		return false, fmt.Errorf("record lead: %w", err)
	}

	if r.forward == nil {
		r.logger.Info("Lead recorded", "lead_id", lead.ID, "visitor_id", lead.VisitorID)
		return true, nil
	}

	ok, sendErr := r.forward.SendContact(ctx, info)
	status := domain.LeadDelivered
	if sendErr != nil || !ok {
		status = domain.LeadFailed
	}

	// The lead is kept even if the status update fails.
	if err := r.repo.UpdateLeadStatus(context.WithoutCancel(ctx), lead.ID, status); err != nil {
		r.logger.Warn("Failed to update lead status", "lead_id", lead.ID, "status", status, "error", err)
	}

	r.logger.Info("Lead forwarded", "lead_id", lead.ID, "visitor_id", lead.VisitorID, "status", status)
	return ok, sendErr
}
