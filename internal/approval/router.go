// internal/approval/router.go
package approval

import (
	"context"

	"comms-portal/internal/common/logger"
	"comms-portal/internal/models"
)

// MinistryResolver is the directory lookup the router depends on.
type MinistryResolver interface {
	Resolve(ctx context.Context, name string) (*models.Ministry, error)
}

// RoutingDecision is the router's verdict for a new submission. It is
// snapshotted onto the submission record at creation time and never revised.
type RoutingDecision struct {
	RequiresApproval    bool    `json:"requiresApproval"`
	MinistryID          *string `json:"ministryId"`
	ApprovalCoordinator *string `json:"approvalCoordinator"`
	CoordinatorPhone    *string `json:"coordinatorPhone,omitempty"`
	EditorialReview     bool    `json:"editorialReview"`
}

// Router decides, at submission time, whether a new announcement needs human
// approval and who owns that approval.
type Router struct {
	directory MinistryResolver
	logger    logger.Logger
}

func NewRouter(directory MinistryResolver, log logger.Logger) *Router {
	return &Router{
		directory: directory,
		logger:    log.WithFields(map[string]interface{}{"component": "approval-router"}),
	}
}

// Route resolves the submitted free-text ministry against the directory.
//
// Resolved + requiresApproval  -> pending queue, coordinator recorded.
// Resolved + no approval gate  -> auto-approved.
// Unresolved or blank          -> auto-approved, flagged for editorial review.
// Lookup failure               -> fail open: auto-approved, warn-logged.
// Blocking a public submission on a directory outage is worse than
// occasionally skipping an approval gate.
func (r *Router) Route(ctx context.Context, ministryText string) RoutingDecision {
	m, err := r.directory.Resolve(ctx, ministryText)
	if err != nil {
		r.logger.Warn("ministry lookup failed, routing without approval gate", map[string]interface{}{
			"ministry": ministryText,
			"error":    err,
		})
		return RoutingDecision{RequiresApproval: false, EditorialReview: true}
	}

	if m == nil {
		// Custom or unlisted ministry. The communications team reviews these
		// editorially; that review is not part of the approval state machine.
		return RoutingDecision{RequiresApproval: false, EditorialReview: true}
	}

	decision := RoutingDecision{
		MinistryID: &m.ID,
	}
	if m.RequiresApproval {
		decision.RequiresApproval = true
		if m.ApprovalCoordinator != "" {
			coordinator := m.ApprovalCoordinator
			decision.ApprovalCoordinator = &coordinator
		}
		if m.CoordinatorPhone != "" {
			phone := m.CoordinatorPhone
			decision.CoordinatorPhone = &phone
		}
	}
	return decision
}

// InitialStatus maps a routing decision to the submission's starting state.
// Auto-approved submissions skip the queue but carry the approved terminal
// state for uniform querying.
func (d RoutingDecision) InitialStatus() string {
	if d.RequiresApproval {
		return models.StatusPending
	}
	return models.StatusApproved
}
