// internal/intake/service.go
package intake

import (
	"context"
	"encoding/json"

	"comms-portal/internal/approval"
	stderrors "comms-portal/internal/common/errors"
	"comms-portal/internal/common/logger"
	"comms-portal/internal/common/metrics"
	"comms-portal/internal/models"
)

// SubmissionCreator is the store surface intake needs.
type SubmissionCreator interface {
	Create(ctx context.Context, draft *models.SubmissionDraft, initialStatus string, requiresApproval, editorialReview bool, ministryID, coordinator *string) (*models.Submission, error)
}

// Indexer pushes submissions into the admin search index, best-effort.
type Indexer interface {
	Index(ctx context.Context, sub *models.Submission)
}

// Service handles public announcement form submissions: validate, route,
// persist, then fire side effects that must never block the submitter.
type Service struct {
	router   *approval.Router
	store    SubmissionCreator
	notifier approval.Notifier
	indexer  Indexer
	logger   logger.Logger
}

func NewService(router *approval.Router, store SubmissionCreator, notifier approval.Notifier, indexer Indexer, log logger.Logger) *Service {
	return &Service{
		router:   router,
		store:    store,
		notifier: notifier,
		indexer:  indexer,
		logger:   log.WithFields(map[string]interface{}{"component": "intake"}),
	}
}

// Submit validates the raw form payload, routes it, and persists the
// submission in its initial workflow state. Pending submissions additionally
// alert the approval coordinator.
func (s *Service) Submit(ctx context.Context, payload []byte) (*models.Submission, error) {
	var document map[string]interface{}
	if err := json.Unmarshal(payload, &document); err != nil {
		return nil, stderrors.NewInvalidArgumentError("malformed JSON payload")
	}
	if err := validatePayload(document); err != nil {
		return nil, stderrors.NewValidationFailedError(err.Error())
	}

	var draft models.SubmissionDraft
	if err := json.Unmarshal(payload, &draft); err != nil {
		return nil, stderrors.NewInvalidArgumentError("malformed JSON payload")
	}

	decision := s.router.Route(ctx, draft.Ministry)

	sub, err := s.store.Create(ctx, &draft,
		decision.InitialStatus(),
		decision.RequiresApproval,
		decision.EditorialReview,
		decision.MinistryID,
		decision.ApprovalCoordinator,
	)
	if err != nil {
		return nil, err
	}

	metrics.SubmissionsCreated.WithLabelValues(sub.ApprovalStatus).Inc()
	s.logger.Info("submission created", map[string]interface{}{
		"submissionId":     sub.ID,
		"ministry":         sub.Ministry,
		"initialStatus":    sub.ApprovalStatus,
		"requiresApproval": sub.RequiresApproval,
	})

	if sub.ApprovalStatus == models.StatusPending && s.notifier != nil {
		s.notifier.Notify(ctx, models.NotifyPending, sub, nil)
	}
	if s.indexer != nil {
		s.indexer.Index(ctx, sub)
	}

	return sub, nil
}
