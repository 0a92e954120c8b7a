// internal/approval/engine.go
package approval

import (
	"context"
	"strings"

	stderrors "comms-portal/internal/common/errors"
	"comms-portal/internal/common/logger"
	"comms-portal/internal/common/metrics"
	"comms-portal/internal/models"
)

// TransitionStore is the persistence surface the engine drives. The store's
// transition methods are conditional updates; the engine never reads a status
// and writes it back in two steps.
type TransitionStore interface {
	Approve(ctx context.Context, id, approver string) (*models.Submission, error)
	Reject(ctx context.Context, id, approver, reason string) (*models.Submission, error)
	ListByStatus(ctx context.Context, status string) ([]models.Submission, error)
	CountsByStatus(ctx context.Context) (map[string]int, error)
}

// Notifier delivers workflow events to submitters and coordinators.
// Delivery is best-effort: implementations log failures and never propagate
// them, so a transition can't be rolled back by a mail outage.
type Notifier interface {
	Notify(ctx context.Context, kind string, sub *models.Submission, extra map[string]interface{})
}

// Indexer keeps the admin search index in step with transitions,
// best-effort.
type Indexer interface {
	Index(ctx context.Context, sub *models.Submission)
}

// ItemResult is the per-id outcome of a bulk operation.
type ItemResult struct {
	ID           string `json:"id"`
	OK           bool   `json:"ok"`
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// BulkResult aggregates per-item outcomes. Partial success is expected and
// the caller distinguishes "all N approved" from "M of N approved".
type BulkResult struct {
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Results   []ItemResult `json:"results"`
}

// Engine owns all legal status transitions and their side effects.
type Engine struct {
	store    TransitionStore
	notifier Notifier
	indexer  Indexer
	logger   logger.Logger
}

func NewEngine(store TransitionStore, notifier Notifier, indexer Indexer, log logger.Logger) *Engine {
	return &Engine{
		store:    store,
		notifier: notifier,
		indexer:  indexer,
		logger:   log.WithFields(map[string]interface{}{"component": "approval-engine"}),
	}
}

// Approve transitions a pending submission to approved and notifies the
// submitter. Legal only from pending.
func (e *Engine) Approve(ctx context.Context, id, approver string) (*models.Submission, error) {
	if strings.TrimSpace(approver) == "" {
		return nil, stderrors.NewInvalidArgumentError("approver identity is required")
	}

	sub, err := e.store.Approve(ctx, id, approver)
	if err != nil {
		metrics.TransitionsApplied.WithLabelValues("approve", string(stderrors.CodeOf(err))).Inc()
		return nil, err
	}

	metrics.TransitionsApplied.WithLabelValues("approve", "ok").Inc()
	e.logger.Info("submission approved", map[string]interface{}{
		"submissionId": id,
		"approvedBy":   approver,
	})

	e.notifier.Notify(ctx, models.NotifyApproved, sub, nil)
	if e.indexer != nil {
		e.indexer.Index(ctx, sub)
	}
	return sub, nil
}

// Reject transitions a pending submission to rejected. The reason is
// mandatory and validated before any mutation.
func (e *Engine) Reject(ctx context.Context, id, approver, reason string) (*models.Submission, error) {
	if strings.TrimSpace(approver) == "" {
		return nil, stderrors.NewInvalidArgumentError("approver identity is required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, stderrors.NewInvalidArgumentError("rejection reason must not be empty")
	}

	sub, err := e.store.Reject(ctx, id, approver, reason)
	if err != nil {
		metrics.TransitionsApplied.WithLabelValues("reject", string(stderrors.CodeOf(err))).Inc()
		return nil, err
	}

	metrics.TransitionsApplied.WithLabelValues("reject", "ok").Inc()
	e.logger.Info("submission rejected", map[string]interface{}{
		"submissionId": id,
		"rejectedBy":   approver,
	})

	e.notifier.Notify(ctx, models.NotifyRejected, sub, map[string]interface{}{
		"reason": reason,
	})
	if e.indexer != nil {
		e.indexer.Index(ctx, sub)
	}
	return sub, nil
}

// BulkApprove applies Approve independently to each id. One failed id does
// not roll back or abort the others.
func (e *Engine) BulkApprove(ctx context.Context, ids []string, approver string) (*BulkResult, error) {
	if strings.TrimSpace(approver) == "" {
		return nil, stderrors.NewInvalidArgumentError("approver identity is required")
	}
	if len(ids) == 0 {
		return nil, stderrors.NewInvalidArgumentError("no submission ids given")
	}

	result := &BulkResult{Results: make([]ItemResult, 0, len(ids))}
	for _, id := range ids {
		_, err := e.Approve(ctx, id, approver)
		result.Results = append(result.Results, toItemResult(id, err))
		if err != nil {
			result.Failed++
		} else {
			result.Succeeded++
		}
	}
	return result, nil
}

// BulkReject applies Reject to each id with one shared reason. The reason is
// validated once before any mutation, so a bad reason fails the whole call
// rather than leaving some items rejected and some not.
func (e *Engine) BulkReject(ctx context.Context, ids []string, approver, reason string) (*BulkResult, error) {
	if strings.TrimSpace(approver) == "" {
		return nil, stderrors.NewInvalidArgumentError("approver identity is required")
	}
	if len(ids) == 0 {
		return nil, stderrors.NewInvalidArgumentError("no submission ids given")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, stderrors.NewInvalidArgumentError("rejection reason must not be empty")
	}

	result := &BulkResult{Results: make([]ItemResult, 0, len(ids))}
	for _, id := range ids {
		_, err := e.Reject(ctx, id, approver, reason)
		result.Results = append(result.Results, toItemResult(id, err))
		if err != nil {
			result.Failed++
		} else {
			result.Succeeded++
		}
	}
	return result, nil
}

// ListByStatus returns the queue for one status, oldest submissions first.
func (e *Engine) ListByStatus(ctx context.Context, status string) ([]models.Submission, error) {
	return e.store.ListByStatus(ctx, status)
}

// Counts returns per-status submission totals.
func (e *Engine) Counts(ctx context.Context) (map[string]int, error) {
	return e.store.CountsByStatus(ctx)
}

func toItemResult(id string, err error) ItemResult {
	if err == nil {
		return ItemResult{ID: id, OK: true}
	}
	stdErr := stderrors.Normalize(err)
	return ItemResult{
		ID:           id,
		OK:           false,
		ErrorCode:    string(stdErr.Code),
		ErrorMessage: stdErr.Message,
	}
}
