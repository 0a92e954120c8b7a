// internal/approval/engine_test.go
package approval

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	stderrors "comms-portal/internal/common/errors"
	"comms-portal/internal/common/logger"
	"comms-portal/internal/models"
)

// fakeStore applies transitions with the same compare-and-swap semantics as
// the real store: only a pending record can move, and exactly one concurrent
// caller wins.
type fakeStore struct {
	mu       sync.Mutex
	statuses map[string]string
}

func newFakeStore(statuses map[string]string) *fakeStore {
	return &fakeStore{statuses: statuses}
}

func (f *fakeStore) transition(id, to, approver, reason string) (*models.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	current, ok := f.statuses[id]
	if !ok {
		return nil, stderrors.NewNotFoundError("submission", id)
	}
	if current != models.StatusPending {
		return nil, stderrors.NewInvalidStateTransitionError(id, current)
	}

	f.statuses[id] = to
	sub := &models.Submission{ID: id, ApprovalStatus: to, ApprovedBy: &approver}
	if reason != "" {
		sub.RejectionReason = &reason
	}
	return sub, nil
}

func (f *fakeStore) Approve(_ context.Context, id, approver string) (*models.Submission, error) {
	return f.transition(id, models.StatusApproved, approver, "")
}

func (f *fakeStore) Reject(_ context.Context, id, approver, reason string) (*models.Submission, error) {
	return f.transition(id, models.StatusRejected, approver, reason)
}

func (f *fakeStore) ListByStatus(_ context.Context, status string) ([]models.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []models.Submission{}
	for id, s := range f.statuses {
		if s == status {
			out = append(out, models.Submission{ID: id, ApprovalStatus: s})
		}
	}
	return out, nil
}

func (f *fakeStore) CountsByStatus(_ context.Context) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	counts := map[string]int{
		models.StatusPending:  0,
		models.StatusApproved: 0,
		models.StatusRejected: 0,
	}
	for _, s := range f.statuses {
		counts[s]++
	}
	return counts, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
	extras []map[string]interface{}
}

func (f *fakeNotifier) Notify(_ context.Context, kind string, sub *models.Submission, extra map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, kind+":"+sub.ID)
	f.extras = append(f.extras, extra)
}

type fakeIndexer struct {
	mu      sync.Mutex
	indexed []string
}

func (f *fakeIndexer) Index(_ context.Context, sub *models.Submission) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, sub.ID)
}

func newTestEngine(t *testing.T, statuses map[string]string) (*Engine, *fakeStore, *fakeNotifier, *fakeIndexer) {
	store := newFakeStore(statuses)
	notifier := &fakeNotifier{}
	indexer := &fakeIndexer{}
	return NewEngine(store, notifier, indexer, logger.NewTestLogger(t)), store, notifier, indexer
}

func TestEngine_Approve(t *testing.T) {
	engine, store, notifier, indexer := newTestEngine(t, map[string]string{"sub-1": models.StatusPending})

	sub, err := engine.Approve(context.Background(), "sub-1", "coordinator@church.example.org")

	assert.NoError(t, err)
	assert.Equal(t, models.StatusApproved, sub.ApprovalStatus)
	assert.Equal(t, "coordinator@church.example.org", *sub.ApprovedBy)
	assert.Equal(t, models.StatusApproved, store.statuses["sub-1"])
	assert.Equal(t, []string{"approved:sub-1"}, notifier.events)
	assert.Equal(t, []string{"sub-1"}, indexer.indexed)
}

func TestEngine_Approve_MissingApprover(t *testing.T) {
	engine, store, notifier, _ := newTestEngine(t, map[string]string{"sub-1": models.StatusPending})

	_, err := engine.Approve(context.Background(), "sub-1", "  ")

	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeInvalidArgument))
	assert.Equal(t, models.StatusPending, store.statuses["sub-1"])
	assert.Empty(t, notifier.events)
}

func TestEngine_Approve_NotFound(t *testing.T) {
	engine, _, notifier, _ := newTestEngine(t, map[string]string{})

	_, err := engine.Approve(context.Background(), "missing", "coordinator@church.example.org")

	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeNotFound))
	assert.Empty(t, notifier.events)
}

func TestEngine_Approve_AlreadyRejected(t *testing.T) {
	engine, store, notifier, _ := newTestEngine(t, map[string]string{"sub-1": models.StatusRejected})

	_, err := engine.Approve(context.Background(), "sub-1", "coordinator@church.example.org")

	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeInvalidStateTransition))
	assert.Equal(t, models.StatusRejected, store.statuses["sub-1"])
	assert.Empty(t, notifier.events)
}

func TestEngine_Reject(t *testing.T) {
	engine, store, notifier, _ := newTestEngine(t, map[string]string{"sub-1": models.StatusPending})

	sub, err := engine.Reject(context.Background(), "sub-1", "coordinator@church.example.org", "  needs a date  ")

	assert.NoError(t, err)
	assert.Equal(t, models.StatusRejected, sub.ApprovalStatus)
	assert.Equal(t, "needs a date", *sub.RejectionReason)
	assert.Equal(t, models.StatusRejected, store.statuses["sub-1"])
	assert.Equal(t, []string{"rejected:sub-1"}, notifier.events)
	assert.Equal(t, "needs a date", notifier.extras[0]["reason"])
}

func TestEngine_Reject_EmptyReason(t *testing.T) {
	engine, store, notifier, _ := newTestEngine(t, map[string]string{"sub-1": models.StatusPending})

	_, err := engine.Reject(context.Background(), "sub-1", "coordinator@church.example.org", "   ")

	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeInvalidArgument))
	assert.Equal(t, models.StatusPending, store.statuses["sub-1"])
	assert.Empty(t, notifier.events)
}

func TestEngine_BulkApprove_PartialSuccess(t *testing.T) {
	engine, store, notifier, _ := newTestEngine(t, map[string]string{
		"sub-1": models.StatusPending,
		"sub-2": models.StatusApproved,
		"sub-3": models.StatusPending,
	})

	result, err := engine.BulkApprove(context.Background(),
		[]string{"sub-1", "sub-2", "missing", "sub-3"}, "coordinator@church.example.org")

	assert.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 2, result.Failed)
	assert.Len(t, result.Results, 4)

	assert.True(t, result.Results[0].OK)
	assert.False(t, result.Results[1].OK)
	assert.Equal(t, string(stderrors.ErrCodeInvalidStateTransition), result.Results[1].ErrorCode)
	assert.False(t, result.Results[2].OK)
	assert.Equal(t, string(stderrors.ErrCodeNotFound), result.Results[2].ErrorCode)
	assert.True(t, result.Results[3].OK)

	// One failed item must not block the others.
	assert.Equal(t, models.StatusApproved, store.statuses["sub-1"])
	assert.Equal(t, models.StatusApproved, store.statuses["sub-3"])
	assert.Len(t, notifier.events, 2)
}

func TestEngine_BulkReject_BadReasonFailsBeforeAnyMutation(t *testing.T) {
	engine, store, notifier, _ := newTestEngine(t, map[string]string{
		"sub-1": models.StatusPending,
		"sub-2": models.StatusPending,
	})

	_, err := engine.BulkReject(context.Background(),
		[]string{"sub-1", "sub-2"}, "coordinator@church.example.org", "   ")

	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeInvalidArgument))
	assert.Equal(t, models.StatusPending, store.statuses["sub-1"])
	assert.Equal(t, models.StatusPending, store.statuses["sub-2"])
	assert.Empty(t, notifier.events)
}

func TestEngine_BulkApprove_EmptyIDs(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, map[string]string{})

	_, err := engine.BulkApprove(context.Background(), nil, "coordinator@church.example.org")

	assert.True(t, stderrors.IsCode(err, stderrors.ErrCodeInvalidArgument))
}

func TestEngine_ConcurrentApproveAndReject_ExactlyOneWins(t *testing.T) {
	engine, store, notifier, _ := newTestEngine(t, map[string]string{"sub-1": models.StatusPending})

	var wg sync.WaitGroup
	var approveErr, rejectErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, approveErr = engine.Approve(context.Background(), "sub-1", "first@church.example.org")
	}()
	go func() {
		defer wg.Done()
		_, rejectErr = engine.Reject(context.Background(), "sub-1", "second@church.example.org", "duplicate")
	}()
	wg.Wait()

	winners := 0
	if approveErr == nil {
		winners++
		assert.Equal(t, models.StatusApproved, store.statuses["sub-1"])
		assert.True(t, stderrors.IsCode(rejectErr, stderrors.ErrCodeInvalidStateTransition))
	}
	if rejectErr == nil {
		winners++
		assert.Equal(t, models.StatusRejected, store.statuses["sub-1"])
		assert.True(t, stderrors.IsCode(approveErr, stderrors.ErrCodeInvalidStateTransition))
	}
	assert.Equal(t, 1, winners)
	assert.Len(t, notifier.events, 1)
}

func TestEngine_Counts(t *testing.T) {
	engine, _, _, _ := newTestEngine(t, map[string]string{
		"sub-1": models.StatusPending,
		"sub-2": models.StatusApproved,
	})

	counts, err := engine.Counts(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, counts[models.StatusPending])
	assert.Equal(t, 1, counts[models.StatusApproved])
	assert.Equal(t, 0, counts[models.StatusRejected])
}
