// internal/submission/store.go
package submission

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	stderrors "comms-portal/internal/common/errors"
	"comms-portal/internal/common/logger"
	"comms-portal/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const submissionColumns = `
	id, submitter_name, submitter_email, ministry, event_date, event_time,
	promotion_start, platforms, announcement_body, add_to_calendar, file_links,
	approval_status, requires_approval, editorial_review, ministry_id,
	approval_coordinator, submitted_at, approved_by, approved_at, rejection_reason`

// Store owns all reads and writes of submission records. Status transitions
// go through conditional updates so a concurrent approve and reject against
// the same pending record cannot both win.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "submission-store"}),
	}
}

// Create persists a new submission in the state the router decided. The
// requiresApproval snapshot and initial status are fixed here and only the
// transition methods may change the status afterwards.
func (s *Store) Create(ctx context.Context, draft *models.SubmissionDraft, initialStatus string, requiresApproval, editorialReview bool, ministryID, coordinator *string) (*models.Submission, error) {
	id := uuid.New().String()
	submittedAt := time.Now().UTC().Format(time.RFC3339)

	sub := &models.Submission{
		ID:                  id,
		SubmitterName:       draft.SubmitterName,
		SubmitterEmail:      draft.SubmitterEmail,
		Ministry:            draft.Ministry,
		EventDate:           draft.EventDate,
		EventTime:           draft.EventTime,
		PromotionStart:      draft.PromotionStart,
		Platforms:           draft.Platforms,
		AnnouncementBody:    draft.AnnouncementBody,
		AddToCalendar:       draft.AddToCalendar,
		FileLinks:           draft.FileLinks,
		ApprovalStatus:      initialStatus,
		RequiresApproval:    requiresApproval,
		EditorialReview:     editorialReview,
		MinistryID:          ministryID,
		ApprovalCoordinator: coordinator,
		SubmittedAt:         submittedAt,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (
			id, submitter_name, submitter_email, ministry, event_date, event_time,
			promotion_start, platforms, announcement_body, add_to_calendar, file_links,
			approval_status, requires_approval, editorial_review, ministry_id,
			approval_coordinator, submitted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		sub.ID,
		sub.SubmitterName,
		sub.SubmitterEmail,
		sub.Ministry,
		nullable(sub.EventDate),
		nullable(sub.EventTime),
		nullable(sub.PromotionStart),
		pq.Array(sub.Platforms),
		sub.AnnouncementBody,
		sub.AddToCalendar,
		pq.Array(sub.FileLinks),
		sub.ApprovalStatus,
		sub.RequiresApproval,
		sub.EditorialReview,
		sub.MinistryID,
		sub.ApprovalCoordinator,
		sub.SubmittedAt,
	)
	if err != nil {
		return nil, stderrors.NewDatabaseInsertFailedError(err)
	}

	s.writeAuditLog(ctx, "submission_created", sub.ID, map[string]interface{}{
		"ministry":         sub.Ministry,
		"initialStatus":    sub.ApprovalStatus,
		"requiresApproval": sub.RequiresApproval,
	})

	return sub, nil
}

// GetByID fetches a single submission.
func (s *Store) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id)
	sub, err := scanSubmission(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, stderrors.NewNotFoundError("submission", id)
		}
		return nil, stderrors.NewQueryExecutionFailedError("get_submission", err)
	}
	return sub, nil
}

// ListByStatus returns submissions in the given status, oldest first. The
// queue is FIFO for triage fairness, so the ordering is part of the contract.
func (s *Store) ListByStatus(ctx context.Context, status string) ([]models.Submission, error) {
	if !models.ValidStatus(status) {
		return nil, stderrors.NewInvalidArgumentError("unknown status: " + status)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+submissionColumns+`
		 FROM submissions
		 WHERE approval_status = $1
		 ORDER BY submitted_at ASC, id ASC`, status)
	if err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("list_by_status", err)
	}
	defer rows.Close()

	out := []models.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, stderrors.NewQueryExecutionFailedError("list_by_status", err)
		}
		out = append(out, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("list_by_status", err)
	}
	return out, nil
}

// CountsByStatus returns per-status totals for the admin queue badges.
func (s *Store) CountsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT approval_status, COUNT(*)
		FROM submissions
		GROUP BY approval_status`)
	if err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("counts_by_status", err)
	}
	defer rows.Close()

	counts := map[string]int{
		models.StatusPending:  0,
		models.StatusApproved: 0,
		models.StatusRejected: 0,
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, stderrors.NewQueryExecutionFailedError("counts_by_status", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// Approve transitions a pending submission to approved. The status check and
// the write are a single conditional update, so of two concurrent transitions
// against the same record exactly one wins.
func (s *Store) Approve(ctx context.Context, id, approver string) (*models.Submission, error) {
	approvedAt := time.Now().UTC().Format(time.RFC3339)
	row := s.db.QueryRowContext(ctx, `
		UPDATE submissions
		SET approval_status = $1, approved_by = $2, approved_at = $3
		WHERE id = $4 AND approval_status = $5
		RETURNING `+submissionColumns,
		models.StatusApproved, approver, approvedAt, id, models.StatusPending)

	sub, err := scanSubmission(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, s.classifyMissedTransition(ctx, id)
		}
		return nil, stderrors.NewQueryExecutionFailedError("approve", err)
	}

	s.writeAuditLog(ctx, "submission_approved", id, map[string]interface{}{
		"approvedBy": approver,
	})
	return sub, nil
}

// Reject transitions a pending submission to rejected. The reason must be
// validated by the caller before this point; the store only refuses to write
// an empty one.
func (s *Store) Reject(ctx context.Context, id, approver, reason string) (*models.Submission, error) {
	if reason == "" {
		return nil, stderrors.NewInvalidArgumentError("rejection reason must not be empty")
	}

	rejectedAt := time.Now().UTC().Format(time.RFC3339)
	row := s.db.QueryRowContext(ctx, `
		UPDATE submissions
		SET approval_status = $1, approved_by = $2, approved_at = $3, rejection_reason = $4
		WHERE id = $5 AND approval_status = $6
		RETURNING `+submissionColumns,
		models.StatusRejected, approver, rejectedAt, reason, id, models.StatusPending)

	sub, err := scanSubmission(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, s.classifyMissedTransition(ctx, id)
		}
		return nil, stderrors.NewQueryExecutionFailedError("reject", err)
	}

	s.writeAuditLog(ctx, "submission_rejected", id, map[string]interface{}{
		"rejectedBy": approver,
		"reason":     reason,
	})
	return sub, nil
}

// classifyMissedTransition distinguishes a missing record from one that has
// already left the pending state.
func (s *Store) classifyMissedTransition(ctx context.Context, id string) error {
	var current string
	err := s.db.QueryRowContext(ctx,
		`SELECT approval_status FROM submissions WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if err == sql.ErrNoRows {
			return stderrors.NewNotFoundError("submission", id)
		}
		return stderrors.NewQueryExecutionFailedError("classify_transition", err)
	}
	return stderrors.NewInvalidStateTransitionError(id, current)
}

// writeAuditLog records a workflow event. Audit failures are logged and
// swallowed; they never fail the operation that produced them.
func (s *Store) writeAuditLog(ctx context.Context, eventType, resourceID string, details map[string]interface{}) {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		s.logger.Warn("failed to marshal audit log details", map[string]interface{}{
			"error": err,
		})
		detailsJSON = []byte("{}")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		eventType,
		"submission",
		resourceID,
		detailsJSON,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		s.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":        err,
			"submissionId": resourceID,
		})
	}
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSubmission(row scanner) (*models.Submission, error) {
	var sub models.Submission
	var eventDate, eventTime, promotionStart sql.NullString
	var platforms, fileLinks pq.StringArray
	var ministryID, coordinator, approvedBy, approvedAt, rejectionReason sql.NullString

	err := row.Scan(
		&sub.ID, &sub.SubmitterName, &sub.SubmitterEmail, &sub.Ministry,
		&eventDate, &eventTime, &promotionStart, &platforms,
		&sub.AnnouncementBody, &sub.AddToCalendar, &fileLinks,
		&sub.ApprovalStatus, &sub.RequiresApproval, &sub.EditorialReview,
		&ministryID, &coordinator, &sub.SubmittedAt,
		&approvedBy, &approvedAt, &rejectionReason,
	)
	if err != nil {
		return nil, err
	}

	sub.EventDate = eventDate.String
	sub.EventTime = eventTime.String
	sub.PromotionStart = promotionStart.String
	sub.Platforms = platforms
	sub.FileLinks = fileLinks
	sub.MinistryID = nullString(ministryID)
	sub.ApprovalCoordinator = nullString(coordinator)
	sub.ApprovedBy = nullString(approvedBy)
	sub.ApprovedAt = nullString(approvedAt)
	sub.RejectionReason = nullString(rejectionReason)
	return &sub, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
