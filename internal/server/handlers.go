// internal/server/handlers.go
package server

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"comms-portal/internal/common/errors"
	"comms-portal/internal/models"
	"comms-portal/internal/search"
)

// approvalRequest covers both single and bulk moderation actions.
type approvalRequest struct {
	Bulk            bool     `json:"bulk"`
	RecordID        string   `json:"recordId"`
	RecordIDs       []string `json:"recordIds"`
	Action          string   `json:"action"`
	RejectionReason string   `json:"rejectionReason"`
}

const (
	actionApprove = "approve"
	actionReject  = "reject"
)

// handleSubmit accepts the public announcement form.
func (s *Server) handleSubmit(c *fiber.Ctx) error {
	sub, err := s.intake.Submit(c.UserContext(), c.Body())
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sub)
}

// handleListMinistries returns the active ministry directory for the
// public form's dropdown.
func (s *Server) handleListMinistries(c *fiber.Ctx) error {
	ministries, err := s.directory.ListActive(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"ministries": ministries})
}

// handleHealthz reports liveness of the service and its backends.
func (s *Server) handleHealthz(c *fiber.Ctx) error {
	checks := map[string]string{"postgres": "ok", "redis": "ok"}
	healthy := true

	if err := s.db.PingContext(c.UserContext()); err != nil {
		checks["postgres"] = err.Error()
		healthy = false
	}
	if s.redis != nil {
		if err := s.redis.Ping(c.UserContext()).Err(); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		}
	}
	if s.search != nil {
		checks["elasticsearch"] = "ok"
		if err := s.search.Ping(c.UserContext()); err != nil {
			checks["elasticsearch"] = err.Error()
			healthy = false
		}
	} else {
		checks["elasticsearch"] = "disabled"
	}

	status := fiber.StatusOK
	if !healthy {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{"healthy": healthy, "checks": checks})
}

// handleListApprovals lists the moderation queue for one status,
// oldest first. Defaults to the pending queue.
func (s *Server) handleListApprovals(c *fiber.Ctx) error {
	status := c.Query("status", models.StatusPending)
	subs, err := s.engine.ListByStatus(c.UserContext(), status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"status": status, "count": len(subs), "submissions": subs})
}

// handleCounts returns per-status queue totals.
func (s *Server) handleCounts(c *fiber.Ctx) error {
	counts, err := s.engine.Counts(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"counts": counts})
}

// handleApprovalAction applies a single or bulk approve/reject on
// behalf of the authenticated coordinator.
func (s *Server) handleApprovalAction(c *fiber.Ctx) error {
	principal := principalFrom(c)
	if principal == nil {
		return writeError(c, errors.NewAuthenticationError("no verified principal on request"))
	}

	var req approvalRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return writeError(c, errors.NewInvalidArgumentError("request body must be valid JSON"))
	}

	if req.Action != actionApprove && req.Action != actionReject {
		return writeError(c, errors.NewInvalidArgumentError("action must be approve or reject"))
	}

	approver := principal.Identity()
	ctx := c.UserContext()

	if req.Bulk {
		if len(req.RecordIDs) == 0 {
			return writeError(c, errors.NewInvalidArgumentError("recordIds must not be empty for bulk actions"))
		}

		var err error
		var result interface{}
		if req.Action == actionApprove {
			result, err = s.engine.BulkApprove(ctx, req.RecordIDs, approver)
		} else {
			result, err = s.engine.BulkReject(ctx, req.RecordIDs, approver, req.RejectionReason)
		}
		if err != nil {
			return writeError(c, err)
		}
		if s.obs != nil {
			s.obs.RecordTransition(ctx, req.Action, "bulk")
		}
		return c.JSON(result)
	}

	if req.RecordID == "" {
		return writeError(c, errors.NewInvalidArgumentError("recordId is required"))
	}

	var sub *models.Submission
	var err error
	if req.Action == actionApprove {
		sub, err = s.engine.Approve(ctx, req.RecordID, approver)
	} else {
		sub, err = s.engine.Reject(ctx, req.RecordID, approver, req.RejectionReason)
	}
	if err != nil {
		return writeError(c, err)
	}
	if s.obs != nil {
		s.obs.RecordTransition(ctx, req.Action, "ok")
	}
	return c.JSON(sub)
}

// handleSearch runs a keyword search over the submission index.
func (s *Server) handleSearch(c *fiber.Ctx) error {
	if s.search == nil {
		return writeError(c, errors.NewSearchUnavailableError(errSearchDisabled))
	}

	from, _ := strconv.Atoi(c.Query("from", "0"))
	size, _ := strconv.Atoi(c.Query("size", "0"))

	result, err := s.search.Search(c.UserContext(), search.Query{
		Keywords: c.Query("q"),
		Status:   c.Query("status"),
		Ministry: c.Query("ministry"),
		From:     from,
		Size:     size,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(result)
}
