// internal/ministry/directory.go
package ministry

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"comms-portal/internal/common/logger"
	"comms-portal/internal/models"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "ministry:lookup:"

// Directory resolves free-text ministry names against the ministry table.
// Lookups are cache-aside in Redis keyed by the normalized name, so repeated
// submissions for the same ministry skip the database.
type Directory struct {
	db       *sql.DB
	redis    *redis.Client
	cacheTTL time.Duration
	logger   logger.Logger
}

func NewDirectory(db *sql.DB, rdb *redis.Client, cacheTTL time.Duration, log logger.Logger) *Directory {
	return &Directory{
		db:       db,
		redis:    rdb,
		cacheTTL: cacheTTL,
		logger:   log.WithFields(map[string]interface{}{"component": "ministry-directory"}),
	}
}

// Normalize lowercases and trims a ministry name for matching and cache keys.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Resolve finds the active ministry whose name or any alias matches the given
// free-text string, case-insensitively. Returns (nil, nil) when nothing
// matches; the caller treats that as a custom/unlisted ministry.
func (d *Directory) Resolve(ctx context.Context, name string) (*models.Ministry, error) {
	normalized := Normalize(name)
	if normalized == "" {
		return nil, nil
	}

	cacheKey := cacheKeyPrefix + normalized
	if d.redis != nil {
		if val, err := d.redis.Get(ctx, cacheKey).Result(); err == nil {
			var m models.Ministry
			if err := json.Unmarshal([]byte(val), &m); err == nil {
				return &m, nil
			}
			// Stale or corrupt cache entry, fall through to the database.
			d.redis.Del(ctx, cacheKey)
		}
	}

	m, err := d.lookup(ctx, normalized)
	if err != nil || m == nil {
		return m, err
	}

	if d.redis != nil {
		if data, err := json.Marshal(m); err == nil {
			if err := d.redis.Set(ctx, cacheKey, data, d.cacheTTL).Err(); err != nil {
				d.logger.Warn("ministry cache write failed", map[string]interface{}{
					"ministry": m.Name,
					"error":    err,
				})
			}
		}
	}

	return m, nil
}

func (d *Directory) lookup(ctx context.Context, normalized string) (*models.Ministry, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, ministry_name, aliases, description, requires_approval,
		       approval_coordinator, coordinator_phone, active
		FROM ministries
		WHERE active = TRUE
		  AND (lower(ministry_name) = $1
		       OR EXISTS (SELECT 1 FROM unnest(aliases) a WHERE lower(a) = $1))`,
		normalized)

	var m models.Ministry
	var aliases pq.StringArray
	var description, coordinator, phone sql.NullString
	err := row.Scan(&m.ID, &m.Name, &aliases, &description, &m.RequiresApproval,
		&coordinator, &phone, &m.Active)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	m.Aliases = aliases
	m.Description = description.String
	m.ApprovalCoordinator = coordinator.String
	m.CoordinatorPhone = phone.String
	return &m, nil
}

// ListActive returns all active ministries ordered by name, for the public
// form's autocomplete.
func (d *Directory) ListActive(ctx context.Context) ([]models.Ministry, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, ministry_name, aliases, description, requires_approval,
		       approval_coordinator, coordinator_phone, active
		FROM ministries
		WHERE active = TRUE
		ORDER BY ministry_name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Ministry{}
	for rows.Next() {
		var m models.Ministry
		var aliases pq.StringArray
		var description, coordinator, phone sql.NullString
		if err := rows.Scan(&m.ID, &m.Name, &aliases, &description, &m.RequiresApproval,
			&coordinator, &phone, &m.Active); err != nil {
			return nil, err
		}
		m.Aliases = aliases
		m.Description = description.String
		m.ApprovalCoordinator = coordinator.String
		m.CoordinatorPhone = phone.String
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetByID fetches a ministry regardless of active flag. Used when rendering
// existing submissions whose ministry has since been deactivated.
func (d *Directory) GetByID(ctx context.Context, id string) (*models.Ministry, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, ministry_name, aliases, description, requires_approval,
		       approval_coordinator, coordinator_phone, active
		FROM ministries
		WHERE id = $1`, id)

	var m models.Ministry
	var aliases pq.StringArray
	var description, coordinator, phone sql.NullString
	err := row.Scan(&m.ID, &m.Name, &aliases, &description, &m.RequiresApproval,
		&coordinator, &phone, &m.Active)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	m.Aliases = aliases
	m.Description = description.String
	m.ApprovalCoordinator = coordinator.String
	m.CoordinatorPhone = phone.String
	return &m, nil
}
