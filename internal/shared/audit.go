package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nomina-co/nomina/internal/platform/db"
)

// AuditEntityPeriod is the entity name used for payroll period audit rows.
const AuditEntityPeriod = "payroll_period"

// ErrAuditInvalid reports an audit entry missing its identifying fields.
var ErrAuditInvalid = errors.New("audit log requires action/entity/entity_id")

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	RunID    string         `json:"runId,omitempty"`
	ActorID  int64          `json:"actorId"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entityId"`
	Meta     map[string]any `json:"meta,omitempty"`
	At       time.Time      `json:"at"`
}

// Validate checks the mandatory audit fields.
func (l AuditLog) Validate() error {
	if l.Action == "" || l.Entity == "" || l.EntityID == "" {
		return ErrAuditInvalid
	}
	return nil
}

// AuditLogger appends records into audit_logs. Rows are never updated.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil || l.pool == nil {
		return errors.New("audit logger not initialised")
	}
	return InsertAudit(ctx, l.pool, log)
}

// InsertAudit writes one entry through q, which may be a transaction so the
// entry commits or rolls back with the change it describes.
func InsertAudit(ctx context.Context, q db.Querier, log AuditLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	if log.Meta == nil {
		log.Meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return fmt.Errorf("audit: encode meta: %w", err)
	}
	var at any
	if !log.At.IsZero() {
		at = log.At
	}
	_, err = q.Exec(ctx, `INSERT INTO audit_logs (run_id, actor_id, action, entity, entity_id, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))`, log.RunID, log.ActorID, log.Action, log.Entity, log.EntityID, metaJSON, at)
	if err != nil {
		return fmt.Errorf("audit: insert %s: %w", log.Action, err)
	}
	return nil
}

// List returns the audit trail of one entity in insertion order.
func (l *AuditLogger) List(ctx context.Context, entity, entityID string) ([]AuditLog, error) {
	if l == nil || l.pool == nil {
		return nil, errors.New("audit logger not initialised")
	}
	rows, err := l.pool.Query(ctx, `SELECT run_id, actor_id, action, entity, entity_id, meta, occurred_at
FROM audit_logs WHERE entity = $1 AND entity_id = $2 ORDER BY occurred_at, id`, entity, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var logs []AuditLog
	for rows.Next() {
		var (
			entry AuditLog
			meta  []byte
		)
		if err := rows.Scan(&entry.RunID, &entry.ActorID, &entry.Action, &entry.Entity, &entry.EntityID, &meta, &entry.At); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &entry.Meta); err != nil {
				return nil, fmt.Errorf("audit: decode meta: %w", err)
			}
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}
