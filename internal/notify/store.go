package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skyglow-app/skyglow-server/internal/quality"
)

// RecentLookback bounds the same-day dedup scan. The check inspects only
// the most recent records per device rather than an exact date-range query;
// under very high per-device volume this could miss a duplicate, which is
// acceptable at this layer.
const RecentLookback = 5

// Store persists notification records and pending reminders.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a notification store backed by the shared pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Record appends one notification record. Never mutated afterwards.
func (s *Store) Record(ctx context.Context, rec Record) error {
	_, err := s.pool.Exec(ctx, "notification_insert",
		rec.DeviceID, string(rec.Type), rec.SentAt,
		rec.Snapshot.SunsetTime, rec.Snapshot.Tier.String(), rec.Snapshot.Percent)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// Recent returns the newest records for a device, most recent first.
func (s *Store) Recent(ctx context.Context, deviceID uuid.UUID, limit int) ([]Record, error) {
	rows, err := s.pool.Query(ctx, "notification_recent", deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent notifications: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var typ, tier string
		if err := rows.Scan(&rec.ID, &rec.DeviceID, &typ, &rec.SentAt,
			&rec.Snapshot.SunsetTime, &tier, &rec.Snapshot.Percent); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		rec.Type = Type(typ)
		if t, err := quality.ParseTier(tier); err == nil {
			rec.Snapshot.Tier = t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CreateReminder persists a pending reminder.
func (s *Store) CreateReminder(ctx context.Context, r Reminder) error {
	_, err := s.pool.Exec(ctx, "reminder_insert",
		r.DeviceID, string(r.Kind), r.ScheduledFor,
		r.Snapshot.SunsetTime, r.Snapshot.Tier.String(), r.Snapshot.Percent)
	if err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	return nil
}

// ClaimDue atomically removes and returns every reminder whose fire time
// has passed. Delete-on-claim means a reminder is processed by exactly one
// sweep run even if runs overlap, and the record is gone whether or not a
// push goes out afterwards.
func (s *Store) ClaimDue(ctx context.Context, now time.Time) ([]Reminder, error) {
	rows, err := s.pool.Query(ctx, "reminder_claim_due", now)
	if err != nil {
		return nil, fmt.Errorf("claim due reminders: %w", err)
	}
	defer rows.Close()

	var claimed []Reminder
	for rows.Next() {
		var r Reminder
		var kind, tier string
		if err := rows.Scan(&r.ID, &r.DeviceID, &kind, &r.ScheduledFor,
			&r.Snapshot.SunsetTime, &tier, &r.Snapshot.Percent, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan claimed reminder: %w", err)
		}
		r.Kind = ReminderKind(kind)
		if t, err := quality.ParseTier(tier); err == nil {
			r.Snapshot.Tier = t
		}
		claimed = append(claimed, r)
	}
	return claimed, rows.Err()
}

// PurgeOldRecords deletes notification records older than the cutoff.
// Called by the maintenance ticker; reminder rows clean themselves up on
// claim so only the append-only log needs retention.
func (s *Store) PurgeOldRecords(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM notifications WHERE sent_at < $1", before)
	if err != nil {
		return 0, fmt.Errorf("purge notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}
