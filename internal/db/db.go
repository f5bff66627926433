// Package db provides a pgxpool-based connection pool with prepared
// statement registration, schema bootstrap, and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skyglow-app/skyglow-server/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

const deviceColumns = `id, token, lat, lon, location_mode, timezone,
	notify_morning, notify_hour_before, notify_ten_minutes, min_quality,
	last_location_update, created_at, updated_at`

// registerPreparedStatements registers all statements the API and scheduler
// layers use. Prepared statements eliminate parse overhead on every request.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Devices
		"device_upsert": `
			INSERT INTO devices (
				id, token, lat, lon, location_mode, timezone,
				notify_morning, notify_hour_before, notify_ten_minutes, min_quality,
				last_location_update, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW(),NOW(),NOW())
			ON CONFLICT (token) DO UPDATE SET
				lat = EXCLUDED.lat,
				lon = EXCLUDED.lon,
				location_mode = EXCLUDED.location_mode,
				timezone = EXCLUDED.timezone,
				notify_morning = EXCLUDED.notify_morning,
				notify_hour_before = EXCLUDED.notify_hour_before,
				notify_ten_minutes = EXCLUDED.notify_ten_minutes,
				min_quality = EXCLUDED.min_quality,
				last_location_update = NOW(),
				updated_at = NOW()
			RETURNING ` + deviceColumns,
		"device_by_token": "SELECT " + deviceColumns + " FROM devices WHERE token = $1",
		"device_by_id":    "SELECT " + deviceColumns + " FROM devices WHERE id = $1",
		"device_list":     "SELECT " + deviceColumns + " FROM devices ORDER BY created_at",
		"device_update_location": `
			UPDATE devices SET
				lat = $2, lon = $3, location_mode = $4, timezone = $5,
				last_location_update = NOW(), updated_at = NOW()
			WHERE token = $1
			RETURNING ` + deviceColumns,
		"device_update_preferences": `
			UPDATE devices SET
				notify_morning = $2, notify_hour_before = $3,
				notify_ten_minutes = $4, min_quality = $5, updated_at = NOW()
			WHERE token = $1
			RETURNING ` + deviceColumns,

		// Notification log
		"notification_insert": `
			INSERT INTO notifications (
				device_id, type, sent_at, sunset_time, quality, quality_percent
			) VALUES ($1,$2,$3,$4,$5,$6)`,
		"notification_recent": `
			SELECT id, device_id, type, sent_at, sunset_time, quality, quality_percent
			FROM notifications
			WHERE device_id = $1
			ORDER BY sent_at DESC
			LIMIT $2`,

		// Pending reminders
		"reminder_insert": `
			INSERT INTO pending_reminders (
				device_id, kind, scheduled_for, sunset_time, quality, quality_percent, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,NOW())`,
		// Delete-on-claim: a reminder is consumed by exactly one sweep run.
		"reminder_claim_due": `
			DELETE FROM pending_reminders
			WHERE scheduled_for <= $1
			RETURNING id, device_id, kind, scheduled_for, sunset_time, quality, quality_percent, created_at`,
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}

// EnsureSchema creates the tables and indexes if they do not exist. Must
// run before New: the pool prepares statements against these tables on
// every new connection, so it uses its own short-lived connection.
func EnsureSchema(ctx context.Context, dbURL string) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS devices (
		id UUID PRIMARY KEY,
		token TEXT NOT NULL UNIQUE,
		lat DOUBLE PRECISION NOT NULL DEFAULT 0,
		lon DOUBLE PRECISION NOT NULL DEFAULT 0,
		location_mode TEXT NOT NULL DEFAULT 'auto',
		timezone TEXT NOT NULL DEFAULT '',
		notify_morning BOOLEAN NOT NULL DEFAULT true,
		notify_hour_before BOOLEAN NOT NULL DEFAULT false,
		notify_ten_minutes BOOLEAN NOT NULL DEFAULT false,
		min_quality TEXT NOT NULL DEFAULT 'Good',
		last_location_update TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id BIGSERIAL PRIMARY KEY,
		device_id UUID NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		sent_at TIMESTAMPTZ NOT NULL,
		sunset_time TIMESTAMPTZ NOT NULL,
		quality TEXT NOT NULL,
		quality_percent DOUBLE PRECISION NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_notifications_device_recency
		ON notifications (device_id, sent_at DESC);

	CREATE TABLE IF NOT EXISTS pending_reminders (
		id BIGSERIAL PRIMARY KEY,
		device_id UUID NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		scheduled_for TIMESTAMPTZ NOT NULL,
		sunset_time TIMESTAMPTZ NOT NULL,
		quality TEXT NOT NULL,
		quality_percent DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_pending_reminders_due
		ON pending_reminders (scheduled_for);`

	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect for schema bootstrap: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
