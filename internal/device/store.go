package device

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skyglow-app/skyglow-server/internal/quality"
)

// Store persists devices in Postgres. Queries reference prepared statements
// registered in internal/db.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a device store backed by the shared pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Upsert registers a device or updates the existing record for the token.
func (s *Store) Upsert(ctx context.Context, d *Device) (*Device, error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	row := s.pool.QueryRow(ctx, "device_upsert",
		d.ID, d.Token, d.Latitude, d.Longitude, string(d.LocationMode),
		d.Timezone, d.NotifyMorning, d.NotifyHourBefore, d.NotifyTenMinutes,
		d.MinQuality.String(),
	)
	return scanDevice(row)
}

// ByToken looks up a device by its push token.
func (s *Store) ByToken(ctx context.Context, token string) (*Device, error) {
	d, err := scanDevice(s.pool.QueryRow(ctx, "device_by_token", token))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

// ByID looks up a device by record id. Used by the reminder sweep.
func (s *Store) ByID(ctx context.Context, id uuid.UUID) (*Device, error) {
	d, err := scanDevice(s.pool.QueryRow(ctx, "device_by_id", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

// List returns every registered device, oldest first. The morning scan
// filters eligibility per device; volumes are small enough to scan all.
func (s *Store) List(ctx context.Context) ([]Device, error) {
	rows, err := s.pool.Query(ctx, "device_list")
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		devices = append(devices, *d)
	}
	return devices, rows.Err()
}

// UpdateLocation writes a new coordinate for the token, creating the device
// if the token is unknown. GPS-mode coordinates must be pre-rounded by the
// caller (RoundCoord).
func (s *Store) UpdateLocation(ctx context.Context, token string, lat, lon float64, mode LocationMode, timezone string) (*Device, error) {
	existing, err := s.ByToken(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return s.Upsert(ctx, &Device{
			Token:         token,
			Latitude:      lat,
			Longitude:     lon,
			LocationMode:  mode,
			Timezone:      timezone,
			NotifyMorning: true,
			MinQuality:    quality.TierGood,
		})
	}
	if err != nil {
		return nil, err
	}

	if timezone == "" {
		timezone = existing.Timezone
	}
	d, err := scanDevice(s.pool.QueryRow(ctx, "device_update_location",
		token, lat, lon, string(mode), timezone))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

// UpdatePreferences replaces the notification preferences for the token.
func (s *Store) UpdatePreferences(ctx context.Context, token string, p Preferences) (*Device, error) {
	d, err := scanDevice(s.pool.QueryRow(ctx, "device_update_preferences",
		token, p.NotifyMorning, p.NotifyHourBefore, p.NotifyTenMinutes,
		p.MinQuality.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

func scanDevice(row pgx.Row) (*Device, error) {
	var d Device
	var mode, minQuality string
	err := row.Scan(
		&d.ID, &d.Token, &d.Latitude, &d.Longitude, &mode, &d.Timezone,
		&d.NotifyMorning, &d.NotifyHourBefore, &d.NotifyTenMinutes, &minQuality,
		&d.LastLocationUpdate, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.LocationMode = LocationMode(mode)
	tier, err := quality.ParseTier(minQuality)
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", d.Token, err)
	}
	d.MinQuality = tier
	return &d, nil
}
