package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/beaconstat/analytics/internal/apperr"
	"github.com/beaconstat/analytics/internal/domain"
)

// CreateHit inserts a new hit and returns it with its generated ID.
func (s *Store) CreateHit(ctx context.Context, hit domain.Hit) (domain.Hit, error) {
	var loadTime interface{}
	if hit.LoadTimeMs != nil {
		loadTime = *hit.LoadTimeMs
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO hits (session_id, service_id, tracker, location, referrer, load_time_ms,
			idempotency, heartbeats, is_initial, start_time, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $9)
		RETURNING id
	`, hit.SessionID, hit.ServiceID, hit.Tracker.String(), hit.Location, hit.Referrer, loadTime,
		hit.Idempotency, hit.IsInitial, hit.StartTime).Scan(&id)
	if err != nil {
		return domain.Hit{}, apperr.Database(err)
	}
	hit.ID = id
	hit.Heartbeats = 0
	hit.LastSeen = hit.StartTime
	return hit, nil
}

// GetHit fetches a hit by ID.
func (s *Store) GetHit(ctx context.Context, id domain.HitID) (domain.Hit, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, service_id, tracker, location, referrer, load_time_ms,
			idempotency, heartbeats, is_initial, start_time, last_seen
		FROM hits WHERE id = $1
	`, id)
	return scanHit(row)
}

// GetHitByIdempotency fetches the hit previously recorded for an
// idempotency key within a service. The ingress processor does not call it;
// it consults only the in-memory idempotency cache.
func (s *Store) GetHitByIdempotency(ctx context.Context, serviceID domain.ServiceID, idempotency string) (domain.Hit, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, service_id, tracker, location, referrer, load_time_ms,
			idempotency, heartbeats, is_initial, start_time, last_seen
		FROM hits WHERE service_id = $1 AND idempotency = $2
	`, serviceID, idempotency)
	return scanHit(row)
}

// UpdateHitHeartbeat increments a hit's heartbeat counter and advances
// last_seen, recording that the same pageview is still open without
// creating a new hit row.
func (s *Store) UpdateHitHeartbeat(ctx context.Context, id domain.HitID, lastSeen time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE hits SET heartbeats = heartbeats + 1, last_seen = $2 WHERE id = $1
	`, id, lastSeen)
	return apperr.Database(err)
}

// ListHitsForSession returns one page (limit/offset) of a session's hits,
// oldest first.
func (s *Store) ListHitsForSession(ctx context.Context, sessionID domain.SessionID, limit, offset int) ([]domain.Hit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, service_id, tracker, location, referrer, load_time_ms,
			idempotency, heartbeats, is_initial, start_time, last_seen
		FROM hits WHERE session_id = $1
		ORDER BY start_time ASC
		LIMIT $2 OFFSET $3
	`, sessionID, limit, offset)
	if err != nil {
		return nil, apperr.Database(err)
	}
	defer rows.Close()

	var out []domain.Hit
	for rows.Next() {
		hit, err := scanHit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, hit)
	}
	return out, apperr.Database(rows.Err())
}

// HitSessionRow is a hit joined with the session-level fields needed by the
// in-memory URL-filter aggregation path (country/os/browser/device type are
// session attributes, not hit attributes).
type HitSessionRow struct {
	Hit        domain.Hit
	SessionID  domain.SessionID
	Country    string
	OS         string
	Browser    string
	Device     string
	DeviceType domain.DeviceType
}

// ListHitsInWindowJoined returns every hit for a service within
// [start, end) joined with its session's breakdown fields, used by the
// URL-filtered analytics path that aggregates in memory.
func (s *Store) ListHitsInWindowJoined(ctx context.Context, serviceID domain.ServiceID, start, end time.Time) ([]HitSessionRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hits.id, hits.session_id, hits.service_id, hits.tracker, hits.location,
			hits.referrer, hits.load_time_ms, hits.idempotency, hits.heartbeats,
			hits.is_initial, hits.start_time, hits.last_seen,
			sessions.country, sessions.os, sessions.browser, sessions.device, sessions.device_type
		FROM hits JOIN sessions ON sessions.id = hits.session_id
		WHERE hits.service_id = $1 AND hits.start_time >= $2 AND hits.start_time < $3
		ORDER BY hits.start_time ASC
	`, serviceID, start, end)
	if err != nil {
		return nil, apperr.Database(err)
	}
	defer rows.Close()

	var out []HitSessionRow
	for rows.Next() {
		var (
			r          HitSessionRow
			tracker    string
			loadTimeMs sql.NullInt64
			deviceType string
		)
		if err := rows.Scan(&r.Hit.ID, &r.SessionID, &r.Hit.ServiceID, &tracker, &r.Hit.Location,
			&r.Hit.Referrer, &loadTimeMs, &r.Hit.Idempotency, &r.Hit.Heartbeats, &r.Hit.IsInitial,
			&r.Hit.StartTime, &r.Hit.LastSeen, &r.Country, &r.OS, &r.Browser, &r.Device, &deviceType); err != nil {
			return nil, apperr.Database(err)
		}
		r.Hit.Tracker = domain.TrackerType(tracker)
		r.Hit.SessionID = r.SessionID
		if loadTimeMs.Valid {
			v := int(loadTimeMs.Int64)
			r.Hit.LoadTimeMs = &v
		}
		r.DeviceType = domain.ParseDeviceType(deviceType)
		out = append(out, r)
	}
	return out, apperr.Database(rows.Err())
}

func scanHit(row rowScanner) (domain.Hit, error) {
	var (
		hit        domain.Hit
		tracker    string
		loadTimeMs sql.NullInt64
	)
	err := row.Scan(&hit.ID, &hit.SessionID, &hit.ServiceID, &tracker, &hit.Location, &hit.Referrer,
		&loadTimeMs, &hit.Idempotency, &hit.Heartbeats, &hit.IsInitial, &hit.StartTime, &hit.LastSeen)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Hit{}, apperr.New(apperr.CodeSessionNotFound, 404, "hit not found")
		}
		return domain.Hit{}, apperr.Database(err)
	}
	hit.Tracker = domain.TrackerType(tracker)
	if loadTimeMs.Valid {
		v := int(loadTimeMs.Int64)
		hit.LoadTimeMs = &v
	}
	return hit, nil
}
