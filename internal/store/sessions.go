package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/beaconstat/analytics/internal/apperr"
	"github.com/beaconstat/analytics/internal/domain"
)

// CreateSession inserts a new session row.
func (s *Store) CreateSession(ctx context.Context, sess domain.Session) (domain.Session, error) {
	if sess.ID == (domain.SessionID{}) {
		sess.ID = domain.NewSessionID()
	}

	var ip interface{}
	if sess.IP != nil {
		ip = *sess.IP
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, service_id, ip, user_agent, browser, os, device, device_type,
			country, asn, longitude, latitude, time_zone, identifier, start_time, last_seen,
			hit_count, is_bounce)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`, sess.ID, sess.ServiceID, ip, sess.UserAgent, sess.Browser, sess.OS, sess.Device,
		sess.DeviceType.String(), sess.Country, sess.ASN, sess.Longitude, sess.Latitude,
		sess.TimeZone, sess.Identifier, sess.StartTime, sess.LastSeen, sess.HitCount, sess.IsBounce)
	if err != nil {
		return domain.Session{}, apperr.Database(err)
	}
	return s.GetSession(ctx, sess.ID)
}

// GetSession fetches a session by ID.
func (s *Store) GetSession(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, service_id, ip, user_agent, browser, os, device, device_type, country,
			asn, longitude, latitude, time_zone, identifier, start_time, last_seen, hit_count, is_bounce
		FROM sessions WHERE id = $1
	`, id)
	return scanSession(row)
}

// UpdateSessionLastSeen bumps last_seen to now, called on every repeat
// beacon from an already-associated visitor.
func (s *Store) UpdateSessionLastSeen(ctx context.Context, id domain.SessionID, lastSeen time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sessions SET last_seen = $2 WHERE id = $1`, id, lastSeen)
	return apperr.Database(err)
}

// UpdateSessionIdentifier backfills a session's opaque identifier from the
// first hit that carries one, never overwriting an existing value.
func (s *Store) UpdateSessionIdentifier(ctx context.Context, id domain.SessionID, identifier string) error {
	if identifier == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET identifier = $2 WHERE id = $1 AND identifier = ''
	`, id, identifier)
	return apperr.Database(err)
}

// RecalculateSessionBounce recomputes is_bounce from a live count of the
// session's hits, rather than a separately-maintained counter: a session
// bounces iff it has accumulated at most one hit row.
func (s *Store) RecalculateSessionBounce(ctx context.Context, id domain.SessionID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET is_bounce = ((SELECT COUNT(*) FROM hits WHERE session_id = $1) <= 1)
		WHERE id = $1
	`, id)
	return apperr.Database(err)
}

// ListSessions returns up to limit sessions for a service within
// [start, end), ordered most recent first.
func (s *Store) ListSessions(ctx context.Context, serviceID domain.ServiceID, start, end time.Time, limit, offset int) ([]domain.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, service_id, ip, user_agent, browser, os, device, device_type, country,
			asn, longitude, latitude, time_zone, identifier, start_time, last_seen, hit_count, is_bounce
		FROM sessions
		WHERE service_id = $1 AND start_time >= $2 AND start_time < $3
		ORDER BY start_time DESC
		LIMIT $4 OFFSET $5
	`, serviceID, start, end, limit, offset)
	if err != nil {
		return nil, apperr.Database(err)
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, apperr.Database(rows.Err())
}

func scanSession(row rowScanner) (domain.Session, error) {
	var (
		sess       domain.Session
		ip         sql.NullString
		deviceType string
	)
	err := row.Scan(&sess.ID, &sess.ServiceID, &ip, &sess.UserAgent, &sess.Browser, &sess.OS,
		&sess.Device, &deviceType, &sess.Country, &sess.ASN, &sess.Longitude, &sess.Latitude,
		&sess.TimeZone, &sess.Identifier, &sess.StartTime, &sess.LastSeen,
		&sess.HitCount, &sess.IsBounce)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, apperr.SessionNotFound()
		}
		return domain.Session{}, apperr.Database(err)
	}
	sess.DeviceType = domain.ParseDeviceType(deviceType)
	if ip.Valid {
		sess.IP = &ip.String
	}
	return sess, nil
}
