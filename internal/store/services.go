package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/beaconstat/analytics/internal/apperr"
	"github.com/beaconstat/analytics/internal/domain"
)

// CreateService inserts a new service, generating a tracking ID if one is
// not already set.
func (s *Store) CreateService(ctx context.Context, svc domain.Service) (domain.Service, error) {
	if svc.ID == (domain.ServiceID{}) {
		svc.ID = domain.NewServiceID()
	}
	if svc.TrackingID == "" {
		svc.TrackingID = domain.NewTrackingID()
	}
	if svc.Status == "" {
		svc.Status = domain.ServiceActive
	}
	if svc.Origins == "" {
		svc.Origins = "*"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO services (id, name, tracking_id, origins, status, collect_ips,
			aggressive_salting, ignore_robots, hide_referrer_regex, script_inject)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, svc.ID, svc.Name, svc.TrackingID, svc.Origins, svc.Status.String(), svc.CollectIPs,
		svc.AggressiveSalting, svc.IgnoreRobots, svc.HideReferrerRegex, svc.ScriptInject)
	if err != nil {
		return domain.Service{}, apperr.Database(err)
	}
	return s.GetService(ctx, svc.ID)
}

// GetService fetches a service by its internal ID.
func (s *Store) GetService(ctx context.Context, id domain.ServiceID) (domain.Service, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, tracking_id, origins, status, collect_ips, aggressive_salting,
			ignore_robots, hide_referrer_regex, script_inject, created_at, updated_at
		FROM services WHERE id = $1
	`, id)
	return scanService(row)
}

// GetServiceByTrackingID fetches a service by its public tracking ID, the
// form embedded in beacon URLs.
func (s *Store) GetServiceByTrackingID(ctx context.Context, trackingID string) (domain.Service, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, tracking_id, origins, status, collect_ips, aggressive_salting,
			ignore_robots, hide_referrer_regex, script_inject, created_at, updated_at
		FROM services WHERE tracking_id = $1
	`, trackingID)
	return scanService(row)
}

// ListServices returns every service ordered by creation time.
func (s *Store) ListServices(ctx context.Context) ([]domain.Service, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, tracking_id, origins, status, collect_ips, aggressive_salting,
			ignore_robots, hide_referrer_regex, script_inject, created_at, updated_at
		FROM services ORDER BY created_at
	`)
	if err != nil {
		return nil, apperr.Database(err)
	}
	defer rows.Close()

	var out []domain.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, apperr.Database(rows.Err())
}

// UpdateService persists changes to an existing service's mutable fields.
func (s *Store) UpdateService(ctx context.Context, svc domain.Service) (domain.Service, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE services SET name = $2, origins = $3, status = $4, collect_ips = $5,
			aggressive_salting = $6, ignore_robots = $7, hide_referrer_regex = $8,
			script_inject = $9, updated_at = now()
		WHERE id = $1
	`, svc.ID, svc.Name, svc.Origins, svc.Status.String(), svc.CollectIPs,
		svc.AggressiveSalting, svc.IgnoreRobots, svc.HideReferrerRegex, svc.ScriptInject)
	if err != nil {
		return domain.Service{}, apperr.Database(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.Service{}, apperr.ServiceNotFound()
	}
	return s.GetService(ctx, svc.ID)
}

// DeleteService removes a service and, via ON DELETE CASCADE, all of its
// sessions and hits.
func (s *Store) DeleteService(ctx context.Context, id domain.ServiceID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return apperr.Database(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperr.ServiceNotFound()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanService(row rowScanner) (domain.Service, error) {
	var (
		svc        domain.Service
		status     string
		trackingID sql.NullString
	)
	err := row.Scan(&svc.ID, &svc.Name, &trackingID, &svc.Origins, &status, &svc.CollectIPs,
		&svc.AggressiveSalting, &svc.IgnoreRobots, &svc.HideReferrerRegex, &svc.ScriptInject,
		&svc.CreatedAt, &svc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Service{}, apperr.ServiceNotFound()
		}
		return domain.Service{}, apperr.Database(err)
	}
	svc.Status = domain.ParseServiceStatus(status)
	if trackingID.Valid {
		svc.TrackingID = trackingID.String
	}
	return svc, nil
}
