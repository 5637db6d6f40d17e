// Package ingress implements the beacon processing pipeline: session
// resolution (via a fingerprint cache backed by a database fallback), hit
// idempotency/heartbeats, and bounce recomputation.
package ingress

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/beaconstat/analytics/internal/apperr"
	"github.com/beaconstat/analytics/internal/cache"
	"github.com/beaconstat/analytics/internal/domain"
	"github.com/beaconstat/analytics/internal/geo"
	"github.com/beaconstat/analytics/internal/store"
	"github.com/beaconstat/analytics/internal/ua"
)

// Payload is the caller-supplied, already-decoded contents of a single
// beacon event, independent of which adapter (pixel/script-get/script-post)
// produced it.
type Payload struct {
	Idempotency string
	Location    string
	Referrer    string
	LoadTimeMs  *int
	Identifier  string
}

// Clamp normalizes a raw, possibly-absent load time: non-positive values are
// treated as "not measured" rather than a real zero-duration load.
func (p *Payload) Clamp() {
	if p.LoadTimeMs != nil && *p.LoadTimeMs <= 0 {
		p.LoadTimeMs = nil
	}
}

// Outcome classifies what process_ingress actually did, used for metrics and
// logging; it deliberately has no bearing on the HTTP response, which must
// return success even when an event was silently dropped (robot, DNT,
// ignored IP) so the client script never surfaces tracking decisions.
type Outcome string

const (
	OutcomeAccepted      Outcome = "accepted"
	OutcomeRobotIgnored  Outcome = "robot_ignored"
	OutcomeIPIgnored     Outcome = "ip_ignored"
)

// Processor resolves a beacon event into a session+hit pair, deduplicating
// via the in-memory caches before ever touching the database.
type Processor struct {
	store *store.Store
	cache *cache.AppCache
	geo   *geo.Lookup
	ua    *ua.Parser

	blockAllIPs bool
}

// New constructs a Processor.
func New(st *store.Store, c *cache.AppCache, geoLookup *geo.Lookup, uaParser *ua.Parser, blockAllIPs bool) *Processor {
	return &Processor{store: st, cache: c, geo: geoLookup, ua: uaParser, blockAllIPs: blockAllIPs}
}

// Process resolves and persists a single beacon event for svc. ip is the
// already-extracted client IP (privacy.ClientIP having already been
// applied); userAgent is the raw User-Agent header.
func (p *Processor) Process(ctx context.Context, svc domain.Service, tracker domain.TrackerType, payload Payload, ip, userAgent string) (Outcome, error) {
	payload.Clamp()
	now := time.Now().UTC()

	fingerprint := Fingerprint(ip, userAgent, svc.ID, svc.AggressiveSalting, now)

	sessionID, ok := p.cache.GetSessionAssociation(svc.ID.String(), fingerprint)
	var sess domain.Session
	justCreated := false
	if ok {
		p.cache.TouchSessionAssociation(svc.ID.String(), fingerprint)

		parsed, err := uuid.Parse(sessionID)
		if err != nil {
			return "", apperr.InvalidUUID(err)
		}
		sess, err = p.store.GetSession(ctx, parsed)
		if err != nil {
			return "", err
		}

		if err := p.store.UpdateSessionLastSeen(ctx, sess.ID, now); err != nil {
			return "", err
		}
		if payload.Identifier != "" {
			if err := p.store.UpdateSessionIdentifier(ctx, sess.ID, payload.Identifier); err != nil {
				return "", err
			}
		}
	} else {
		parsedUA := p.ua.Parse(userAgent)
		if parsedUA.IsBot && svc.IgnoreRobots {
			return OutcomeRobotIgnored, nil
		}

		geoData := p.geo.Lookup(ip)

		var storedIP *string
		if svc.CollectIPs && !p.blockAllIPs {
			ipCopy := ip
			storedIP = &ipCopy
		}

		newSession := domain.Session{
			ServiceID:  svc.ID,
			IP:         storedIP,
			UserAgent:  userAgent,
			Browser:    parsedUA.Browser,
			OS:         parsedUA.OS,
			Device:     parsedUA.Device,
			DeviceType: domain.DeviceType(parsedUA.DeviceType),
			Country:    geoData.Country,
			ASN:        geoData.ASN,
			Longitude:  geoData.Longitude,
			Latitude:   geoData.Latitude,
			TimeZone:   geoData.TimeZone,
			Identifier: payload.Identifier,
			StartTime:  now,
			LastSeen:   now,
			HitCount:   0,
			IsBounce:   true,
		}

		created, err := p.store.CreateSession(ctx, newSession)
		if err != nil {
			return "", err
		}
		sess = created
		justCreated = true

		p.cache.SetSessionAssociation(svc.ID.String(), fingerprint, sess.ID.String())
	}

	return p.resolveHit(ctx, svc, sess, tracker, payload, now, justCreated)
}

func (p *Processor) resolveHit(ctx context.Context, svc domain.Service, sess domain.Session, tracker domain.TrackerType, payload Payload, now time.Time, isInitial bool) (Outcome, error) {
	if payload.Idempotency == "" {
		if err := p.createHit(ctx, svc, sess, tracker, payload, now, isInitial); err != nil {
			return "", err
		}
		return OutcomeAccepted, nil
	}

	if hitID, ok := p.cache.GetHitIdempotency(svc.ID.String(), payload.Idempotency); ok {
		p.cache.TouchHitIdempotency(svc.ID.String(), payload.Idempotency)
		if err := p.store.UpdateHitHeartbeat(ctx, hitID, now); err != nil {
			return "", err
		}
		return OutcomeAccepted, nil
	}

	if err := p.createHit(ctx, svc, sess, tracker, payload, now, isInitial); err != nil {
		return "", err
	}
	return OutcomeAccepted, nil
}

// createHit inserts a new hit and recomputes the session's bounce status
// from a live count of its hits rather than a separately-maintained counter.
// The two statements are not atomic: a failure between them leaves is_bounce
// stale until the session's next hit insert recomputes it.
func (p *Processor) createHit(ctx context.Context, svc domain.Service, sess domain.Session, tracker domain.TrackerType, payload Payload, now time.Time, isInitial bool) error {
	hit, err := p.store.CreateHit(ctx, domain.Hit{
		SessionID:   sess.ID,
		ServiceID:   svc.ID,
		Tracker:     tracker,
		Location:    payload.Location,
		Referrer:    payload.Referrer,
		LoadTimeMs:  payload.LoadTimeMs,
		Idempotency: payload.Idempotency,
		IsInitial:   isInitial,
		StartTime:   now,
	})
	if err != nil {
		return err
	}

	if payload.Idempotency != "" {
		p.cache.SetHitIdempotency(svc.ID.String(), payload.Idempotency, hit.ID)
	}

	return p.store.RecalculateSessionBounce(ctx, sess.ID)
}
