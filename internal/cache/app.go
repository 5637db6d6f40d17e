package cache

import (
	"fmt"
	"time"
)

// AppConfig sizes the four caches relative to a single MaxEntries knob and a
// pair of TTLs: short-lived config caches (origins, script inject) and the
// longer-lived per-visitor caches (session association, hit idempotency).
type AppConfig struct {
	MaxEntries             int
	CacheTTL               time.Duration // origins, script inject
	SessionMemoryTimeout   time.Duration // session association, hit idempotency
	CleanupInterval        time.Duration
}

// AppCache bundles the four named caches used by the ingestion pipeline.
// Sizes scale with MaxEntries: origins and script-inject are keyed per
// service (one entry each), session associations are keyed per visitor
// fingerprint (an order of magnitude more), and hit idempotency keys are
// keyed per in-flight pageview (two orders of magnitude more).
type AppCache struct {
	Origins             *Cache
	ScriptInject        *Cache
	SessionAssociations *Cache
	HitIdempotency      *Cache
}

// NewAppCache constructs the four caches per AppConfig.
func NewAppCache(cfg AppConfig) *AppCache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1000
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.SessionMemoryTimeout <= 0 {
		cfg.SessionMemoryTimeout = 30 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}

	mk := func(size int, ttl time.Duration) *Cache {
		return New(Config{DefaultTTL: ttl, MaxSize: size, CleanupInterval: cfg.CleanupInterval})
	}

	return &AppCache{
		Origins:             mk(cfg.MaxEntries, cfg.CacheTTL),
		ScriptInject:        mk(cfg.MaxEntries, cfg.CacheTTL),
		SessionAssociations: mk(cfg.MaxEntries*10, cfg.SessionMemoryTimeout),
		HitIdempotency:      mk(cfg.MaxEntries*100, cfg.SessionMemoryTimeout),
	}
}

func originsKey(serviceID string) string      { return "origins_" + serviceID }
func scriptInjectKey(serviceID string) string { return "script_inject_" + serviceID }

// GetOrInsertOrigins returns the cached origins string for serviceID,
// invoking compute and caching its result on a miss.
func (a *AppCache) GetOrInsertOrigins(serviceID string, compute func() (string, error)) (string, error) {
	key := originsKey(serviceID)
	if v, ok := a.Origins.Get(key); ok {
		return v.(string), nil
	}
	value, err := compute()
	if err != nil {
		return "", err
	}
	a.Origins.Set(key, value, 0)
	return value, nil
}

// GetOrInsertScriptInject returns the cached inject snippet for serviceID,
// invoking compute and caching its result on a miss.
func (a *AppCache) GetOrInsertScriptInject(serviceID string, compute func() (string, error)) (string, error) {
	key := scriptInjectKey(serviceID)
	if v, ok := a.ScriptInject.Get(key); ok {
		return v.(string), nil
	}
	value, err := compute()
	if err != nil {
		return "", err
	}
	a.ScriptInject.Set(key, value, 0)
	return value, nil
}

// InvalidateService clears any cached origins/script-inject entries for a
// service, used after it is updated or deleted.
func (a *AppCache) InvalidateService(serviceID string) {
	a.Origins.Invalidate(originsKey(serviceID))
	a.ScriptInject.Invalidate(scriptInjectKey(serviceID))
}

func sessionAssociationKey(serviceID, fingerprint string) string {
	return fmt.Sprintf("session_%s_%s", serviceID, fingerprint)
}

// GetSessionAssociation returns the session ID previously associated with a
// visitor fingerprint, if still cached.
func (a *AppCache) GetSessionAssociation(serviceID, fingerprint string) (string, bool) {
	v, ok := a.SessionAssociations.Get(sessionAssociationKey(serviceID, fingerprint))
	if !ok {
		return "", false
	}
	return v.(string), true
}

// SetSessionAssociation caches sessionID for a visitor fingerprint.
func (a *AppCache) SetSessionAssociation(serviceID, fingerprint, sessionID string) {
	a.SessionAssociations.Set(sessionAssociationKey(serviceID, fingerprint), sessionID, 0)
}

// TouchSessionAssociation resets a session association's TTL, keeping an
// active visitor's session alive across repeat beacons.
func (a *AppCache) TouchSessionAssociation(serviceID, fingerprint string) bool {
	return a.SessionAssociations.Touch(sessionAssociationKey(serviceID, fingerprint), 0)
}

func hitIdempotencyKey(serviceID, idempotencyKey string) string {
	return fmt.Sprintf("hit_%s_%s", serviceID, idempotencyKey)
}

// GetHitIdempotency returns the hit ID previously recorded for an
// idempotency key, if still cached.
func (a *AppCache) GetHitIdempotency(serviceID, idempotencyKey string) (int64, bool) {
	v, ok := a.HitIdempotency.Get(hitIdempotencyKey(serviceID, idempotencyKey))
	if !ok {
		return 0, false
	}
	return v.(int64), true
}

// SetHitIdempotency caches hitID for an idempotency key.
func (a *AppCache) SetHitIdempotency(serviceID, idempotencyKey string, hitID int64) {
	a.HitIdempotency.Set(hitIdempotencyKey(serviceID, idempotencyKey), hitID, 0)
}

// TouchHitIdempotency resets a hit idempotency entry's TTL, used on
// heartbeats so a long-lived tab keeps deduplicating against the same hit.
func (a *AppCache) TouchHitIdempotency(serviceID, idempotencyKey string) bool {
	return a.HitIdempotency.Touch(hitIdempotencyKey(serviceID, idempotencyKey), 0)
}
