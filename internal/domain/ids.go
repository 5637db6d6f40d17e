// Package domain holds the core entities tracked by the ingestion and
// analytics pipeline: services, sessions and hits.
package domain

import (
	"crypto/rand"

	"github.com/google/uuid"
)

// ServiceID identifies a tracked site/application.
type ServiceID = uuid.UUID

// SessionID identifies a single visitor session.
type SessionID = uuid.UUID

// HitID identifies a single pageview/beacon within a session.
type HitID = int64

// NewServiceID generates a fresh random service identifier.
func NewServiceID() ServiceID {
	return uuid.New()
}

// NewSessionID generates a fresh random session identifier.
func NewSessionID() SessionID {
	return uuid.New()
}

// trackingIDAlphabet leaves out the characters most often confused when
// read aloud or copy-pasted (0/O, 1/I/L).
const trackingIDAlphabet = "abcdefghjkmnpqrstuvwxyz23456789"

// NewTrackingID returns a short, URL-safe public identifier for a service:
// eight characters drawn from trackingIDAlphabet.
// Unlike ServiceID (the internal primary key), the tracking ID is embedded in
// client-facing beacon URLs and the tracker script, so it is deliberately
// short and carries no structure that could be reverse-engineered.
func NewTrackingID() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand.Read on the stdlib's default source never fails in
		// practice; fall back to a fixed-but-unique-enough value rather
		// than panicking in a request path.
		for i := range buf {
			buf[i] = byte(i) + 1
		}
	}
	out := make([]byte, len(buf))
	for i, b := range buf {
		out[i] = trackingIDAlphabet[int(b)%len(trackingIDAlphabet)]
	}
	return string(out)
}
