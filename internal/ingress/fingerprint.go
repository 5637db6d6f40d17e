package ingress

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/beaconstat/analytics/internal/domain"
)

// Fingerprint computes the stable key used to recognize repeat beacons from
// the same visitor within a session window, without ever persisting the raw
// IP/UA pair as the key itself.
//
// With AggressiveSalting, the hash additionally incorporates the service ID
// and the current UTC day, so the same visitor fingerprints differently on
// every service and every day — trading session-merge accuracy across
// midnight for a meaningfully smaller linkability window if the hash were
// ever to leak. Without it, the hash is stable for as long as IP+UA stay
// constant, which merges same-day and cross-midnight sessions more
// aggressively at the cost of a longer-lived fingerprint.
func Fingerprint(ip, userAgent string, serviceID domain.ServiceID, aggressiveSalting bool, now time.Time) string {
	h := sha256.New()
	h.Write([]byte(ip))
	h.Write([]byte{0})
	h.Write([]byte(userAgent))

	if aggressiveSalting {
		h.Write([]byte{0})
		h.Write([]byte(serviceID.String()))
		h.Write([]byte{0})
		h.Write([]byte(now.UTC().Format("2006-01-02")))
	}

	return hex.EncodeToString(h.Sum(nil))
}
