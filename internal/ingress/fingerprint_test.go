package ingress

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestFingerprintStableForSameInputs(t *testing.T) {
	svc := uuid.New()
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)

	a := Fingerprint("1.2.3.4", "Mozilla/5.0", svc, true, now)
	b := Fingerprint("1.2.3.4", "Mozilla/5.0", svc, true, now)

	assert.Equal(t, a, b)
}

func TestFingerprintSensitiveToIPAndUA(t *testing.T) {
	svc := uuid.New()
	now := time.Now()

	base := Fingerprint("1.2.3.4", "Mozilla/5.0", svc, false, now)
	diffIP := Fingerprint("1.2.3.5", "Mozilla/5.0", svc, false, now)
	diffUA := Fingerprint("1.2.3.4", "curl/8.0", svc, false, now)

	assert.NotEqual(t, base, diffIP)
	assert.NotEqual(t, base, diffUA)
}

func TestFingerprintAggressiveSaltingVariesByServiceAndDay(t *testing.T) {
	svcA := uuid.New()
	svcB := uuid.New()
	day1 := time.Date(2026, 7, 30, 23, 59, 0, 0, time.UTC)
	day2 := time.Date(2026, 7, 31, 0, 1, 0, 0, time.UTC)

	fpSvcA := Fingerprint("1.2.3.4", "Mozilla/5.0", svcA, true, day1)
	fpSvcB := Fingerprint("1.2.3.4", "Mozilla/5.0", svcB, true, day1)
	assert.NotEqual(t, fpSvcA, fpSvcB, "same visitor on different services must not share a fingerprint")

	fpDay1 := Fingerprint("1.2.3.4", "Mozilla/5.0", svcA, true, day1)
	fpDay2 := Fingerprint("1.2.3.4", "Mozilla/5.0", svcA, true, day2)
	assert.NotEqual(t, fpDay1, fpDay2, "aggressive salting must roll the fingerprint across a day boundary")
}

func TestFingerprintWithoutAggressiveSaltingIgnoresServiceAndDay(t *testing.T) {
	svcA := uuid.New()
	svcB := uuid.New()
	day1 := time.Date(2026, 7, 30, 23, 59, 0, 0, time.UTC)
	day2 := time.Date(2026, 7, 31, 0, 1, 0, 0, time.UTC)

	fpA := Fingerprint("1.2.3.4", "Mozilla/5.0", svcA, false, day1)
	fpB := Fingerprint("1.2.3.4", "Mozilla/5.0", svcB, false, day2)

	assert.Equal(t, fpA, fpB, "without aggressive salting, the fingerprint must depend only on ip+ua")
}
