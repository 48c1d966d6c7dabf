package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
)

func TestTokenBucket_BurstThenReject(t *testing.T) {
	l := NewTokenBucketLimiter(map[string]TierConfig{
		DefaultTier: {RequestsPerSecond: 0.001, Burst: 3},
	}, nil)
	id := &Identity{Subject: "alice"}
	r := httptest.NewRequest("POST", "/invoke", nil)

	for i := 0; i < 3; i++ {
		if _, err := l.Allow(r, id); err != nil {
			t.Fatalf("request %d: unexpected error %v", i+1, err)
		}
	}
	tier, err := l.Allow(r, id)
	if !errors.Is(err, ErrTooManyRequests) {
		t.Fatalf("err = %v, want ErrTooManyRequests", err)
	}
	if tier != DefaultTier {
		t.Errorf("tier = %q, want %q", tier, DefaultTier)
	}
}

func TestTokenBucket_PerCaller(t *testing.T) {
	l := NewTokenBucketLimiter(map[string]TierConfig{
		DefaultTier: {RequestsPerSecond: 0.001, Burst: 1},
	}, nil)
	r := httptest.NewRequest("POST", "/invoke", nil)

	if _, err := l.Allow(r, &Identity{Subject: "alice"}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Allow(r, &Identity{Subject: "bob"}); err != nil {
		t.Errorf("bob should have his own bucket: %v", err)
	}
	if _, err := l.Allow(r, &Identity{Subject: "alice"}); err == nil {
		t.Error("alice's second request should be rejected")
	}
}

func TestTokenBucket_AnonymousByAddress(t *testing.T) {
	l := NewTokenBucketLimiter(map[string]TierConfig{
		DefaultTier: {RequestsPerSecond: 0.001, Burst: 1},
	}, nil)
	anon := &Identity{Subject: AnonymousSubject}

	r1 := httptest.NewRequest("GET", "/skills", nil)
	r1.RemoteAddr = "10.0.0.1:5000"
	r2 := httptest.NewRequest("GET", "/skills", nil)
	r2.RemoteAddr = "10.0.0.2:5000"

	if _, err := l.Allow(r1, anon); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Allow(r2, anon); err != nil {
		t.Errorf("second address should have its own bucket: %v", err)
	}
	r1.RemoteAddr = "10.0.0.1:6000"
	if _, err := l.Allow(r1, anon); err == nil {
		t.Error("same address on a new port should share the bucket")
	}
}

func TestTokenBucket_RouteTier(t *testing.T) {
	l := NewTokenBucketLimiter(map[string]TierConfig{
		DefaultTier:      {RequestsPerSecond: 0.001, Burst: 1},
		FileMetadataTier: {RequestsPerSecond: 0.001, Burst: 2},
	}, RouteTier)
	id := &Identity{Subject: "alice"}

	meta := httptest.NewRequest("GET", "/files/file_1/metadata", nil)
	for i := 0; i < 2; i++ {
		tier, err := l.Allow(meta, id)
		if err != nil {
			t.Fatalf("metadata request %d: %v", i+1, err)
		}
		if tier != FileMetadataTier {
			t.Errorf("tier = %q, want %q", tier, FileMetadataTier)
		}
	}

	// Metadata lookups draw from their own bucket.
	if _, err := l.Allow(httptest.NewRequest("POST", "/invoke", nil), id); err != nil {
		t.Errorf("default tier should be untouched: %v", err)
	}
}

func TestTokenBucket_UnknownTierFallsBack(t *testing.T) {
	l := NewTokenBucketLimiter(map[string]TierConfig{
		DefaultTier: {RequestsPerSecond: 0.001, Burst: 1},
	}, nil)
	id := &Identity{Subject: "alice", ServiceTier: "gold"}
	r := httptest.NewRequest("POST", "/invoke", nil)

	tier, err := l.Allow(r, id)
	if err != nil {
		t.Fatal(err)
	}
	if tier != DefaultTier {
		t.Errorf("tier = %q, want %q", tier, DefaultTier)
	}
}

func TestTokenBucket_ZeroRateUnlimited(t *testing.T) {
	l := NewTokenBucketLimiter(map[string]TierConfig{}, nil)
	r := httptest.NewRequest("POST", "/invoke", nil)
	for i := 0; i < 50; i++ {
		if _, err := l.Allow(r, &Identity{Subject: "alice"}); err != nil {
			t.Fatalf("request %d rejected: %v", i+1, err)
		}
	}
}
