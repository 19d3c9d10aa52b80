package webhook

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type memGuard struct{ seen map[string]bool }

func (g *memGuard) Claim(_ context.Context, token string) (bool, error) {
	if g.seen[token] {
		return false, nil
	}
	g.seen[token] = true
	return true, nil
}

type brokenGuard struct{}

func (brokenGuard) Claim(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

func fixedVerifier(guard ReplayGuard, now time.Time) *Verifier {
	v := NewVerifier("secret-key", 300*time.Second, guard)
	v.clock = func() time.Time { return now }
	return v
}

func TestVerify_AcceptsValidSignature(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := fixedVerifier(nil, now)
	ts := strconv.FormatInt(now.Unix(), 10)

	if err := v.Verify(context.Background(), ts, "tok-1", Sign([]byte("secret-key"), ts, "tok-1")); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
}

func TestVerify_Rejections(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	ts := strconv.FormatInt(now.Unix(), 10)
	old := strconv.FormatInt(now.Add(-301*time.Second).Unix(), 10)
	future := strconv.FormatInt(now.Add(301*time.Second).Unix(), 10)
	key := []byte("secret-key")

	cases := []struct {
		name      string
		ts, token string
		sig       string
		want      error
	}{
		{"missing signature", ts, "tok", "", ErrMissingField},
		{"missing token", ts, "", Sign(key, ts, ""), ErrMissingField},
		{"non numeric timestamp", "yesterday", "tok", Sign(key, "yesterday", "tok"), ErrInvalidTimestamp},
		{"stale", old, "tok", Sign(key, old, "tok"), ErrStaleTimestamp},
		{"future", future, "tok", Sign(key, future, "tok"), ErrStaleTimestamp},
		{"wrong key", ts, "tok", Sign([]byte("other"), ts, "tok"), ErrBadSignature},
		{"tampered token", ts, "tok2", Sign(key, ts, "tok"), ErrBadSignature},
	}
	v := fixedVerifier(nil, now)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := v.Verify(context.Background(), tc.ts, tc.token, tc.sig); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestVerify_FailsClosedWithoutKey(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := NewVerifier("", 0, nil)
	v.clock = func() time.Time { return now }
	ts := strconv.FormatInt(now.Unix(), 10)

	if err := v.Verify(context.Background(), ts, "tok", Sign(nil, ts, "tok")); !errors.Is(err, ErrSigningKeyUnset) {
		t.Fatalf("expected ErrSigningKeyUnset, got %v", err)
	}
}

func TestVerify_ReplayedTokenRejected(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := fixedVerifier(&memGuard{seen: map[string]bool{}}, now)
	ts := strconv.FormatInt(now.Unix(), 10)
	sig := Sign([]byte("secret-key"), ts, "tok")

	if err := v.Verify(context.Background(), ts, "tok", sig); err != nil {
		t.Fatalf("first use: %v", err)
	}
	if err := v.Verify(context.Background(), ts, "tok", sig); !errors.Is(err, ErrReplayedToken) {
		t.Fatalf("expected ErrReplayedToken, got %v", err)
	}
}

func TestVerify_GuardErrorRejects(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := fixedVerifier(brokenGuard{}, now)
	ts := strconv.FormatInt(now.Unix(), 10)

	if err := v.Verify(context.Background(), ts, "tok", Sign([]byte("secret-key"), ts, "tok")); err == nil {
		t.Fatalf("expected guard failure to reject")
	}
}

func TestRedisReplayGuard(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	g := NewRedisReplayGuard(rdb, 300*time.Second)
	ctx := context.Background()

	ok, err := g.Claim(ctx, "abc")
	if err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}
	ok, err = g.Claim(ctx, "abc")
	if err != nil || ok {
		t.Fatalf("second claim: ok=%v err=%v", ok, err)
	}
	if ttl := mr.TTL("webhook:token:abc"); ttl != 600*time.Second {
		t.Fatalf("expected ttl 600s, got %v", ttl)
	}
}
