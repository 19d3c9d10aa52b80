package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingField     = errors.New("webhook: missing signature field")
	ErrSigningKeyUnset  = errors.New("webhook: signing key not configured")
	ErrInvalidTimestamp = errors.New("webhook: invalid timestamp")
	ErrStaleTimestamp   = errors.New("webhook: timestamp outside replay window")
	ErrBadSignature     = errors.New("webhook: signature mismatch")
	ErrReplayedToken    = errors.New("webhook: token already used")
)

// DefaultReplayWindow is the maximum allowed drift between a delivery timestamp and now.
const DefaultReplayWindow = 300 * time.Second

// ReplayGuard remembers one-time tokens. Claim returns false when the token was seen before.
type ReplayGuard interface {
	Claim(ctx context.Context, token string) (bool, error)
}

// Verifier authenticates inbound email deliveries signed with a shared key.
// Every failure path returns an error; callers must treat any error as a rejection.
type Verifier struct {
	key    []byte
	window time.Duration
	guard  ReplayGuard
	clock  func() time.Time
}

// NewVerifier builds a Verifier. guard may be nil, in which case only the timestamp window bounds replays.
func NewVerifier(signingKey string, window time.Duration, guard ReplayGuard) *Verifier {
	if window <= 0 {
		window = DefaultReplayWindow
	}
	return &Verifier{key: []byte(signingKey), window: window, guard: guard, clock: time.Now}
}

// Verify checks hex(HMAC-SHA256(key, timestamp+token)) against signature and enforces the replay window.
func (v *Verifier) Verify(ctx context.Context, timestamp, token, signature string) error {
	timestamp = strings.TrimSpace(timestamp)
	token = strings.TrimSpace(token)
	signature = strings.ToLower(strings.TrimSpace(signature))
	if timestamp == "" || token == "" || signature == "" {
		return ErrMissingField
	}
	if v == nil || len(v.key) == 0 {
		return ErrSigningKeyUnset
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrInvalidTimestamp
	}
	drift := v.clock().Sub(time.Unix(ts, 0))
	if drift < 0 {
		drift = -drift
	}
	if drift > v.window {
		return ErrStaleTimestamp
	}

	expected := Sign(v.key, timestamp, token)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrBadSignature
	}

	// Only burn the token once the signature proved the sender knows the key.
	if v.guard != nil {
		fresh, err := v.guard.Claim(ctx, token)
		if err != nil {
			return fmt.Errorf("webhook: replay guard: %w", err)
		}
		if !fresh {
			return ErrReplayedToken
		}
	}
	return nil
}

// Sign returns the lowercase hex signature for a timestamp/token pair.
func Sign(key []byte, timestamp, token string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(timestamp))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}
