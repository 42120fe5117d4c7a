// Package limiter throttles peers that keep presenting bad credentials.
package limiter

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net"
	"time"
)

// Limiter counts authentication failures per peer and places temporary blocks.
type Limiter interface {
	// Allow reports whether the peer may authenticate now and an optional retry-after.
	Allow(ctx context.Context, peer []byte) (bool, time.Duration, error)
	// Failure records a failed attempt; may place a temporary block.
	Failure(ctx context.Context, peer []byte) (bool, time.Duration, error)
}

// Settings shape the sliding window and the lockout.
type Settings struct {
	Window   time.Duration
	MaxFails int
	BlockFor time.Duration
}

// BlockedError is returned by Check while a peer is blocked.
type BlockedError struct {
	RetryAfter time.Duration
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("too many failed attempts, retry in %s", e.RetryAfter.Round(time.Second))
}

// HashPeer returns a stable hash of the host part of addr so raw addresses are never stored.
func HashPeer(addr string) []byte {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	h := sha256.Sum256([]byte(addr))
	return h[:]
}

// Check runs verify for peer unless the peer is blocked and records a
// failure when verify fails. Limiter storage errors never reject a request.
// A nil Limiter only runs verify.
func Check(ctx context.Context, l Limiter, peer string, verify func() error) error {
	if l == nil {
		return verify()
	}
	key := HashPeer(peer)
	if ok, retry, err := l.Allow(ctx, key); err == nil && !ok {
		return &BlockedError{RetryAfter: retry}
	}
	vErr := verify()
	if vErr == nil {
		return nil
	}
	if blocked, retry, err := l.Failure(ctx, key); err == nil && blocked {
		return &BlockedError{RetryAfter: retry}
	}
	return vErr
}
