package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// claimPlaceholder marks a key claimed before the payment row exists.
const claimPlaceholder = "claimed"

func idempotencyKey(key string) string {
	return fmt.Sprintf("idem:%s", key)
}

// ClaimIdempotencyKey atomically binds an idempotency key to a not-yet-created
// payment. Returns true when this caller won the claim. Callers that lose must
// re-read the durable store. When the cache is disabled every caller "wins"
// and the durable unique index is the only guard.
func ClaimIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if !Enabled() {
		return true, nil
	}
	return SetNX(ctx, idempotencyKey(key), claimPlaceholder, ttl)
}

// BindIdempotencyKey overwrites a claim with the created payment id so later
// duplicates resolve without a database read.
func BindIdempotencyKey(ctx context.Context, key string, paymentID uint, ttl time.Duration) error {
	return SetString(ctx, idempotencyKey(key), strconv.FormatUint(uint64(paymentID), 10), ttl)
}

// LookupIdempotencyKey resolves a key to a payment id. A claim that has not
// been bound yet resolves to (0, true): the payment is in flight.
func LookupIdempotencyKey(ctx context.Context, key string) (uint, bool, error) {
	val, hit, err := GetString(ctx, idempotencyKey(key))
	if err != nil || !hit {
		return 0, hit, err
	}
	if val == claimPlaceholder {
		return 0, true, nil
	}
	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return uint(id), true, nil
}

// ReleaseIdempotencyKey drops a claim after a failed creation so a legitimate
// retry is not blocked for the full TTL.
func ReleaseIdempotencyKey(ctx context.Context, key string) error {
	return Del(ctx, idempotencyKey(key))
}
