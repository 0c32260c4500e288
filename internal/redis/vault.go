package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pscheid92/coplay/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const stateKeyPrefix = "coplay:state:"

// StateVault stores opaque save-state blobs in Redis with a TTL.
type StateVault struct {
	rdb *goredis.Client
	ttl time.Duration
}

var _ domain.StateVault = (*StateVault)(nil)

// NewStateVault creates a vault whose entries expire after ttl.
func NewStateVault(rdb *goredis.Client, ttl time.Duration) *StateVault {
	return &StateVault{rdb: rdb, ttl: ttl}
}

func stateKey(ref domain.StateRef) string {
	return stateKeyPrefix + string(ref)
}

// Put stores a blob under ref, refreshing the TTL on overwrite.
func (v *StateVault) Put(ctx context.Context, ref domain.StateRef, blob []byte) error {
	if err := v.rdb.Set(ctx, stateKey(ref), blob, v.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store save state: %w", err)
	}
	return nil
}

// Get retrieves the blob for ref. Returns an error for unknown or expired refs.
func (v *StateVault) Get(ctx context.Context, ref domain.StateRef) ([]byte, error) {
	data, err := v.rdb.Get(ctx, stateKey(ref)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("save state %s not found", ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load save state: %w", err)
	}
	return data, nil
}

// Delete removes the blob for ref. Deleting an unknown ref is not an error.
func (v *StateVault) Delete(ctx context.Context, ref domain.StateRef) error {
	if err := v.rdb.Del(ctx, stateKey(ref)).Err(); err != nil {
		return fmt.Errorf("failed to delete save state: %w", err)
	}
	return nil
}
