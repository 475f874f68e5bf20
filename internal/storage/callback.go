package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mvoevodskiy/botcms/pkg/api"
)

// CallbackPrefix marks keys produced by the callback data store
const CallbackPrefix = "cb:"

// CallbackStore persists the whitelisted payloads referenced by the short
// opaque keys embedded in interactive controls. Payloads are read back on
// control activation and never evicted by the store itself; retention is
// bounded only by the configured TTL
type CallbackStore struct {
	store Store
	ttl   time.Duration
}

// NewCallbackStore wraps the shared key-value store. A zero ttl keeps
// payloads forever regardless of the store's default retention
func NewCallbackStore(store Store, ttl time.Duration) *CallbackStore {
	return &CallbackStore{store: store, ttl: ttl}
}

// Build persists the payload and returns the opaque key to embed in the
// control. The key is a content hash of the canonical JSON encoding, so
// identical payloads collapse to one record
func (s *CallbackStore) Build(
	ctx context.Context, data *api.CallbackData,
) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncodeValue, err)
	}
	sum := md5.Sum(raw)
	key := CallbackPrefix + hex.EncodeToString(sum[:])
	if err := s.store.SetTTL(ctx, key, data, s.ttl); err != nil {
		return "", err
	}
	return key, nil
}

// Resolve returns the payload stored behind key, reporting whether it was
// found
func (s *CallbackStore) Resolve(
	ctx context.Context, key string,
) (*api.CallbackData, bool, error) {
	var data api.CallbackData
	ok, err := s.store.Get(ctx, key, &data)
	if err != nil || !ok {
		return nil, false, err
	}
	return &data, true, nil
}
