package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"netvoya-bot/internal/request"
	"netvoya-bot/pkg/api"
	"netvoya-bot/pkg/redis"
)

const catalogCacheTTL = 5 * time.Minute

// StateStorage keeps per-chat wizard sessions and small caches in
// redis. A missing session is a fresh one; nothing is persisted across
// the TTL.
type StateStorage struct {
	redis *redis.Client
}

func NewStateStorage(redisClient *redis.Client) *StateStorage {
	return &StateStorage{redis: redisClient}
}

// GetRequest loads the chat's wizard session, or starts a new one when
// none exists.
func (s *StateStorage) GetRequest(ctx context.Context, chatID int64) (*request.State, error) {
	data, err := s.redis.Get(ctx, stateKey(chatID))
	if redis.IsNil(err) {
		return request.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state: %w", err)
	}

	var state request.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if state.Quantities == nil {
		state.Quantities = map[string]int{}
	}
	return &state, nil
}

// SaveRequest stores the chat's wizard session with the default TTL.
func (s *StateStorage) SaveRequest(ctx context.Context, chatID int64, state *request.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := s.redis.SetDefault(ctx, stateKey(chatID), data); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// ClearRequest drops the chat's wizard session.
func (s *StateStorage) ClearRequest(ctx context.Context, chatID int64) error {
	if err := s.redis.Del(ctx, stateKey(chatID)); err != nil {
		return fmt.Errorf("failed to clear state: %w", err)
	}
	return nil
}

// CachedCatalog returns the last fetched live catalog, if still fresh.
func (s *StateStorage) CachedCatalog(ctx context.Context) ([]api.Package, bool) {
	data, err := s.redis.Get(ctx, "catalog:live")
	if err != nil {
		return nil, false
	}

	var pkgs []api.Package
	if err := json.Unmarshal(data, &pkgs); err != nil {
		return nil, false
	}
	return pkgs, true
}

// CacheCatalog stores a fetched live catalog for a few minutes so
// selection toggles do not refetch on every tap.
func (s *StateStorage) CacheCatalog(ctx context.Context, pkgs []api.Package) error {
	data, err := json.Marshal(pkgs)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	return s.redis.Set(ctx, "catalog:live", data, catalogCacheTTL)
}

// NotificationCursor returns the id of the last backend notification
// already delivered to admins.
func (s *StateStorage) NotificationCursor(ctx context.Context) string {
	data, err := s.redis.Get(ctx, "notifications:cursor")
	if err != nil {
		return ""
	}
	return string(data)
}

// SetNotificationCursor advances the delivered-notification cursor.
func (s *StateStorage) SetNotificationCursor(ctx context.Context, id string) error {
	return s.redis.Set(ctx, "notifications:cursor", []byte(id), 0)
}

func stateKey(chatID int64) string {
	return fmt.Sprintf("state:%d", chatID)
}
