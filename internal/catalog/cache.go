package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const activeEventsKey = "events:active"

// Cache guarda a lista de eventos ativos no Redis com TTL curto.
// Alivia o Postgres na rota mais quente (listar eventos no front-end);
// qualquer erro de cache é tratado como miss.
type Cache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewCache(c *redis.Client, ttl time.Duration) *Cache {
	return &Cache{Client: c, TTL: ttl}
}

// GetActive retorna (eventos, hit) a partir do cache
func (c *Cache) GetActive(ctx context.Context) ([]Event, bool) {
	b, err := c.Client.Get(ctx, activeEventsKey).Bytes()
	if err != nil {
		return nil, false
	}
	var out []Event
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, false
	}
	return out, true
}

// SetActive grava a lista de eventos ativos com o TTL configurado
func (c *Cache) SetActive(ctx context.Context, events []Event) error {
	b, err := json.Marshal(events)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, activeEventsKey, b, c.TTL).Err()
}

// Invalidate derruba o cache após mutações do catálogo
// (sync com inserção, override de odds, desativação pelo settlement)
func (c *Cache) Invalidate(ctx context.Context) error {
	return c.Client.Del(ctx, activeEventsKey).Err()
}
