package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"formgate/internal/model"
)

// FormCache keeps recently used form schemas in Redis
type FormCache interface {
	Get(ctx context.Context, formID string) (*model.Form, error)
	Set(ctx context.Context, form *model.Form) error
	Invalidate(ctx context.Context, formID string) error
}

type formCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewFormCache creates a new form cache
func NewFormCache(client *redis.Client, ttl time.Duration) FormCache {
	return &formCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *formCache) key(formID string) string {
	return fmt.Sprintf("form:%s", formID)
}

func (c *formCache) Get(ctx context.Context, formID string) (*model.Form, error) {
	data, err := c.client.Get(ctx, c.key(formID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var form model.Form
	if err := json.Unmarshal(data, &form); err != nil {
		return nil, err
	}
	return &form, nil
}

func (c *formCache) Set(ctx context.Context, form *model.Form) error {
	data, err := json.Marshal(form)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(form.ID), data, c.ttl).Err()
}

func (c *formCache) Invalidate(ctx context.Context, formID string) error {
	return c.client.Del(ctx, c.key(formID)).Err()
}
