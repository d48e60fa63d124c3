package counter

import (
	"context"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	webhookOutcomesKey = "billing:counters:webhook"
	checkoutKey        = "billing:counters:checkout"
)

// Counter accumulates billing outcome counts in Redis hashes. A nil Counter
// or one without a client silently drops increments.
type Counter struct {
	client *redis.Client
}

func New(client *redis.Client) *Counter {
	return &Counter{client: client}
}

// AddWebhookOutcome counts a webhook delivery by its outcome label.
func (c *Counter) AddWebhookOutcome(ctx context.Context, outcome string) error {
	return c.incr(ctx, webhookOutcomesKey, outcome)
}

// AddCheckout counts checkout attempts by result ("created", "rejected", "failed").
func (c *Counter) AddCheckout(ctx context.Context, result string) error {
	return c.incr(ctx, checkoutKey, result)
}

func (c *Counter) incr(ctx context.Context, key, field string) error {
	if c == nil || c.client == nil || field == "" {
		return nil
	}
	return c.client.HIncrBy(ctx, key, field, 1).Err()
}

// Sample is a single labelled counter value.
type Sample struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Value int64  `json:"value"`
}

// Snapshot reads all counters, sorted by name and label.
func (c *Counter) Snapshot(ctx context.Context) ([]Sample, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}
	var out []Sample
	for name, key := range map[string]string{"webhook_events": webhookOutcomesKey, "checkout_sessions": checkoutKey} {
		data, err := c.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		for label, raw := range data {
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				continue
			}
			out = append(out, Sample{Name: name, Label: label, Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Label < out[j].Label
	})
	return out, nil
}
