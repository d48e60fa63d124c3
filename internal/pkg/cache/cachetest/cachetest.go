// Package cachetest finds a reachable Redis for integration tests and skips
// the test when there is none.
package cachetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/MoviAPI/internal/pkg/env"
)

func resolve(t testing.TB) (string, string) {
	t.Helper()

	var candidates []string
	seen := map[string]struct{}{}
	for _, host := range []string{env.GetEnv("CACHE_HOST", ""), "cache", "localhost", "127.0.0.1"} {
		if host == "" {
			continue
		}
		addr := fmt.Sprintf("%s:%s", host, env.GetEnv("CACHE_PORT", "6379"))
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		candidates = append(candidates, addr)
	}
	password := env.GetEnv("CACHE_PASSWORD", "")

	var lastErr error
	for _, addr := range candidates {
		client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_, err := client.Ping(ctx).Result()
		cancel()
		_ = client.Close()
		if err == nil {
			return addr, password
		}
		lastErr = err
	}

	t.Skipf("Skipping Redis-dependent test: no reachable Redis endpoint (%v)", lastErr)
	return "", ""
}

// NewIsolatedClient returns a client on a flushed logical database that is
// flushed again when the test ends.
func NewIsolatedClient(t testing.TB, db int) *redis.Client {
	t.Helper()

	addr, password := resolve(t)
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	_, err := client.Ping(ctx).Result()
	cancel()
	if err != nil {
		_ = client.Close()
		t.Skipf("Skipping Redis-dependent test: isolated DB ping failed (%v)", err)
	}

	if err := client.FlushDB(context.Background()).Err(); err != nil {
		_ = client.Close()
		t.Fatalf("failed to flush isolated redis db %d: %v", db, err)
	}

	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return client
}
