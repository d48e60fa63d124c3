package session

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"
	goredis "github.com/redis/go-redis/v9"
)

const (
	sessionDatabase   = 1
	sessionExpiration = 24 * time.Hour
)

// NewSessionStore keeps web sessions in the cache server, in a separate
// logical database from the application cache. Without a cache client the
// store falls back to fiber's in-memory storage.
func NewSessionStore(cacheClient *goredis.Client, secureCookie bool) *session.Store {
	cfg := session.Config{
		CookieHTTPOnly: true,
		CookieSecure:   secureCookie,
		CookieSameSite: "Lax",
		Expiration:     sessionExpiration,
		KeyLookup:      "cookie:session_id",
	}
	if cacheClient == nil {
		return session.New(cfg)
	}

	host := "localhost"
	port := 6379
	opts := cacheClient.Options()
	if h, p, err := net.SplitHostPort(opts.Addr); err == nil {
		host = h
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	cfg.Storage = redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: opts.Password,
		Database: sessionDatabase,
		Reset:    false,
	})
	return session.New(cfg)
}
