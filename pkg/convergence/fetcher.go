package convergence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const defaultFetchTimeout = 5 * time.Second

// HTTPBalanceFetcher reads the balance from GET /api/v1/account using an
// API key.
type HTTPBalanceFetcher struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type accountResponse struct {
	Credits *int64 `json:"credits"`
	Error   string `json:"error"`
}

func (f *HTTPBalanceFetcher) FetchBalance(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	agent := fiber.Get(strings.TrimRight(f.BaseURL, "/") + "/api/v1/account")
	agent.Set(fiber.HeaderAuthorization, "Bearer "+f.APIKey)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	agent.Timeout(timeout)

	var body accountResponse
	code, _, errs := agent.Struct(&body)
	if len(errs) > 0 {
		return 0, fmt.Errorf("fetch balance: %w", errors.Join(errs...))
	}
	if code != fiber.StatusOK {
		return 0, fmt.Errorf("fetch balance: status %d %s", code, body.Error)
	}
	if body.Credits == nil {
		return 0, errors.New("fetch balance: response has no credits")
	}
	return *body.Credits, nil
}
