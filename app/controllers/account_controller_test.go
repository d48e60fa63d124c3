package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/MoviAPI/app/models"
	"github.com/ManuelReschke/MoviAPI/app/repository"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/billing"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/config"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/database/dbtest"
	"github.com/ManuelReschke/MoviAPI/internal/pkg/middleware"
)

type accountHarness struct {
	app   *fiber.App
	repos *repository.Repositories
}

func newAccountHarness(t *testing.T) *accountHarness {
	t.Helper()

	db := dbtest.New(t)
	repos := repository.NewRepositories(db)
	catalog, err := billing.NewCatalog(billing.DefaultProducts(config.StripeConfig{}), 100)
	require.NoError(t, err)
	svc := billing.NewServiceFromDB(db, billing.Options{Catalog: catalog})

	store := session.New()
	auth := NewAuthController(repos.User, store)
	account := NewAccountController(repos, svc)

	app := fiber.New()
	app.Use(middleware.UserContextMiddleware(store))
	app.Post("/auth/signup", auth.HandleSignUp)
	app.Post("/auth/signin", auth.HandleSignIn)
	app.Post("/auth/signout", auth.HandleSignOut)
	app.Get("/auth/session", auth.HandleGetSession)

	requireAPIAuth := middleware.APIKeyAuthMiddleware(repos.APIKey)
	app.Get("/api/v1/account", requireAPIAuth, account.HandleGetAccount)
	app.Get("/api/v1/orders", requireAPIAuth, account.HandleListOrders)
	app.Post("/api/v1/account/api-key", middleware.RequireSession, account.HandleCreateAPIKey)

	return &accountHarness{app: app, repos: repos}
}

type jsonResponse struct {
	status  int
	body    map[string]interface{}
	cookies []*http.Cookie
}

func (h *accountHarness) send(t *testing.T, method, path, body string, mutate func(*http.Request)) jsonResponse {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if mutate != nil {
		mutate(req)
	}

	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := jsonResponse{status: resp.StatusCode, body: map[string]interface{}{}, cookies: resp.Cookies()}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out.body), string(raw))
	}
	return out
}

func withCookies(cookies []*http.Cookie) func(*http.Request) {
	return func(req *http.Request) {
		for _, c := range cookies {
			req.AddCookie(c)
		}
	}
}

func withBearer(key string) func(*http.Request) {
	return func(req *http.Request) {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+key)
	}
}

func TestSignUpSignInFlow(t *testing.T) {
	h := newAccountHarness(t)

	signup := h.send(t, http.MethodPost, "/auth/signup", `{"name":"Ada","email":"Ada@Example.com","password":"render-all-day"}`, nil)
	require.Equal(t, fiber.StatusCreated, signup.status, signup.body)
	user := signup.body["user"].(map[string]interface{})
	assert.Equal(t, "ada@example.com", user["email"])
	assert.True(t, models.IsValidUserID(user["id"].(string)))

	dup := h.send(t, http.MethodPost, "/auth/signup", `{"name":"Ada","email":"ada@example.com","password":"render-all-day"}`, nil)
	assert.Equal(t, fiber.StatusConflict, dup.status)
	assert.Equal(t, "email_taken", dup.body["error"])

	short := h.send(t, http.MethodPost, "/auth/signup", `{"name":"Bob","email":"bob@example.com","password":"short"}`, nil)
	assert.Equal(t, fiber.StatusBadRequest, short.status)

	wrong := h.send(t, http.MethodPost, "/auth/signin", `{"email":"ada@example.com","password":"nope-nope"}`, nil)
	assert.Equal(t, fiber.StatusUnauthorized, wrong.status)
	assert.Equal(t, "invalid_credentials", wrong.body["error"])

	unknown := h.send(t, http.MethodPost, "/auth/signin", `{"email":"ghost@example.com","password":"render-all-day"}`, nil)
	assert.Equal(t, fiber.StatusUnauthorized, unknown.status)
	assert.Equal(t, "invalid_credentials", unknown.body["error"])

	signin := h.send(t, http.MethodPost, "/auth/signin", `{"email":"ada@example.com","password":"render-all-day"}`, nil)
	require.Equal(t, fiber.StatusOK, signin.status)
	require.NotEmpty(t, signin.cookies)

	current := h.send(t, http.MethodGet, "/auth/session", "", withCookies(signin.cookies))
	assert.Equal(t, true, current.body["authenticated"])
	assert.Equal(t, "session", current.body["auth_method"])

	anon := h.send(t, http.MethodGet, "/auth/session", "", nil)
	assert.Equal(t, false, anon.body["authenticated"])

	out := h.send(t, http.MethodPost, "/auth/signout", "", withCookies(signin.cookies))
	assert.Equal(t, fiber.StatusOK, out.status)
	after := h.send(t, http.MethodGet, "/auth/session", "", withCookies(signin.cookies))
	assert.Equal(t, false, after.body["authenticated"])
}

func TestAccountWithSessionAndAPIKey(t *testing.T) {
	h := newAccountHarness(t)

	signup := h.send(t, http.MethodPost, "/auth/signup", `{"name":"Grace","email":"grace@example.com","password":"compile-me-1"}`, nil)
	require.Equal(t, fiber.StatusCreated, signup.status)
	cookies := signup.cookies

	account := h.send(t, http.MethodGet, "/api/v1/account", "", withCookies(cookies))
	require.Equal(t, fiber.StatusOK, account.status, account.body)
	assert.Equal(t, "grace@example.com", account.body["email"])
	assert.EqualValues(t, 0, account.body["credits"])

	issued := h.send(t, http.MethodPost, "/api/v1/account/api-key", "", withCookies(cookies))
	require.Equal(t, fiber.StatusCreated, issued.status)
	rawKey := issued.body["api_key"].(string)
	assert.True(t, models.LooksLikeAPIKey(rawKey))

	viaKey := h.send(t, http.MethodGet, "/api/v1/account", "", withBearer(rawKey))
	require.Equal(t, fiber.StatusOK, viaKey.status)
	assert.Equal(t, account.body["id"], viaKey.body["id"])

	orders := h.send(t, http.MethodGet, "/api/v1/orders", "", withBearer(rawKey))
	require.Equal(t, fiber.StatusOK, orders.status)
	assert.Equal(t, []interface{}{}, orders.body["orders"])

	// keys can only be minted from a browser session
	rotate := h.send(t, http.MethodPost, "/api/v1/account/api-key", "", withBearer(rawKey))
	assert.Equal(t, fiber.StatusUnauthorized, rotate.status)

	anon := h.send(t, http.MethodGet, "/api/v1/account", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, anon.status)
}
