package apiv1

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const openAPIFile = "../../../public/docs/v1/openapi.yml"

type stubServer struct{}

func (stubServer) GetPing(c *fiber.Ctx) error             { return c.JSON(Pong{Ping: "pong"}) }
func (stubServer) GetCatalog(c *fiber.Ctx) error          { return c.SendStatus(fiber.StatusOK) }
func (stubServer) GetAccount(c *fiber.Ctx) error          { return c.SendStatus(fiber.StatusOK) }
func (stubServer) PostAccountAPIKey(c *fiber.Ctx) error   { return c.SendStatus(fiber.StatusCreated) }
func (stubServer) GetOrders(c *fiber.Ctx) error           { return c.SendStatus(fiber.StatusOK) }
func (stubServer) PostCheckoutSession(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }

func loadDocument(t *testing.T) *openapi3.T {
	t.Helper()
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(openAPIFile)
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))
	return doc
}

func TestEveryRouteIsDocumented(t *testing.T) {
	doc := loadDocument(t)

	app := fiber.New()
	RegisterHandlers(app.Group("/api/v1"), stubServer{}, Security{})

	seen := 0
	for _, route := range app.GetRoutes(true) {
		if route.Method == fiber.MethodHead || !strings.HasPrefix(route.Path, "/api/v1/") {
			continue
		}
		path := strings.TrimPrefix(route.Path, "/api/v1")
		item := doc.Paths.Value(path)
		require.NotNil(t, item, "undocumented path %s", path)
		assert.NotNil(t, item.GetOperation(route.Method), "undocumented operation %s %s", route.Method, path)
		seen++
	}
	assert.Equal(t, 6, seen)
}

func TestProtectedOperationsUseSecurity(t *testing.T) {
	app := fiber.New()
	deny := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusUnauthorized) }
	RegisterHandlers(app.Group("/api/v1"), stubServer{}, Security{RequireAPIAuth: deny, RequireSession: deny})

	tests := []struct {
		method string
		path   string
		status int
	}{
		{fiber.MethodGet, "/api/v1/ping", fiber.StatusOK},
		{fiber.MethodGet, "/api/v1/catalog", fiber.StatusOK},
		{fiber.MethodGet, "/api/v1/account", fiber.StatusUnauthorized},
		{fiber.MethodPost, "/api/v1/account/api-key", fiber.StatusUnauthorized},
		{fiber.MethodGet, "/api/v1/orders", fiber.StatusUnauthorized},
		{fiber.MethodPost, "/api/v1/checkout/sessions", fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(tt.method, tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
