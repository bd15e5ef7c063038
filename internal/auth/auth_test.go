package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"granja-backend/internal/api"
	"granja-backend/internal/models"
	"granja-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	testutil.UseGlobalDB(t, testutil.NewDB(t))

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	app := fiber.New(fiber.Config{ErrorHandler: api.ErrorHandler(logger)})

	app.Post("/api/auth/register", RegisterHandler())
	app.Post("/api/auth/login", LoginHandler(testSecret))
	protected := app.Group("/api", JWTMiddleware(testSecret))
	protected.Get("/auth/me", MeHandler())
	protected.Get("/users", ListUsersHandler())
	return app
}

func do(t *testing.T, app *fiber.App, method, path string, body interface{}, token string) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var out map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func register(t *testing.T, app *fiber.App, username string) {
	t.Helper()
	resp, _ := do(t, app, "POST", "/api/auth/register", RegisterRequest{
		Username:        username,
		FullName:        "María Gómez",
		Password:        "clave1",
		ConfirmPassword: "clave1",
	}, "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name  string
		req   RegisterRequest
		field string
	}{
		{"short username", RegisterRequest{Username: "mar", FullName: "María", Password: "1234", ConfirmPassword: "1234"}, "username"},
		{"short full name", RegisterRequest{Username: "mgomez", FullName: "Ma", Password: "1234", ConfirmPassword: "1234"}, "full_name"},
		{"short password", RegisterRequest{Username: "mgomez", FullName: "María", Password: "123", ConfirmPassword: "123"}, "password"},
		{"passwords differ", RegisterRequest{Username: "mgomez", FullName: "María", Password: "1234", ConfirmPassword: "4321"}, "confirm_password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, app, "POST", "/api/auth/register", tt.req, "")
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			fields, _ := body["fields"].(map[string]interface{})
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	app := newTestApp(t)
	register(t, app, "mgomez")

	resp, _ := do(t, app, "POST", "/api/auth/register", RegisterRequest{
		Username: "MGomez", FullName: "Otra María", Password: "1234", ConfirmPassword: "1234",
	}, "")
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestLoginAndMe(t *testing.T) {
	app := newTestApp(t)
	register(t, app, "mgomez")

	resp, _ := do(t, app, "POST", "/api/auth/login", LoginRequest{Username: "mgomez", Password: "mal"}, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = do(t, app, "POST", "/api/auth/login", LoginRequest{Username: "nadie", Password: "clave1"}, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, body := do(t, app, "POST", "/api/auth/login", LoginRequest{Username: "mgomez", Password: "clave1"}, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	resp, body = do(t, app, "GET", "/api/auth/me", nil, token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "mgomez", body["username"])
	assert.Equal(t, "María Gómez", body["full_name"])
}

func TestJWTMiddleware(t *testing.T) {
	app := newTestApp(t)

	resp, _ := do(t, app, "GET", "/api/auth/me", nil, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = do(t, app, "GET", "/api/auth/me", nil, "not-a-token")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	register(t, app, "mgomez")
	_, body := do(t, app, "POST", "/api/auth/login", LoginRequest{Username: "mgomez", Password: "clave1"}, "")
	token := body["token"].(string)

	forged, err := GenerateToken("ffffffffffffffffffffffffffffffff", &models.User{ID: 1, Username: "mgomez"})
	require.NoError(t, err)
	resp, _ = do(t, app, "GET", "/api/auth/me", nil, forged)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, _ = do(t, app, "GET", "/api/users?username=mgomez", nil, token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = do(t, app, "GET", "/api/users?password=x", nil, token)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
