package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// Logger discards everything; handlers under test still get a real logger.
func Logger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Response is a finished test request.
type Response struct {
	Status int
	Body   []byte
}

// Decode unmarshals the body into out.
func (r Response) Decode(t *testing.T, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Body, out), string(r.Body))
}

// Map decodes a JSON object body.
func (r Response) Map(t *testing.T) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	r.Decode(t, &m)
	return m
}

// Do sends body as JSON to app and reads the whole response.
func Do(t *testing.T, app *fiber.App, method, path string, body interface{}) Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return Response{Status: resp.StatusCode, Body: raw}
}
