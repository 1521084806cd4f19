package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/backoffice/internal/application/app"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testStoreID  = "store-1"
	testUsername = "alice"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type routes interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// newTestEngine mounts h under /api/v1 behind a fake authentication step
// that publishes the given actor
func newTestEngine(h routes, storeID, username string) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	api := r.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		if storeID != "" {
			c.Set(middleware.JWTStoreIDKey, storeID)
		}
		if username != "" {
			c.Set(middleware.JWTUsernameKey, username)
		}
		c.Next()
	})
	h.RegisterRoutes(api)
	return r
}

func doRequest(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Field     string `json:"field"`
		RequestID string `json:"request_id"`
		Details   []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// actorIs matches an app.Context carrying the test actor
func actorIs(storeID, username string) any {
	return mock.MatchedBy(func(ac app.Context) bool {
		return ac.Actor.StoreID == storeID && ac.Actor.Username == username
	})
}
