package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/infrastructure/auth"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 500))
	r.ServeHTTP(w, req)
	assert.Len(t, w.Body.String(), 36, "oversized ids are replaced")
}

func newJWTRouter(t *testing.T) (*gin.Engine, *auth.JWTService) {
	t.Helper()
	svc := auth.NewJWTService(config.JWTConfig{
		Secret:                "0123456789abcdef0123456789abcdef",
		Issuer:                "backoffice",
		AccessTokenExpiration: time.Minute,
	})
	r := gin.New()
	r.Use(RequestID(), JWTAuth(svc, nil))
	r.GET("/me", func(c *gin.Context) {
		actor := GetActor(c)
		ctx := c.Request.Context()
		c.JSON(http.StatusOK, gin.H{
			"store":        actor.StoreID,
			"user":         actor.Username,
			"ctx_store":    logger.GetStoreID(ctx),
			"ctx_username": logger.GetUsername(ctx),
			"has_claims":   GetJWTClaims(c) != nil,
		})
	})
	return r, svc
}

func TestJWTAuth_Valid(t *testing.T) {
	r, svc := newJWTRouter(t)
	token, _, err := svc.GenerateToken("store-1", "alice")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"store":"store-1","user":"alice","ctx_store":"store-1","ctx_username":"alice","has_claims":true}`, w.Body.String())
}

func TestJWTAuth_Rejects(t *testing.T) {
	r, _ := newJWTRouter(t)

	for name, header := range map[string]string{
		"missing":   "",
		"no bearer": "Token abc",
		"empty":     "Bearer ",
		"garbage":   "Bearer abc.def.ghi",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			resp := decode(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, dto.ErrCodeUnauthorized, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.RequestID)
		})
	}
}

type expiredValidator struct{}

func (expiredValidator) ValidateAccessToken(string) (*auth.Claims, error) {
	return nil, auth.ErrExpiredToken
}

func TestJWTAuth_Expired(t *testing.T) {
	r := gin.New()
	r.Use(JWTAuth(expiredValidator{}, nil))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer old")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, dto.ErrCodeTokenExpired, decode(t, w).Error.Code)
}

func TestGetActor_Unauthenticated(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Error(t, GetActor(c).Validate())
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(10))
	r.POST("/", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`)))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"0123456789"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, dto.ErrCodeRequestTooLarge, decode(t, w).Error.Code)
}

func TestCORS(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"https://shop.example"}
	r := gin.New()
	r.Use(CORSWithConfig(cfg))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://shop.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://shop.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecure(t *testing.T) {
	r := gin.New()
	r.Use(Secure())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestHTTPMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(JWTStoreIDKey, "store-1")
		c.Next()
	}, HTTPMetrics(meter, nil))
	r.GET("/api/v1/debts/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/debts/d1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/debts/d2", nil))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var found bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "http_server_request_total" {
				continue
			}
			sum := m.Data.(metricdata.Sum[int64])
			require.Len(t, sum.DataPoints, 1)
			dp := sum.DataPoints[0]
			assert.Equal(t, int64(2), dp.Value)
			route, _ := dp.Attributes.Value(attribute.Key("http.route"))
			assert.Equal(t, "/api/v1/debts/:id", route.AsString())
			store, _ := dp.Attributes.Value(attribute.Key("store_id"))
			assert.Equal(t, "store-1", store.AsString())
			found = true
		}
	}
	assert.True(t, found)
}

func TestHTTPMetrics_NilMeter(t *testing.T) {
	r := gin.New()
	r.Use(HTTPMetrics(nil, nil))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

type sample struct {
	Name  string          `json:"name" validate:"required"`
	Price int             `json:"price" validate:"gte=0"`
	Total decimal.Decimal `json:"total" validate:"gte=0"`
}

func TestValidationDetails(t *testing.T) {
	SetupValidator()
	err := binding.Validator.ValidateStruct(&sample{Price: -1})
	details := ValidationDetails(err)
	require.Len(t, details, 2)
	assert.Equal(t, "name", details[0].Field)
	assert.Equal(t, "This field is required", details[0].Message)
	assert.Equal(t, "price", details[1].Field)

	err = binding.Validator.ValidateStruct(&sample{Name: "lamp", Total: decimal.RequireFromString("-0.01")})
	details = ValidationDetails(err)
	require.Len(t, details, 1)
	assert.Equal(t, "total", details[0].Field)
	assert.Equal(t, "Must be greater than or equal to 0", details[0].Message)

	assert.NoError(t, binding.Validator.ValidateStruct(&sample{Name: "lamp", Total: decimal.NewFromInt(3)}))
	assert.Nil(t, ValidationDetails(assert.AnError))
}
