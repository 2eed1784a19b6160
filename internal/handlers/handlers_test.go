package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/anonto42/thunderlink/backend/internal/cache"
	"github.com/anonto42/thunderlink/backend/internal/handlers"
	"github.com/anonto42/thunderlink/backend/internal/middleware"
	"github.com/anonto42/thunderlink/backend/internal/models"
	"github.com/anonto42/thunderlink/backend/internal/ratelimit"
	"github.com/anonto42/thunderlink/backend/internal/repositories"
	"github.com/anonto42/thunderlink/backend/internal/router"
	"github.com/anonto42/thunderlink/backend/internal/services"
	"github.com/anonto42/thunderlink/backend/validators"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-secret"

type testServer struct {
	e     *echo.Echo
	store *repositories.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	store := repositories.NewMemoryStore()
	svc := services.NewContentService(
		store,
		cache.NewPostListCache(client, ""),
		ratelimit.NewLimiter(client, map[ratelimit.Action]time.Duration{ratelimit.ActionPost: 10 * time.Second}),
		nil,
		nil,
	)

	e := echo.New()
	e.Validator = validators.NewValidator()
	router.SetupRoutes(e, router.Dependencies{
		Service: svc,
		Auth:    middleware.JWTAuth(testSecret),
		Health: map[string]handlers.Pinger{
			"store": store,
			"redis": handlers.PingFunc(func(ctx context.Context) error { return client.Ping(ctx).Err() }),
		},
	})
	return &testServer{e: e, store: store}
}

func tokenFor(t *testing.T, userID string) string {
	claims := &models.JwtCustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

// do sends a request as userID, or anonymously when userID is empty
func (s *testServer) do(t *testing.T, method, path, userID, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, userID))
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestPostEndpoints(t *testing.T) {
	s := newTestServer(t)
	author := gofakeit.UUID()

	rec := s.do(t, http.MethodPost, "/api/v1/posts", "", `{"content":"hi"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/posts", author, `{"content":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/posts", author, `{"content":"hello"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	post := decode[models.Post](t, rec)
	require.Equal(t, author, post.AuthorID)

	rec = s.do(t, http.MethodPost, "/api/v1/posts", author, `{"content":"again"}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/posts", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	posts := decode[[]models.Post](t, rec)
	require.Len(t, posts, 1)

	rec = s.do(t, http.MethodGet, "/api/v1/posts/"+post.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/v1/posts/"+post.ID, gofakeit.UUID(), "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/v1/posts/"+post.ID, author, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/posts/"+post.ID, "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCommentAndLikeEndpoints(t *testing.T) {
	s := newTestServer(t)
	author, reader := gofakeit.UUID(), gofakeit.UUID()

	rec := s.do(t, http.MethodPost, "/api/v1/posts", author, `{"content":"hello"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	post := decode[models.Post](t, rec)
	base := "/api/v1/posts/" + post.ID

	rec = s.do(t, http.MethodPost, base+"/comments", reader, `{"content":"nice"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	comment := decode[models.Comment](t, rec)

	rec = s.do(t, http.MethodGet, base+"/comments", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, base+"/comments", reader, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]models.Comment](t, rec), 1)

	rec = s.do(t, http.MethodPost, base+"/likes", reader, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(t, http.MethodPost, base+"/likes", reader, "")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, base+"/likes/status", reader, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["has_liked"])

	rec = s.do(t, http.MethodGet, base+"/likes", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[models.LikeSummary](t, rec)
	assert.Equal(t, 1, summary.Count)
	assert.Equal(t, reader, summary.Likes[0].User.ID)

	rec = s.do(t, http.MethodDelete, base+"/likes", reader, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodDelete, base+"/likes", reader, "")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/v1/posts/"+gofakeit.UUID()+"/comments/"+comment.ID, reader, "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodDelete, base+"/comments", reader, "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodDelete, base+"/comments/"+comment.ID, reader, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodDelete, base+"/likes/all", author, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUploadEndpoint(t *testing.T) {
	s := newTestServer(t)
	user := gofakeit.UUID()

	rec := s.do(t, http.MethodPost, "/api/v1/uploads/signed-url", user, `{"file_name":"a.gif","mime_type":"image/gif"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// no bucket configured
	rec = s.do(t, http.MethodPost, "/api/v1/uploads/signed-url", user, `{"file_name":"a.png","mime_type":"image/png"}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/uploads/signed-url", "", `{"file_name":"a.png","mime_type":"image/png"}`)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]any](t, rec)["status"])
}

func TestHealthEndpointDegraded(t *testing.T) {
	e := echo.New()
	e.GET("/health", handlers.HealthCheck(map[string]handlers.Pinger{
		"redis": handlers.PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	}))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
