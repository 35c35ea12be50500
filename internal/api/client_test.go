package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/p-blackswan/geoai-console/internal/errors"
	"github.com/p-blackswan/geoai-console/internal/models"
	"github.com/p-blackswan/geoai-console/internal/retry"
	"github.com/p-blackswan/geoai-console/pkg/tokenstore"
)

func setupTestServer(t *testing.T, handler http.HandlerFunc) (*Client, tokenstore.Store) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	tokens := tokenstore.NewMemoryStore()
	opts := Options{
		BaseURL: server.URL,
		Retry:   retry.Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	}
	client := NewClient(opts, tokens, zerolog.Nop())
	client.SetHTTPClient(server.Client())
	return client, tokens
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("test"))
	require.NoError(t, err)
	return tok
}

func TestClient_Login(t *testing.T) {
	access := signedToken(t, time.Now().Add(time.Hour))
	client, tokens := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		var body models.LoginParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, `corp\jdoe`, body.Email)

		http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: "r1", MaxAge: 3600})
		json.NewEncoder(w).Encode(models.AuthResponse{AccessToken: access, User: models.User{ID: 7, Role: models.RoleAdmin}})
	})

	ctx := context.Background()
	resp, err := client.Login(ctx, models.LoginParams{Email: `corp\\jdoe`, Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)

	stored, err := tokens.Get(ctx, tokenstore.AccessTokenKey)
	require.NoError(t, err)
	assert.Equal(t, access, stored.Value)
	assert.WithinDuration(t, time.Now().Add(time.Hour), stored.ExpiresAt, 5*time.Second)

	refresh, err := tokens.Get(ctx, tokenstore.RefreshTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "r1", refresh.Value)
	assert.True(t, client.LoggedIn(ctx))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, `a\b`, NormalizeEmail(`a\b`))
	assert.Equal(t, `a\b`, NormalizeEmail(`a\\b`))
	assert.Equal(t, `a\\b`, NormalizeEmail(`a\\\b`))
	assert.Equal(t, "user@example.com", NormalizeEmail("user@example.com"))
}

func TestClient_RefreshesOnceOnUnauthorized(t *testing.T) {
	fresh := signedToken(t, time.Now().Add(time.Hour))
	var refreshes, calls int32

	client, tokens := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/refresh":
			atomic.AddInt32(&refreshes, 1)
			ck, err := r.Cookie("refresh_token")
			require.NoError(t, err)
			assert.Equal(t, "r1", ck.Value)
			json.NewEncoder(w).Encode(models.AuthResponse{AccessToken: fresh})
		case "/api/project/get-project":
			atomic.AddInt32(&calls, 1)
			if r.Header.Get("Authorization") != "Bearer "+fresh {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(models.Project{ID: 3, Name: "Site A"})
		}
	})

	ctx := context.Background()
	require.NoError(t, tokens.Set(ctx, tokenstore.AccessTokenKey, "stale", 0))
	require.NoError(t, tokens.Set(ctx, tokenstore.RefreshTokenKey, "r1", 0))

	p, err := client.GetProject(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Site A", p.Name)
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshes))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_RefreshFailureDropsCredentials(t *testing.T) {
	client, tokens := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":{"code":"INVALID_TOKEN","message":"expired"}}`))
	})

	ctx := context.Background()
	require.NoError(t, tokens.Set(ctx, tokenstore.AccessTokenKey, "stale", 0))
	require.NoError(t, tokens.Set(ctx, tokenstore.RefreshTokenKey, "r1", 0))

	_, err := client.GetProject(ctx, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, perrors.ErrUnauthorized)

	_, err = tokens.Get(ctx, tokenstore.AccessTokenKey)
	assert.Error(t, err)
	_, err = tokens.Get(ctx, tokenstore.RefreshTokenKey)
	assert.Error(t, err)
	assert.False(t, client.LoggedIn(ctx))
}

func TestClient_RetriesOnlyGets(t *testing.T) {
	var gets, posts int32
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			if atomic.AddInt32(&gets, 1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			json.NewEncoder(w).Encode(models.Comparison{ID: 4})
			return
		}
		atomic.AddInt32(&posts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	ctx := context.Background()
	cmp, err := client.GetComparison(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), cmp.ID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&gets))

	err = client.DeleteComparison(ctx, 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, perrors.ErrUnavailable)
	assert.Equal(t, int32(1), atomic.LoadInt32(&posts))
}

func TestParseAPIError(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
		wantMsg  string
	}{
		{"object detail", `{"detail":{"code":"PROJECT_EXIST","message":"exists"}}`, "PROJECT_EXIST", "exists"},
		{"string detail", `{"detail":"Not authenticated"}`, "", "Not authenticated"},
		{"validation list", `{"detail":[{"loc":["body","name"],"msg":"field required"}]}`, "", "field required"},
		{"not json", `<html>oops</html>`, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseAPIError(400, []byte(tt.body))
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Equal(t, tt.wantMsg, err.Message)
			assert.Equal(t, 400, err.StatusCode)
		})
	}
}

func TestClient_ListProjects(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/project/get-projects", r.URL.Path)
		assert.False(t, q.Has("filter"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "10", q.Get("limit"))
		assert.Equal(t, "created_at", q.Get("sort"))
		w.Write([]byte(`{"projects":[{"id":1,"name":"Site A","ml_model":"yolo"}],"page":2,"pages":3,"total":21,"limit":10}`))
	})

	page, err := client.ListProjects(context.Background(),
		models.Pagination{Page: 2, Limit: 10},
		models.FilterSort[models.TypeFilter]{Filter: models.FilterAll, Sort: "created_at"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, models.StringList{"yolo"}, page.Items[0].MLModel)
	assert.Equal(t, models.Pagination{Page: 2, Pages: 3, Total: 21, Limit: 10}, page.Pagination)
}

func TestClient_ListFiltersByType(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "panorama_360", r.URL.Query().Get("filter"))
		w.Write([]byte(`{"projects":null,"page":1,"pages":1,"total":0,"limit":10}`))
	})

	page, err := client.ListComparisons(context.Background(),
		models.DefaultPagination(10),
		models.FilterSort[models.TypeFilter]{Filter: models.TypeFilter(models.ProjectPanorama)})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
}

func TestClient_ImageQualitiesCached(t *testing.T) {
	var hits int32
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`{"high":"1","low":"4"}`))
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		q, err := client.ImageQualities(ctx)
		require.NoError(t, err)
		def, ok := q.Default()
		require.True(t, ok)
		assert.Equal(t, "1", def)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	client.PurgeCache()
	_, err := client.ImageQualities(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestClient_StartDetectionRoutesByType(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ml/360", r.URL.Path)
		assert.Equal(t, "9", r.URL.Query().Get("project_id"))
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.NotContains(t, body, "quality")
		assert.NotContains(t, body, "save_image_flag")
		assert.NotContains(t, body, "project_id")
		w.Write([]byte(`{"task_id":"T9","task_status":"PENDING","project_id":9}`))
	})

	resp, err := client.StartDetection(context.Background(), models.ProjectPanorama, models.StartDetectionParams{
		ProjectID:     9,
		Paths:         []string{"/g1/1.jpg"},
		Quality:       "1",
		SaveImageFlag: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "T9", resp.ID)

	_, err = client.StartDetection(context.Background(), "lidar", models.StartDetectionParams{})
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)
}

func TestClient_CreateProjectRejectsShortName(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	})
	_, err := client.CreateProject(context.Background(), models.CreateProjectParams{Name: "Site"})
	require.Error(t, err)
	assert.Equal(t, "PROJECT_NAME_TOO_SHORT", perrors.CodeOf(err))
}

func TestClient_ListHistoryDateRange(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/history/get-all-error-history", r.URL.Path)
		assert.Equal(t, "2024-03-01T00:00:00.000Z", q.Get("from_date"))
		assert.Equal(t, "2024-03-11T00:00:00.000Z", q.Get("to_date"))
		w.Write([]byte(`{"histories":[{"id":1,"code":"TASK_COMPARE_FAILED"}],"page":1,"pages":1,"total":1,"limit":10}`))
	})

	rng := models.DateRange{
		From: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
	}
	page, err := client.ListHistory(context.Background(), models.HistoryError, models.DefaultPagination(10),
		models.FilterSort[models.DateRange]{Filter: rng})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "TASK_COMPARE_FAILED", page.Items[0].Code)

	_, err = client.ListHistory(context.Background(), "audit", models.DefaultPagination(10), models.FilterSort[models.DateRange]{})
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)
}

func TestClient_MapTokenCachedUntilExpiry(t *testing.T) {
	var hits int32
	expires := time.Now().Add(time.Hour).UnixMilli()
	client, _ := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		json.NewEncoder(w).Encode(map[string]any{"token": "m1", "expires": strconv.FormatInt(expires, 10), "ssl": true})
	})

	ctx := context.Background()
	first, err := client.MapToken(ctx)
	require.NoError(t, err)
	second, err := client.MapToken(ctx)
	require.NoError(t, err)

	assert.Equal(t, "m1", first.Token)
	assert.Equal(t, "m1", second.Token)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	exp, err := MapTokenExpiry(*second)
	require.NoError(t, err)
	assert.WithinDuration(t, time.UnixMilli(expires), exp, time.Second)
}
