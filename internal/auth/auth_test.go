package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekPlanner/internal/auth"
)

func TestMemorySessionStore(t *testing.T) {
	t.Run("выданный токен резолвится во владельца", func(t *testing.T) {
		store := auth.NewMemorySessionStore(time.Hour)
		userID := uuid.New()

		token, err := store.Issue(userID)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		resolved, ok := store.Resolve(auth.HashToken(token))
		require.True(t, ok)
		assert.Equal(t, userID, resolved)
	})

	t.Run("сырой токен в хранилище не лежит", func(t *testing.T) {
		store := auth.NewMemorySessionStore(time.Hour)
		token, err := store.Issue(uuid.New())
		require.NoError(t, err)

		_, ok := store.Resolve(token)
		assert.False(t, ok)
	})

	t.Run("истёкшая сессия не резолвится и выметается", func(t *testing.T) {
		store := auth.NewMemorySessionStore(-time.Minute)
		token, err := store.Issue(uuid.New())
		require.NoError(t, err)

		_, ok := store.Resolve(auth.HashToken(token))
		assert.False(t, ok)

		assert.Equal(t, 1, store.PurgeExpired(time.Now()))
		assert.Equal(t, 0, store.PurgeExpired(time.Now()))
	})
}

func TestMiddleware(t *testing.T) {
	store := auth.NewMemorySessionStore(time.Hour)
	userID := uuid.New()
	token, err := store.Issue(userID)
	require.NoError(t, err)

	var seenUser uuid.UUID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.UserFromContext(r.Context())
		require.True(t, ok)
		seenUser = id
		w.WriteHeader(http.StatusOK)
	})
	protected := auth.Middleware(store, auth.NewMemoryThrottle(time.Minute, 100))(next)

	t.Run("валидный токен пропускает и кладёт владельца в контекст", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		protected.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, userID, seenUser)
	})

	tests := []struct {
		name   string
		header string
	}{
		{"без заголовка", ""},
		{"не Bearer", "Basic abc"},
		{"пустой токен", "Bearer "},
		{"неизвестный токен", "Bearer deadbeef"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			protected.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestMiddleware_ThrottlesRepeatedFailures(t *testing.T) {
	store := auth.NewMemorySessionStore(time.Hour)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	protected := auth.Middleware(store, auth.NewMemoryThrottle(time.Minute, 2))(next)

	attempt := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
		req.RemoteAddr = "10.0.0.7:50000"
		req.Header.Set("Authorization", "Bearer wrong")
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, attempt().Code)
	assert.Equal(t, http.StatusUnauthorized, attempt().Code)

	rec := attempt()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestMemoryThrottle(t *testing.T) {
	t.Run("лимит в окне", func(t *testing.T) {
		throttle := auth.NewMemoryThrottle(time.Minute, 3)

		for i := 0; i < 3; i++ {
			ok, _ := throttle.Allow("login:1.2.3.4")
			require.True(t, ok, "попытка %d должна пройти", i+1)
		}

		ok, retryAfter := throttle.Allow("login:1.2.3.4")
		assert.False(t, ok)
		assert.Greater(t, retryAfter, time.Duration(0))
	})

	t.Run("ключи независимы", func(t *testing.T) {
		throttle := auth.NewMemoryThrottle(time.Minute, 1)

		ok, _ := throttle.Allow("login:a")
		require.True(t, ok)
		ok, _ = throttle.Allow("login:b")
		assert.True(t, ok)
	})

	t.Run("окно истекло - счётчик сбрасывается", func(t *testing.T) {
		throttle := auth.NewMemoryThrottle(time.Nanosecond, 1)

		ok, _ := throttle.Allow("login:x")
		require.True(t, ok)

		time.Sleep(5 * time.Millisecond)
		ok, _ = throttle.Allow("login:x")
		assert.True(t, ok)
	})

	t.Run("PurgeStale выметает только протухшие окна", func(t *testing.T) {
		throttle := auth.NewMemoryThrottle(time.Hour, 5)
		throttle.Allow("login:живой")

		assert.Equal(t, 0, throttle.PurgeStale(time.Now()))
		assert.Equal(t, 1, throttle.PurgeStale(time.Now().Add(2*time.Hour)))
	})
}
