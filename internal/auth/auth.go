// Package auth - пограничный коллаборатор: ядро планировщика не
// аутентифицирует, оно доверяет уже разрешённому id владельца.
// Здесь bearer-токен превращается в user id через хранилище сессий.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"weekPlanner/internal/logger"
)

type ctxKey string

const userContextKey ctxKey = "weekPlanner.auth.user"

func withUserContext(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userContextKey, id)
}

func UserFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userContextKey).(uuid.UUID)
	return id, ok
}

type Session struct {
	UserID    uuid.UUID
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionStore подменяем: в одном инстансе - карта в памяти,
// в распределённом деплое - внешний TTL-кеш за тем же интерфейсом.
type SessionStore interface {
	Resolve(tokenHash string) (uuid.UUID, bool)
	Put(tokenHash string, s Session)
	PurgeExpired(now time.Time) int
}

type MemorySessionStore struct {
	mtx      sync.RWMutex
	sessions map[string]Session
	ttl      time.Duration
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]Session),
		ttl:      ttl,
	}
}

func (s *MemorySessionStore) Resolve(tokenHash string) (uuid.UUID, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	sess, ok := s.sessions[tokenHash]
	if !ok || time.Now().After(sess.ExpiresAt) {
		return uuid.Nil, false
	}
	return sess.UserID, true
}

func (s *MemorySessionStore) Put(tokenHash string, sess Session) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.sessions[tokenHash] = sess
}

func (s *MemorySessionStore) PurgeExpired(now time.Time) int {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	purged := 0
	for hash, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, hash)
			purged++
		}
	}
	return purged
}

// Issue создаёт сессию и возвращает сырой токен.
// Выдача настоящих access/refresh токенов - вне этого сервиса.
func (s *MemorySessionStore) Issue(userID uuid.UUID) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	now := time.Now()
	s.Put(HashToken(token), Session{
		UserID:    userID,
		TokenHash: HashToken(token),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	})
	return token, nil
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Middleware достаёт Bearer-токен, резолвит владельца и кладёт его id
// в контекст запроса. Без валидной сессии - 401 до любого обращения
// к хранилищу задач. Повторные неудачные попытки с одного адреса
// гасятся троттлером: вместо 401 клиент получает 429 с Retry-After.
func Middleware(store SessionStore, throttle Throttle) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reject := func(reason string) {
				logger.Warn("Auth: "+reason, zap.String("path", r.URL.Path))

				if ok, retryAfter := throttle.Allow("auth:" + clientHost(r)); !ok {
					w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
					http.Error(w, `{"error":"too many attempts"}`, http.StatusTooManyRequests)
					return
				}
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			}

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				reject("запрос без токена")
				return
			}

			userID, ok := store.Resolve(HashToken(token))
			if !ok {
				reject("сессия не найдена или истекла")
				return
			}

			next.ServeHTTP(w, r.WithContext(withUserContext(r.Context(), userID)))
		})
	}
}

func clientHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
