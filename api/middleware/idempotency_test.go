package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type inMemoryIdempotencyStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newInMemoryIdempotencyStore() *inMemoryIdempotencyStore {
	return &inMemoryIdempotencyStore{values: map[string]string{}}
}

func (s *inMemoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *inMemoryIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *inMemoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "mdv:idempotency:" + scope + ":" + id
}

func (s *inMemoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func checkoutInitRequestWithKey(body, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/checkout/init", bytes.NewReader([]byte(body)))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	store := newInMemoryIdempotencyStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"order_id":"abc"}}`))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, checkoutInitRequestWithKey(`{"cart_id":"1"}`, "key-1"))
	if rec.Code != http.StatusCreated || calls != 1 {
		t.Fatalf("first call: code=%d calls=%d", rec.Code, calls)
	}

	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, checkoutInitRequestWithKey(`{"cart_id":"1"}`, "key-1"))
	if rec2.Code != http.StatusCreated {
		t.Fatalf("replay should return stored status, got %d", rec2.Code)
	}
	if calls != 1 {
		t.Fatalf("handler must not run again on replay, calls=%d", calls)
	}
	if rec2.Body.String() != rec.Body.String() {
		t.Fatalf("replayed body %q differs from original %q", rec2.Body.String(), rec.Body.String())
	}
}

func TestIdempotency_KeyReuseWithDifferentBody(t *testing.T) {
	store := newInMemoryIdempotencyStore()
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, checkoutInitRequestWithKey(`{"cart_id":"1"}`, "key-1"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("first call: %d", rec.Code)
	}

	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, checkoutInitRequestWithKey(`{"cart_id":"2"}`, "key-1"))
	if rec2.Code != http.StatusConflict {
		t.Fatalf("expected 409 for key reuse, got %d (%s)", rec2.Code, rec2.Body.String())
	}
}

func TestIdempotency_RequiresKeyOnGuardedRoutes(t *testing.T) {
	store := newInMemoryIdempotencyStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, checkoutInitRequestWithKey(`{}`, ""))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without key, got %d", rec.Code)
	}
	if calls != 0 {
		t.Fatalf("handler must not run without a key")
	}
}

func TestIdempotency_IgnoresUnguardedRoutes(t *testing.T) {
	store := newInMemoryIdempotencyStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tracking?reference=abc", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || calls != 1 {
		t.Fatalf("unguarded route should pass through: code=%d calls=%d", rec.Code, calls)
	}
}
