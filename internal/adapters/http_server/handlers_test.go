package httpserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	httpserver "hotel_bookings/internal/adapters/http_server"
	"hotel_bookings/internal/app"
	"hotel_bookings/internal/connectivity"
	"hotel_bookings/internal/domain"
)

// ---- fakes ----

type memBackend[T domain.Entity[T]] struct {
	mu    sync.Mutex
	items []T
	seq   int
}

func (m *memBackend[T]) List(ctx context.Context, offset, limit int) (domain.Page[T], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := domain.Page[T]{Count: len(m.items), Results: []T{}}
	if offset < len(m.items) {
		p.Results = append(p.Results, m.items[offset:min(offset+limit, len(m.items))]...)
	}
	return p, nil
}

func (m *memBackend[T]) Get(ctx context.Context, id string) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.items {
		if v.EntityID() == id {
			return v, nil
		}
	}
	var zero T
	return zero, domain.ErrNotFound
}

func (m *memBackend[T]) Create(ctx context.Context, v T) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	v = v.WithEntityID("id-" + strconv.Itoa(m.seq))
	m.items = append(m.items, v)
	return v, nil
}

func (m *memBackend[T]) Update(ctx context.Context, id string, v T) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].EntityID() == id {
			m.items[i] = v.WithEntityID(id)
			return m.items[i], nil
		}
	}
	var zero T
	return zero, domain.ErrNotFound
}

func (m *memBackend[T]) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].EntityID() == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memBackend[T]) Search(ctx context.Context, q url.Values) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]T{}, m.items...), nil
}

type env struct {
	ts     *httptest.Server
	link   *connectivity.StaticLink
	svc    *app.Service
	hotels *memBackend[domain.Hotel]
}

func newEnv(t *testing.T) *env {
	t.Helper()
	link := connectivity.NewStaticLink(true)
	mon := connectivity.New(link, nil, time.Second)
	hotels := &memBackend[domain.Hotel]{}
	svc := app.NewService(mon, app.Backends{
		Bookings: &memBackend[domain.Booking]{},
		Hotels:   hotels,
		Rooms:    &memBackend[domain.Room]{},
	}, 10)

	srv := httpserver.New(zerolog.Nop(), 5*time.Second)
	srv.MountHandlers(&httpserver.Handlers{Svc: svc})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return &env{ts: ts, link: link, svc: svc, hotels: hotels}
}

func (e *env) do(t *testing.T, method, path, body string, hdr ...string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, e.ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

// ---- tests ----

func TestHealthz(t *testing.T) {
	e := newEnv(t)
	resp, _ := e.do(t, "GET", "/healthz", "")
	if resp.StatusCode != 200 {
		t.Fatalf("healthz: %d", resp.StatusCode)
	}
}

func TestCreateHotel_OnlineAndValidation(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, "POST", "/v1/hotels", `{"name":"Grand","address":"1 Main","rating":"4.5"}`)
	if resp.StatusCode != http.StatusCreated || body["id"] != "id-1" {
		t.Fatalf("create: %d %v", resp.StatusCode, body)
	}

	resp, body = e.do(t, "POST", "/v1/hotels", `{"name":"","rating":7}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid create: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content type %q", ct)
	}
	errs, _ := body["errors"].(map[string]any)
	if errs["name"] == nil || errs["rating"] == nil {
		t.Fatalf("field errors missing: %v", body)
	}
}

func TestCreateBooking_OfflineIsAccepted(t *testing.T) {
	e := newEnv(t)
	e.link.Set(false)

	resp, body := e.do(t, "POST", "/v1/bookings",
		`{"customerName":"Ann","customerEmail":"ann@x.io","startDate":"2025-01-02","endDate":"2025-01-05"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("offline create: %d %v", resp.StatusCode, body)
	}
	id, _ := body["id"].(string)
	if !strings.HasPrefix(id, "tmp-") || body["state"] != "PENDING" {
		t.Fatalf("optimistic body %v", body)
	}

	resp, body = e.do(t, "GET", "/v1/status", "")
	if resp.StatusCode != 200 || body["online"] != false {
		t.Fatalf("status %v", body)
	}
	pending, _ := body["pending"].(map[string]any)
	if pending["bookings"] != float64(1) {
		t.Fatalf("pending %v", pending)
	}

	resp, body = e.do(t, "GET", "/v1/bookings/"+id, "")
	if resp.StatusCode != 200 || body["customerName"] != "Ann" {
		t.Fatalf("get temp: %d %v", resp.StatusCode, body)
	}
}

func TestListHotels_ETag(t *testing.T) {
	e := newEnv(t)
	e.do(t, "POST", "/v1/hotels", `{"name":"A","rating":1}`)

	resp, body := e.do(t, "GET", "/v1/hotels?offset=0&limit=5", "")
	etag := resp.Header.Get("ETag")
	if resp.StatusCode != 200 || etag == "" || body["count"] != float64(1) {
		t.Fatalf("list: %d %q %v", resp.StatusCode, etag, body)
	}
	resp, _ = e.do(t, "GET", "/v1/hotels?offset=0&limit=5", "", "If-None-Match", etag)
	if resp.StatusCode != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", resp.StatusCode)
	}

	resp, _ = e.do(t, "GET", "/v1/hotels?limit=0", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("limit=0 should be rejected, got %d", resp.StatusCode)
	}
}

func TestPatchHotel_PartialAndDelete(t *testing.T) {
	e := newEnv(t)
	e.do(t, "POST", "/v1/hotels", `{"name":"Keep Me","address":"Somewhere","rating":3}`)

	resp, body := e.do(t, "PATCH", "/v1/hotels/id-1", `{"rating":5}`)
	if resp.StatusCode != 200 || body["name"] != "Keep Me" || body["rating"] != float64(5) {
		t.Fatalf("patch: %d %v", resp.StatusCode, body)
	}

	resp, _ = e.do(t, "PATCH", "/v1/hotels/nope", `{"rating":5}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("patch missing: %d", resp.StatusCode)
	}

	resp, _ = e.do(t, "DELETE", "/v1/hotels/id-1", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: %d", resp.StatusCode)
	}
	resp, _ = e.do(t, "GET", "/v1/hotels/id-1", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete: %d", resp.StatusCode)
	}
}

func TestSearchRooms_BadFilter(t *testing.T) {
	e := newEnv(t)
	resp, _ := e.do(t, "GET", "/v1/rooms/search?min_capacity=lots", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp, body := e.do(t, "GET", "/v1/rooms/search?min_capacity=2&max_price=99.5", "")
	if resp.StatusCode != 200 || body["count"] != float64(0) {
		t.Fatalf("search: %d %v", resp.StatusCode, body)
	}
}

func TestSearchHotels_NonFiniteRating(t *testing.T) {
	e := newEnv(t)
	e.do(t, "POST", "/v1/hotels", `{"name":"A","rating":1}`)
	for _, v := range []string{"NaN", "Inf", "-Infinity"} {
		resp, _ := e.do(t, "GET", "/v1/hotels/search?min_rating="+v, "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("min_rating=%s: want 400, got %d", v, resp.StatusCode)
		}
	}
	resp, body := e.do(t, "GET", "/v1/hotels/search?min_rating=0.5", "")
	if resp.StatusCode != 200 || body["count"] != float64(1) {
		t.Fatalf("finite min_rating: %d %v", resp.StatusCode, body)
	}
}

func TestTriggerSync(t *testing.T) {
	e := newEnv(t)
	resp, body := e.do(t, "POST", "/v1/sync", "")
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("sync: %d %v", resp.StatusCode, body)
	}
	deadline := time.Now().Add(2 * time.Second)
	for e.svc.Sync.Running() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
}
