package app_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hotel_bookings/internal/adapters/backend"
	"hotel_bookings/internal/app"
	"hotel_bookings/internal/connectivity"
	"hotel_bookings/internal/domain"
)

// ---- fake REST backend ----

// fakeREST is an in-memory stand-in for the booking backend. Records are kept
// as decoded JSON objects; down makes every request fail with 503.
type fakeREST struct {
	mu   sync.Mutex
	seq  int
	data map[string][]map[string]any
	hits map[string]int // "METHOD resource"

	down atomic.Bool
}

func newFakeREST() *fakeREST {
	return &fakeREST{
		data: map[string][]map[string]any{"bookings": {}, "hotels": {}, "rooms": {}},
		hits: map[string]int{},
	}
}

func (f *fakeREST) seed(res string, rec map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[res] = append(f.data[res], rec)
}

func (f *fakeREST) records(res string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.data[res]...)
}

func (f *fakeREST) count(method, res string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[method+" "+res]
}

func (f *fakeREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.down.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	f.mu.Lock()
	defer f.mu.Unlock()

	res := parts[0]
	recs, ok := f.data[res]
	if !ok {
		http.NotFound(w, r)
		return
	}
	f.hits[r.Method+" "+res]++

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodHead:
			return
		case http.MethodGet:
			f.list(w, r, recs)
		case http.MethodPost:
			var rec map[string]any
			if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			f.seq++
			rec["id"] = res + "-" + strconv.Itoa(f.seq)
			f.data[res] = append(recs, rec)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(rec)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	id := parts[1]
	idx := -1
	for i, rec := range recs {
		if rec["id"] == id {
			idx = i
		}
	}
	if idx < 0 {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		_ = json.NewEncoder(w).Encode(recs[idx])
	case http.MethodPatch:
		var patch map[string]any
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for k, v := range patch {
			if k != "id" {
				recs[idx][k] = v
			}
		}
		_ = json.NewEncoder(w).Encode(recs[idx])
	case http.MethodDelete:
		f.data[res] = append(recs[:idx], recs[idx+1:]...)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeREST) list(w http.ResponseWriter, r *http.Request, recs []map[string]any) {
	q := r.URL.Query()
	filtered := recs[:0:0]
	for _, rec := range recs {
		if h := q.Get("hotel"); h != "" && rec["hotel"] != h {
			continue
		}
		if n := q.Get("name"); n != "" {
			name, _ := rec["name"].(string)
			if name == "" {
				name, _ = rec["customerName"].(string)
			}
			if !strings.Contains(strings.ToLower(name), strings.ToLower(n)) {
				continue
			}
		}
		filtered = append(filtered, rec)
	}
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10
	}
	total := len(filtered)
	page := []map[string]any{}
	if offset < total {
		page = filtered[offset:min(offset+limit, total)]
	}
	var next any
	if offset+limit < total {
		next = offset + limit
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"count": total, "results": page, "next_offset": next})
}

// ---- wiring ----

type harness struct {
	rest *fakeREST
	link *connectivity.StaticLink
	mon  *connectivity.Monitor
	svc  *app.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	rest := newFakeREST()
	ts := httptest.NewServer(rest)
	t.Cleanup(ts.Close)

	cl, err := backend.New(backend.Config{
		BaseURL:    ts.URL,
		RPS:        1000,
		HTTPClient: &http.Client{Timeout: 2 * time.Second, Transport: &http.Transport{DisableKeepAlives: true}},
	})
	if err != nil {
		t.Fatalf("backend: %v", err)
	}
	link := connectivity.NewStaticLink(true)
	mon := connectivity.New(link, cl, time.Second)
	svc := app.NewService(mon, app.Backends{
		Bookings: backend.NewResource[domain.Booking](cl, "bookings"),
		Hotels:   backend.NewResource[domain.Hotel](cl, "hotels"),
		Rooms:    backend.NewResource[domain.Room](cl, "rooms"),
	}, 10)
	return &harness{rest: rest, link: link, mon: mon, svc: svc}
}

func booking(name, email, start, end string, st domain.BookingState) domain.Booking {
	return domain.Booking{CustomerName: name, CustomerEmail: email, StartDate: start, EndDate: end, State: st}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
