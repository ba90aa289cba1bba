package offline_test

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"hotel_bookings/internal/domain"
)

// ---- fakes ----

type fakeConn struct {
	mu          sync.Mutex
	networkDown bool
	serverDown  bool
	netReports  int
}

func (c *fakeConn) IsOnline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.networkDown
}

func (c *fakeConn) ReportNetworkDown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.networkDown = true
	c.netReports++
}

func (c *fakeConn) ReportServerDown(down bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.serverDown = down
}

func (c *fakeConn) setOnline() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.networkDown, c.serverDown = false, false
}

func (c *fakeConn) setNetworkDown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.networkDown = true
}

func (c *fakeConn) isServerDown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverDown
}

var errBoom = fmt.Errorf("boom: 503: %w", domain.ErrServer)

// fakeHotels is an in-memory hotels backend. fail makes every call error.
type fakeHotels struct {
	mu      sync.Mutex
	items   []domain.Hotel
	nextID  int
	fail    bool
	calls   map[string]int
	reject  map[string]bool // names the backend refuses with a validation error
	onDel   func()
	creates []domain.Hotel
}

func newFakeHotels(seed ...domain.Hotel) *fakeHotels {
	return &fakeHotels{items: seed, calls: map[string]int{}, reject: map[string]bool{}}
}

func (f *fakeHotels) hit(op string) error {
	f.calls[op]++
	if f.fail {
		return errBoom
	}
	return nil
}

func (f *fakeHotels) setFail(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = v
}

func (f *fakeHotels) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeHotels) List(ctx context.Context, offset, limit int) (domain.Page[domain.Hotel], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("list"); err != nil {
		return domain.Page[domain.Hotel]{}, err
	}
	total := len(f.items)
	p := domain.Page[domain.Hotel]{Count: total, Results: []domain.Hotel{}}
	if offset < total {
		p.Results = append(p.Results, f.items[offset:min(offset+limit, total)]...)
	}
	if offset+limit < total {
		n := offset + limit
		p.NextOffset = &n
	}
	return p, nil
}

func (f *fakeHotels) Get(ctx context.Context, id string) (domain.Hotel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("get"); err != nil {
		return domain.Hotel{}, err
	}
	for _, h := range f.items {
		if h.ID == id {
			return h, nil
		}
	}
	return domain.Hotel{}, domain.ErrNotFound
}

func (f *fakeHotels) Create(ctx context.Context, h domain.Hotel) (domain.Hotel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("create"); err != nil {
		return domain.Hotel{}, err
	}
	if f.reject[h.Name] {
		var v domain.ValidationError
		v.Add("name", "hotel with this name already exists")
		return domain.Hotel{}, &v
	}
	f.nextID++
	h.ID = "srv-" + strconv.Itoa(f.nextID)
	f.items = append(f.items, h)
	f.creates = append(f.creates, h)
	return h, nil
}

func (f *fakeHotels) Update(ctx context.Context, id string, h domain.Hotel) (domain.Hotel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("update"); err != nil {
		return domain.Hotel{}, err
	}
	for i := range f.items {
		if f.items[i].ID == id {
			h.ID = id
			f.items[i] = h
			return h, nil
		}
	}
	return domain.Hotel{}, domain.ErrNotFound
}

func (f *fakeHotels) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	onDel := f.onDel
	f.mu.Unlock()
	if onDel != nil {
		onDel()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("delete"); err != nil {
		return err
	}
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeHotels) Search(ctx context.Context, q url.Values) ([]domain.Hotel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.hit("search"); err != nil {
		return nil, err
	}
	flt := domain.HotelFilter{Name: q.Get("name")}
	out := []domain.Hotel{}
	for _, h := range f.items {
		if flt.Match(h) {
			out = append(out, h)
		}
	}
	return out, nil
}

func hotel(id, name string) domain.Hotel {
	return domain.Hotel{ID: id, Name: name, Rating: 4}
}

func ids(hs []domain.Hotel) []string {
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = h.ID
	}
	return out
}
