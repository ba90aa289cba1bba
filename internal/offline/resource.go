package offline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"hotel_bookings/internal/adapters/observability"
	"hotel_bookings/internal/domain"
)

const DefaultPageSize = 10

// Options configures a Resource. Backend and Conn are required.
type Options[T any] struct {
	Name    string
	Backend domain.ResourceBackend[T]
	Conn    domain.Connectivity
	TempIDs *TempIDs

	// Present is applied to every record handed back to callers.
	Present func(ctx context.Context, items []T) []T
	// Wire shapes a payload before it is sent or queued.
	Wire func(T) T
	// Rewrite is applied to a queued payload right before it is replayed.
	Rewrite func(T) T
	// LocalOnly reports a wire payload that still references an unsynced
	// record. Such writes are queued, and replay skips them until it clears.
	LocalOnly func(T) bool

	PageSize int
}

// Resource is the offline-resilient client for one resource type. Reads go to
// the backend first and fall back to the local cache; writes are applied
// optimistically and queued when the backend cannot be reached.
type Resource[T domain.Entity[T]] struct {
	name     string
	backend  domain.ResourceBackend[T]
	conn     domain.Connectivity
	ids      *TempIDs
	cache    *Cache[T]
	queue    *Queue[T]
	present  func(context.Context, []T) []T
	wire     func(T) T
	rewrite   func(T) T
	localOnly func(T) bool
	pageSize  int

	mu    sync.RWMutex
	remap map[string]string // temp id -> backend id, kept for the session

	replayMu sync.Mutex
}

func NewResource[T domain.Entity[T]](o Options[T]) *Resource[T] {
	r := &Resource[T]{
		name:     o.Name,
		backend:  o.Backend,
		conn:     o.Conn,
		ids:      o.TempIDs,
		cache:    NewCache[T](o.Name),
		queue:    NewQueue[T](),
		present:  o.Present,
		wire:     o.Wire,
		rewrite:   o.Rewrite,
		localOnly: o.LocalOnly,
		pageSize:  o.PageSize,
		remap:     map[string]string{},
	}
	if r.ids == nil {
		r.ids = NewTempIDs()
	}
	if r.present == nil {
		r.present = func(_ context.Context, items []T) []T { return items }
	}
	if r.wire == nil {
		r.wire = func(v T) T { return v }
	}
	if r.rewrite == nil {
		r.rewrite = func(v T) T { return v }
	}
	if r.localOnly == nil {
		r.localOnly = func(T) bool { return false }
	}
	if r.pageSize <= 0 {
		r.pageSize = DefaultPageSize
	}
	return r
}

func (r *Resource[T]) Name() string { return r.name }

// FetchPage returns one page of records. Offline or on a backend failure it
// serves the cached page and never errors; only a cancelled ctx is returned.
func (r *Resource[T]) FetchPage(ctx context.Context, offset, limit int) (domain.Page[T], error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = r.pageSize
	}
	if !r.conn.IsOnline() {
		r.conn.ReportNetworkDown()
		return r.localPage(ctx, "list", offset, limit), nil
	}
	page, err := r.backend.List(ctx, offset, limit)
	if err != nil {
		if cerr := r.failed(ctx, "list", err); cerr != nil {
			return domain.Page[T]{}, cerr
		}
		return r.localPage(ctx, "list", offset, limit), nil
	}
	r.conn.ReportServerDown(false)

	if offset == 0 {
		r.cache.ReplaceAll(page.Results)
	} else {
		r.cache.AppendNew(page.Results)
	}
	r.overlayPending()

	if page.Results == nil {
		page.Results = []T{}
	}
	page.Results = r.present(ctx, page.Results)
	return page, nil
}

// FetchByID returns one record. Temp ids are served from the cache.
// domain.ErrNotFound is returned when neither the backend nor the cache has it.
func (r *Resource[T]) FetchByID(ctx context.Context, id string) (T, error) {
	var zero T
	id = r.resolve(id)
	if IsTemp(id) {
		return r.local(ctx, id)
	}
	if !r.conn.IsOnline() {
		r.conn.ReportNetworkDown()
		return r.local(ctx, id)
	}
	v, err := r.backend.Get(ctx, id)
	switch {
	case err == nil:
		r.conn.ReportServerDown(false)
		r.cache.Upsert(v)
		return r.presentOne(ctx, v), nil
	case errors.Is(err, domain.ErrNotFound):
		r.conn.ReportServerDown(false)
	default:
		if cerr := r.failed(ctx, "get", err); cerr != nil {
			return zero, cerr
		}
	}
	return r.local(ctx, id)
}

// Create validates payload and sends it. When the backend is unreachable, or
// the payload still points at an unsynced record, the record is stored under a
// temp id, a create is queued and the optimistic record is returned.
// Validation errors from either side are surfaced.
func (r *Resource[T]) Create(ctx context.Context, payload T) (T, error) {
	var zero T
	if err := payload.Validate(); err != nil {
		return zero, err
	}
	wire := r.wire(payload.WithEntityID(""))

	switch {
	case r.localOnly(wire):
	case r.conn.IsOnline():
		v, err := r.backend.Create(ctx, wire)
		switch {
		case err == nil:
			r.conn.ReportServerDown(false)
			r.cache.Upsert(v)
			return r.presentOne(ctx, v), nil
		case domain.IsValidation(err):
			r.conn.ReportServerDown(false)
			return zero, err
		}
		if cerr := r.failed(ctx, "create", err); cerr != nil {
			return zero, cerr
		}
	default:
		r.conn.ReportNetworkDown()
	}

	tempID := r.ids.Next()
	rec := wire.WithEntityID(tempID)
	r.cache.Upsert(rec)
	r.enqueue(&PendingOp[T]{Kind: OpCreate, ID: tempID, TempID: tempID, Payload: wire})
	return r.presentOne(ctx, rec), nil
}

// Update validates payload and patches record id. Records that only exist
// locally are never sent; the update is queued behind their create.
func (r *Resource[T]) Update(ctx context.Context, id string, payload T) (T, error) {
	var zero T
	if err := payload.Validate(); err != nil {
		return zero, err
	}
	target := r.resolve(id)
	wire := r.wire(payload.WithEntityID(""))

	if !IsTemp(target) && !r.localOnly(wire) {
		if r.conn.IsOnline() {
			v, err := r.backend.Update(ctx, target, wire)
			switch {
			case err == nil:
				r.conn.ReportServerDown(false)
				r.cache.Upsert(v)
				return r.presentOne(ctx, v), nil
			case domain.IsValidation(err):
				r.conn.ReportServerDown(false)
				return zero, err
			case errors.Is(err, domain.ErrNotFound):
				r.conn.ReportServerDown(false)
				r.cache.Remove(target)
				return zero, fmt.Errorf("%s %s: %w", r.name, target, err)
			}
			if cerr := r.failed(ctx, "update", err); cerr != nil {
				return zero, cerr
			}
		} else {
			r.conn.ReportNetworkDown()
		}
	}

	rec := wire.WithEntityID(target)
	r.cache.Set(target, rec)
	r.enqueue(&PendingOp[T]{Kind: OpUpdate, ID: target, Payload: wire})
	return r.presentOne(ctx, rec), nil
}

// Remove drops the record from the cache before contacting the backend.
// A backend 404 counts as success; any other failure queues the delete.
func (r *Resource[T]) Remove(ctx context.Context, id string) error {
	target := r.resolve(id)
	r.cache.Remove(target)

	if !IsTemp(target) {
		if r.conn.IsOnline() {
			err := r.backend.Delete(ctx, target)
			if err == nil || errors.Is(err, domain.ErrNotFound) {
				r.conn.ReportServerDown(false)
				return nil
			}
			// a cancelled delete is queued too
			_ = r.failed(ctx, "delete", err)
		} else {
			r.conn.ReportNetworkDown()
		}
	}

	var zero T
	r.enqueue(&PendingOp[T]{Kind: OpDelete, ID: target, Payload: zero})
	return nil
}

// Search runs f against the backend and falls back to scanning the cache.
func (r *Resource[T]) Search(ctx context.Context, f domain.Filter[T]) ([]T, error) {
	if r.conn.IsOnline() {
		items, err := r.backend.Search(ctx, f.Query())
		if err == nil {
			r.conn.ReportServerDown(false)
			if items == nil {
				items = []T{}
			}
			return r.present(ctx, items), nil
		}
		if cerr := r.failed(ctx, "search", err); cerr != nil {
			return nil, cerr
		}
	} else {
		r.conn.ReportNetworkDown()
	}
	observability.ObserveFallback(r.name, "search")
	return r.present(ctx, r.cache.Filter(f.Match)), nil
}

// ReplayReport summarises one replay pass.
type ReplayReport struct {
	Resource  string `json:"resource"`
	Attempted int    `json:"attempted"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
	Remaining int    `json:"remaining"`
}

// Replay sends the queued ops in FIFO order. Successful ops are removed;
// failed ones stay queued for the next pass. Ops targeting a record whose
// create has not been replayed yet are skipped. It is a no-op while offline.
func (r *Resource[T]) Replay(ctx context.Context) ReplayReport {
	r.replayMu.Lock()
	defer r.replayMu.Unlock()

	rep := ReplayReport{Resource: r.name}
	if !r.conn.IsOnline() {
		rep.Remaining = r.queue.Len()
		return rep
	}

	snapshot := r.queue.Snapshot()
	done := make([]*PendingOp[T], 0, len(snapshot))
	for _, op := range snapshot {
		if ctx.Err() != nil {
			break
		}
		target := r.resolve(op.ID)
		payload := r.rewrite(op.Payload)
		if (op.Kind != OpCreate && IsTemp(target)) || (op.Kind != OpDelete && r.localOnly(payload)) {
			rep.Skipped++
			continue
		}
		rep.Attempted++
		if err := r.replayOne(ctx, op, target, payload); err != nil {
			rep.Failed++
			if serverFault(ctx, err) {
				r.conn.ReportServerDown(true)
			}
			log.Warn().
				Str("resource", r.name).
				Str("op", op.Kind.String()).
				Str("id", target).
				Uint64("seq", op.Seq).
				Err(fmt.Errorf("%w: %w", domain.ErrSyncReplayFailed, err)).
				Msg("replay failed, op kept")
			observability.ObserveReplay(r.name, op.Kind.String(), observability.LabelErr(err))
			continue
		}
		observability.ObserveReplay(r.name, op.Kind.String(), observability.LabelErr(nil))
		done = append(done, op)
		rep.Succeeded++
	}

	r.queue.Remove(done...)
	rep.Remaining = r.queue.Len()
	observability.SetQueueDepth(r.name, rep.Remaining)
	if rep.Attempted > 0 {
		log.Info().
			Str("resource", r.name).
			Int("ok", rep.Succeeded).
			Int("failed", rep.Failed).
			Int("skipped", rep.Skipped).
			Int("remaining", rep.Remaining).
			Msg("replay pass")
	}
	return rep
}

func (r *Resource[T]) replayOne(ctx context.Context, op *PendingOp[T], target string, payload T) error {
	switch op.Kind {
	case OpCreate:
		v, err := r.backend.Create(ctx, payload)
		if err != nil {
			return err
		}
		r.mu.Lock()
		r.remap[op.TempID] = v.EntityID()
		r.mu.Unlock()
		r.cache.Replace(op.TempID, v)
	case OpUpdate:
		v, err := r.backend.Update(ctx, target, payload)
		if err != nil {
			return err
		}
		r.cache.Set(target, v)
	case OpDelete:
		if err := r.backend.Delete(ctx, target); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		r.cache.Remove(target)
	default:
		return fmt.Errorf("unknown op kind %d", op.Kind)
	}
	return nil
}

// ResolveTempID maps a replayed temp id to the backend id it was assigned.
func (r *Resource[T]) ResolveTempID(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	backendID, ok := r.remap[id]
	return backendID, ok
}

func (r *Resource[T]) resolve(id string) string {
	if backendID, ok := r.ResolveTempID(id); ok {
		return backendID
	}
	return id
}

// Pending is the number of queued ops.
func (r *Resource[T]) Pending() int { return r.queue.Len() }

// PendingOps returns a copy of the queue for inspection.
func (r *Resource[T]) PendingOps() []PendingOp[T] {
	snap := r.queue.Snapshot()
	out := make([]PendingOp[T], len(snap))
	for i, op := range snap {
		out[i] = *op
	}
	return out
}

// Cached returns the cache contents in order, without presentation.
func (r *Resource[T]) Cached() []T { return r.cache.All() }

func (r *Resource[T]) enqueue(op *PendingOp[T]) {
	r.queue.Enqueue(op)
	n := r.queue.Len()
	observability.ObserveOptimistic(r.name, op.Kind.String())
	observability.SetQueueDepth(r.name, n)
	log.Info().
		Str("resource", r.name).
		Str("op", op.Kind.String()).
		Str("id", op.ID).
		Int("pending", n).
		Msg("queued for sync")
}

// failed records a backend failure. It returns ctx's error when the caller
// gave up, in which case the server is not marked down.
func (r *Resource[T]) failed(ctx context.Context, op string, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	r.conn.ReportServerDown(true)
	log.Warn().Str("resource", r.name).Str("op", op).Err(err).Msg("backend unavailable, using local state")
	return nil
}

// serverFault reports whether a replay failure says anything about the backend's health.
func serverFault(ctx context.Context, err error) bool {
	return ctx.Err() == nil && !domain.IsValidation(err) && !errors.Is(err, domain.ErrNotFound)
}

func (r *Resource[T]) local(ctx context.Context, id string) (T, error) {
	observability.ObserveFallback(r.name, "get")
	v, ok := r.cache.Get(id)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s %s: %w", r.name, id, domain.ErrNotFound)
	}
	return r.presentOne(ctx, v), nil
}

func (r *Resource[T]) localPage(ctx context.Context, op string, offset, limit int) domain.Page[T] {
	observability.ObserveFallback(r.name, op)
	p := r.cache.Page(offset, limit)
	p.Results = r.present(ctx, p.Results)
	return p
}

func (r *Resource[T]) presentOne(ctx context.Context, v T) T {
	out := r.present(ctx, []T{v})
	if len(out) != 1 {
		return v
	}
	return out[0]
}

// overlayPending reapplies queued mutations after a reload from the backend,
// so unsynced local changes stay visible.
func (r *Resource[T]) overlayPending() {
	for _, op := range r.queue.Snapshot() {
		target := r.resolve(op.ID)
		switch op.Kind {
		case OpCreate:
			if IsTemp(target) {
				r.cache.Upsert(op.Payload.WithEntityID(target))
			}
		case OpUpdate:
			r.cache.Set(target, op.Payload.WithEntityID(target))
		case OpDelete:
			r.cache.Remove(target)
		}
	}
}
