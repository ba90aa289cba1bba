package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"hotel_bookings/internal/app"
	"hotel_bookings/internal/domain"
	"hotel_bookings/internal/offline"
)

type Handlers struct{ Svc *app.Service }

type problem struct {
	Type   string              `json:"type"`
	Title  string              `json:"title"`
	Status int                 `json:"status"`
	Detail string              `json:"detail,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
}

// resourceAPI is the surface every offline resource client exposes.
type resourceAPI[T domain.Entity[T]] interface {
	FetchPage(ctx context.Context, offset, limit int) (domain.Page[T], error)
	FetchByID(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, payload T) (T, error)
	Update(ctx context.Context, id string, payload T) (T, error)
	Remove(ctx context.Context, id string) error
	Search(ctx context.Context, f domain.Filter[T]) ([]T, error)
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/status", h.status)
	s.mux.Post("/v1/sync", h.sync)

	s.mux.Route("/v1/bookings", func(r chi.Router) {
		mountResource[domain.Booking](r, h.Svc.Bookings, bookingFilter)
	})
	s.mux.Route("/v1/hotels", func(r chi.Router) {
		mountResource[domain.Hotel](r, h.Svc.Hotels, hotelFilter)
	})
	s.mux.Route("/v1/rooms", func(r chi.Router) {
		mountResource[domain.Room](r, h.Svc.Rooms, roomFilter)
	})
}

func mountResource[T domain.Entity[T]](r chi.Router, api resourceAPI[T], filter func(url.Values) (domain.Filter[T], error)) {
	rh := &resourceHandlers[T]{api: api, filter: filter}
	r.Get("/", rh.list)
	r.Get("/search", rh.search)
	r.Get("/{id}", rh.get)
	r.Post("/", rh.create)
	r.Patch("/{id}", rh.update)
	r.Delete("/{id}", rh.remove)
}

type resourceHandlers[T domain.Entity[T]] struct {
	api    resourceAPI[T]
	filter func(url.Values) (domain.Filter[T], error)
}

func (rh *resourceHandlers[T]) list(w http.ResponseWriter, r *http.Request) {
	offset, limit, ok := pageParams(w, r)
	if !ok {
		return
	}
	page, err := rh.api.FetchPage(r.Context(), offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCached(w, r, page)
}

func (rh *resourceHandlers[T]) search(w http.ResponseWriter, r *http.Request) {
	f, err := rh.filter(r.URL.Query())
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid filter", err.Error())
		return
	}
	items, err := rh.api.Search(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCached(w, r, map[string]any{"count": len(items), "results": items})
}

func (rh *resourceHandlers[T]) get(w http.ResponseWriter, r *http.Request) {
	v, err := rh.api.FetchByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeCached(w, r, v)
}

func (rh *resourceHandlers[T]) create(w http.ResponseWriter, r *http.Request) {
	var payload T
	if !decodeBody(w, r, &payload) {
		return
	}
	v, err := rh.api.Create(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}
	// 202 marks a record that only exists locally until the next sync
	status := http.StatusCreated
	if offline.IsTemp(v.EntityID()) {
		status = http.StatusAccepted
	}
	writeJSON(w, status, v)
}

// update applies the body as a patch over the current record.
func (rh *resourceHandlers[T]) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cur, err := rh.api.FetchByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !decodeBody(w, r, &cur) {
		return
	}
	v, err := rh.api.Update(r.Context(), id, cur)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (rh *resourceHandlers[T]) remove(w http.ResponseWriter, r *http.Request) {
	if err := rh.api.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Svc.Status())
}

func (h *Handlers) sync(w http.ResponseWriter, r *http.Request) {
	switch h.Svc.Sync.Trigger("manual") {
	case app.SyncStarted:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	case app.SyncQueued:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
	default:
		writeProblem(w, http.StatusConflict, "Sync already queued", "a sync pass is running and another is queued")
	}
}

// ---- request helpers ----

func pageParams(w http.ResponseWriter, r *http.Request) (offset, limit int, ok bool) {
	q := r.URL.Query()
	if s := q.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid offset", "offset must be a non-negative integer")
			return 0, 0, false
		}
		offset = n
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 100 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 100")
			return 0, 0, false
		}
		limit = n
	}
	return offset, limit, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return false
	}
	return true
}

// ---- response helpers ----

func writeError(w http.ResponseWriter, err error) {
	var v *domain.ValidationError
	switch {
	case errors.As(err, &v):
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusBadRequest)
		if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: "Validation failed", Status: http.StatusBadRequest, Errors: v.Fields}); err != nil {
			log.Error().Err(err).Msg("write JSON problem response failed")
		}
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeProblem(w, http.StatusServiceUnavailable, "Request cancelled", err.Error())
	default:
		log.Error().Err(err).Msg("unexpected handler error")
		writeProblem(w, http.StatusBadGateway, "Backend error", err.Error())
	}
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// writeCached sends v with a weak ETag and answers If-None-Match with 304.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if etag != "" {
		w.Header().Set("ETag", etag)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`, body
}
