package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"hotel_bookings/internal/domain"
)

// Resource is the REST binding for one collection, e.g. /bookings/.
// It implements domain.ResourceBackend[T].
type Resource[T any] struct {
	c    *Client
	name string
}

func NewResource[T any](c *Client, name string) *Resource[T] {
	return &Resource[T]{c: c, name: name}
}

func (r *Resource[T]) collection() string { return "/" + r.name + "/" }

func (r *Resource[T]) item(id string) string {
	return r.collection() + url.PathEscape(id) + "/"
}

func (r *Resource[T]) List(ctx context.Context, offset, limit int) (domain.Page[T], error) {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	var page domain.Page[T]
	err := r.c.do(ctx, call{resource: r.name, op: "list", method: http.MethodGet, path: r.collection() + "?" + q.Encode(), out: &page})
	if page.Results == nil {
		page.Results = []T{}
	}
	return page, err
}

func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	var out T
	err := r.c.do(ctx, call{resource: r.name, op: "get", method: http.MethodGet, path: r.item(id), out: &out})
	return out, err
}

func (r *Resource[T]) Create(ctx context.Context, payload T) (T, error) {
	var out T
	err := r.c.do(ctx, call{resource: r.name, op: "create", method: http.MethodPost, path: r.collection(), body: payload, out: &out})
	return out, err
}

func (r *Resource[T]) Update(ctx context.Context, id string, payload T) (T, error) {
	var out T
	err := r.c.do(ctx, call{resource: r.name, op: "update", method: http.MethodPatch, path: r.item(id), body: payload, out: &out})
	return out, err
}

func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	return r.c.do(ctx, call{resource: r.name, op: "delete", method: http.MethodDelete, path: r.item(id)})
}

// Search uses the collection's filter parameters and returns the first page.
func (r *Resource[T]) Search(ctx context.Context, q url.Values) ([]T, error) {
	path := r.collection()
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	var page domain.Page[T]
	if err := r.c.do(ctx, call{resource: r.name, op: "search", method: http.MethodGet, path: path, out: &page}); err != nil {
		return nil, err
	}
	if page.Results == nil {
		return []T{}, nil
	}
	return page.Results, nil
}
