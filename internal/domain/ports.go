package domain

import (
	"context"
	"net/url"
)

// Entity is implemented by Booking, Hotel and Room.
type Entity[T any] interface {
	EntityID() string
	WithEntityID(id string) T
	Validate() error
}

// Page is the list envelope shared by the backend and the local cache.
// NextOffset is nil on the last page.
type Page[T any] struct {
	Count      int  `json:"count"`
	Results    []T  `json:"results"`
	NextOffset *int `json:"next_offset"`
}

// ResourceBackend is the REST contract for one resource type.
type ResourceBackend[T any] interface {
	List(ctx context.Context, offset, limit int) (Page[T], error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, payload T) (T, error)
	Update(ctx context.Context, id string, payload T) (T, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, q url.Values) ([]T, error)
}

// Connectivity is the view of the connectivity monitor a resource client needs.
type Connectivity interface {
	IsOnline() bool
	ReportNetworkDown()
	ReportServerDown(down bool)
}

// TokenSource supplies the auth token; an empty token means an anonymous request.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource backed by a fixed value.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }
