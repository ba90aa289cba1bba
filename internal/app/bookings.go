package app

import (
	"context"

	"hotel_bookings/internal/domain"
	"hotel_bookings/internal/offline"
)

type Bookings struct {
	*offline.Resource[domain.Booking]
}

func NewBookings(be domain.ResourceBackend[domain.Booking], conn domain.Connectivity, ids *offline.TempIDs, pageSize int) *Bookings {
	return &Bookings{offline.NewResource(offline.Options[domain.Booking]{
		Name:     "bookings",
		Backend:  be,
		Conn:     conn,
		TempIDs:  ids,
		PageSize: pageSize,
	})}
}

// Create defaults the state to PENDING, matching what the backend assigns.
func (b *Bookings) Create(ctx context.Context, payload domain.Booking) (domain.Booking, error) {
	if payload.State == "" {
		payload.State = domain.StatePending
	}
	return b.Resource.Create(ctx, payload)
}
