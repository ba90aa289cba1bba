package app

import (
	"context"

	"hotel_bookings/internal/connectivity"
	"hotel_bookings/internal/domain"
	"hotel_bookings/internal/offline"
)

// Monitor is what the service needs from the connectivity monitor.
type Monitor interface {
	domain.Connectivity
	StatusSource
	Status() connectivity.Status
}

type Backends struct {
	Bookings domain.ResourceBackend[domain.Booking]
	Hotels   domain.ResourceBackend[domain.Hotel]
	Rooms    domain.ResourceBackend[domain.Room]
}

// Service wires the three resource clients, one temp-id session and the
// sync coordinator around a shared connectivity monitor.
type Service struct {
	Conn     Monitor
	Bookings *Bookings
	Hotels   *Hotels
	Rooms    *Rooms
	Sync     *Coordinator
}

func NewService(conn Monitor, be Backends, pageSize int) *Service {
	ids := offline.NewTempIDs()
	s := &Service{Conn: conn}
	s.Bookings = NewBookings(be.Bookings, conn, ids, pageSize)
	s.Hotels = NewHotels(be.Hotels, conn, ids, pageSize)
	s.Rooms = NewRooms(be.Rooms, conn, ids, s.Hotels, pageSize)
	// hotels replay before rooms so a room can pick up its hotel's new id
	s.Sync = NewCoordinator(s.Bookings, s.Hotels, s.Rooms)
	return s
}

// Run drives the coordinator until ctx is done.
func (s *Service) Run(ctx context.Context) {
	s.Sync.Run(ctx, s.Conn)
}

type StatusView struct {
	Online       bool                `json:"online"`
	Connectivity connectivity.Status `json:"connectivity"`
	Pending      map[string]int      `json:"pending"`
	Syncing      bool                `json:"syncing"`
	LastSync     *Report             `json:"lastSync,omitempty"`
}

func (s *Service) Status() StatusView {
	v := StatusView{
		Online:       s.Conn.IsOnline(),
		Connectivity: s.Conn.Status(),
		Pending: map[string]int{
			s.Bookings.Name(): s.Bookings.Pending(),
			s.Hotels.Name():   s.Hotels.Pending(),
			s.Rooms.Name():    s.Rooms.Pending(),
		},
		Syncing: s.Sync.Running(),
	}
	if last, ok := s.Sync.Last(); ok {
		v.LastSync = &last
	}
	return v
}
