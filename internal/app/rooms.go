package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"hotel_bookings/internal/domain"
	"hotel_bookings/internal/offline"
)

const defaultHotelLookups = 4

// Rooms sends and queues rooms with a bare hotel id and resolves the hotel
// on every room it returns.
type Rooms struct {
	*offline.Resource[domain.Room]
	hotels  *Hotels
	lookups int64
}

func NewRooms(be domain.ResourceBackend[domain.Room], conn domain.Connectivity, ids *offline.TempIDs, hotels *Hotels, pageSize int) *Rooms {
	r := &Rooms{hotels: hotels, lookups: defaultHotelLookups}
	r.Resource = offline.NewResource(offline.Options[domain.Room]{
		Name:      "rooms",
		Backend:   be,
		Conn:      conn,
		TempIDs:   ids,
		PageSize:  pageSize,
		Wire:      r.toWire,
		Present:   r.resolveHotels,
		Rewrite:   r.remapHotel,
		LocalOnly: r.hotelUnsynced,
	})
	return r
}

// toWire is the backend shape of a room: a bare hotel id, remapped if the
// hotel has been synced since the caller read it.
func (r *Rooms) toWire(room domain.Room) domain.Room {
	return r.remapHotel(room.Unresolve())
}

// hotelUnsynced holds a room back while its hotel only exists locally.
func (r *Rooms) hotelUnsynced(room domain.Room) bool {
	return offline.IsTemp(room.Hotel.ID())
}

// remapHotel points a queued room at its hotel's backend id once the hotel's
// own create has been replayed.
func (r *Rooms) remapHotel(room domain.Room) domain.Room {
	if id, ok := r.hotels.ResolveTempID(room.Hotel.ID()); ok {
		room.Hotel = domain.UnresolvedHotel(id)
	}
	return room
}

// resolveHotels looks up each distinct hotel once, a few at a time. A hotel
// that cannot be found anywhere is replaced by the offline placeholder.
func (r *Rooms) resolveHotels(ctx context.Context, rooms []domain.Room) []domain.Room {
	out := make([]domain.Room, len(rooms))
	copy(out, rooms)

	want := map[string]struct{}{}
	for _, room := range out {
		if id := room.Hotel.ID(); id != "" {
			want[id] = struct{}{}
		}
	}
	if len(want) == 0 {
		return out
	}

	var (
		mu       sync.Mutex
		resolved = make(map[string]domain.Hotel, len(want))
		wg       sync.WaitGroup
	)
	sem := semaphore.NewWeighted(r.lookups)
	for id := range want {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(hotelID string) {
			defer wg.Done()
			defer sem.Release(1)

			h, err := r.hotels.FetchByID(ctx, hotelID)
			if err != nil {
				log.Warn().Str("hotel", hotelID).Err(err).Msg("hotel unresolved, using placeholder")
				h = domain.PlaceholderHotel(hotelID)
			}
			mu.Lock()
			resolved[hotelID] = h
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	for i := range out {
		id := out[i].Hotel.ID()
		if id == "" {
			continue
		}
		h, ok := resolved[id]
		if !ok {
			h = domain.PlaceholderHotel(id)
		}
		out[i].Hotel = domain.ResolvedHotel(h)
	}
	return out
}
