package app

import (
	"hotel_bookings/internal/domain"
	"hotel_bookings/internal/offline"
)

type Hotels struct {
	*offline.Resource[domain.Hotel]
}

func NewHotels(be domain.ResourceBackend[domain.Hotel], conn domain.Connectivity, ids *offline.TempIDs, pageSize int) *Hotels {
	return &Hotels{offline.NewResource(offline.Options[domain.Hotel]{
		Name:     "hotels",
		Backend:  be,
		Conn:     conn,
		TempIDs:  ids,
		PageSize: pageSize,
	})}
}
