package domain

import "strings"

type Hotel struct {
	ID      string  `json:"id,omitempty"`
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Rating  Decimal `json:"rating"`
}

func (h Hotel) EntityID() string { return h.ID }

func (h Hotel) WithEntityID(id string) Hotel {
	h.ID = id
	return h
}

// Validate mirrors the backend model constraints.
func (h Hotel) Validate() error {
	var v ValidationError
	switch name := strings.TrimSpace(h.Name); {
	case name == "":
		v.Add("name", "this field is required")
	case len(name) > 128:
		v.Add("name", "ensure this field has no more than 128 characters")
	}
	if len(h.Address) > 512 {
		v.Add("address", "ensure this field has no more than 512 characters")
	}
	if !h.Rating.IsFinite() || h.Rating < 0 || h.Rating > 5 {
		v.Add("rating", "rating must be between 0.0 and 5.0")
	}
	return v.OrNil()
}

// OfflineHotelName labels the stub used when a room's hotel cannot be resolved.
const OfflineHotelName = "Unknown/Offline Hotel"

// PlaceholderHotel is substituted for a hotel that could not be fetched from
// either the backend or the cache.
func PlaceholderHotel(id string) Hotel {
	return Hotel{ID: id, Name: OfflineHotelName, Address: "", Rating: 0}
}
