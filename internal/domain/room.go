package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type Room struct {
	ID            string   `json:"id,omitempty"`
	Number        int      `json:"number"`
	Capacity      int      `json:"capacity"`
	PricePerNight Decimal  `json:"price_per_night"`
	Hotel         HotelRef `json:"hotel"`
}

func (r Room) EntityID() string { return r.ID }

func (r Room) WithEntityID(id string) Room {
	r.ID = id
	return r
}

func (r Room) Validate() error {
	var v ValidationError
	if r.Number < 0 {
		v.Add("number", "ensure this value is greater than or equal to 0")
	}
	if r.Capacity < 1 {
		v.Add("capacity", "ensure this value is greater than or equal to 1")
	}
	switch {
	case !r.PricePerNight.IsFinite():
		v.Add("price_per_night", "a valid number is required")
	case r.PricePerNight < 0:
		v.Add("price_per_night", "ensure this value is greater than or equal to 0")
	}
	if strings.TrimSpace(r.Hotel.ID()) == "" {
		v.Add("hotel", "this field is required")
	}
	return v.OrNil()
}

// Unresolve returns a copy whose hotel reference holds only the id,
// which is the shape the backend accepts.
func (r Room) Unresolve() Room {
	r.Hotel = UnresolvedHotel(r.Hotel.ID())
	return r
}

// HotelRef is either Unresolved(id) or Resolved(Hotel). The zero value is an
// unresolved reference with an empty id.
type HotelRef struct {
	id    string
	hotel *Hotel
}

func UnresolvedHotel(id string) HotelRef { return HotelRef{id: id} }

func ResolvedHotel(h Hotel) HotelRef {
	hc := h
	return HotelRef{id: h.ID, hotel: &hc}
}

// ID returns the referenced hotel id in both cases.
func (r HotelRef) ID() string { return r.id }

// Resolved returns the hotel record when the reference is resolved.
func (r HotelRef) Resolved() (Hotel, bool) {
	if r.hotel == nil {
		return Hotel{}, false
	}
	return *r.hotel, true
}

func (r HotelRef) IsResolved() bool { return r.hotel != nil }

// MarshalJSON writes the full hotel object when resolved, the bare id otherwise.
func (r HotelRef) MarshalJSON() ([]byte, error) {
	if r.hotel != nil {
		return json.Marshal(*r.hotel)
	}
	return json.Marshal(r.id)
}

// UnmarshalJSON accepts either a hotel id string or a hotel object.
func (r *HotelRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*r = HotelRef{}
		return nil
	case b[0] == '"':
		var id string
		if err := json.Unmarshal(b, &id); err != nil {
			return err
		}
		*r = UnresolvedHotel(id)
		return nil
	case b[0] == '{':
		var h Hotel
		if err := json.Unmarshal(b, &h); err != nil {
			return err
		}
		*r = ResolvedHotel(h)
		return nil
	default:
		return fmt.Errorf("hotel: expected id or object, got %s", b)
	}
}
