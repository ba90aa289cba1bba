package domain

import (
	"net/url"
	"strconv"
	"strings"
)

// Filter is a search over one resource type. Query encodes it as the
// backend's query parameters; Match applies the same predicate to a cached record.
// All provided criteria are ANDed; unset criteria match everything.
type Filter[T any] interface {
	Query() url.Values
	Match(T) bool
}

type BookingFilter struct {
	Name      string // case-insensitive substring of customerName
	Email     string // case-insensitive substring of customerEmail
	Phone     string // case-insensitive substring of customerPhone
	StartDate string // inclusive lower bound on startDate
	EndDate   string // inclusive upper bound on endDate
	State     string // exact match
}

func (f BookingFilter) Query() url.Values {
	q := url.Values{}
	setNonEmpty(q, "name", f.Name)
	setNonEmpty(q, "email", f.Email)
	setNonEmpty(q, "phone", f.Phone)
	setNonEmpty(q, "start_date", f.StartDate)
	setNonEmpty(q, "end_date", f.EndDate)
	setNonEmpty(q, "state", f.State)
	return q
}

func (f BookingFilter) Match(b Booking) bool {
	if !containsFold(b.CustomerName, f.Name) ||
		!containsFold(b.CustomerEmail, f.Email) ||
		!containsFold(b.CustomerPhone, f.Phone) {
		return false
	}
	if f.State != "" && string(b.State) != f.State {
		return false
	}
	if f.StartDate != "" && !dateOnOrAfter(b.StartDate, f.StartDate) {
		return false
	}
	if f.EndDate != "" && !dateOnOrAfter(f.EndDate, b.EndDate) {
		return false
	}
	return true
}

type HotelFilter struct {
	Name      string
	MinRating *float64
}

func (f HotelFilter) Query() url.Values {
	q := url.Values{}
	setNonEmpty(q, "name", f.Name)
	if f.MinRating != nil {
		q.Set("min_rating", strconv.FormatFloat(*f.MinRating, 'f', -1, 64))
	}
	return q
}

func (f HotelFilter) Match(h Hotel) bool {
	if !containsFold(h.Name, f.Name) {
		return false
	}
	if f.MinRating != nil && h.Rating.Float64() < *f.MinRating {
		return false
	}
	return true
}

type RoomFilter struct {
	HotelID     string // identity match on the referenced hotel id
	Number      *int
	MinCapacity *int
	MaxPrice    *float64
}

func (f RoomFilter) Query() url.Values {
	q := url.Values{}
	setNonEmpty(q, "hotel", f.HotelID)
	if f.Number != nil {
		q.Set("number", strconv.Itoa(*f.Number))
	}
	if f.MinCapacity != nil {
		q.Set("min_capacity", strconv.Itoa(*f.MinCapacity))
	}
	if f.MaxPrice != nil {
		q.Set("max_price", strconv.FormatFloat(*f.MaxPrice, 'f', -1, 64))
	}
	return q
}

func (f RoomFilter) Match(r Room) bool {
	if f.HotelID != "" && r.Hotel.ID() != f.HotelID {
		return false
	}
	if f.Number != nil && r.Number != *f.Number {
		return false
	}
	if f.MinCapacity != nil && r.Capacity < *f.MinCapacity {
		return false
	}
	if f.MaxPrice != nil && r.PricePerNight.Float64() > *f.MaxPrice {
		return false
	}
	return true
}

func setNonEmpty(q url.Values, k, v string) {
	if v = strings.TrimSpace(v); v != "" {
		q.Set(k, v)
	}
}

func containsFold(s, sub string) bool {
	if sub == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// dateOnOrAfter reports a >= b. Unparseable dates never match.
func dateOnOrAfter(a, b string) bool {
	ta, ok := ParseDate(a)
	if !ok {
		return false
	}
	tb, ok := ParseDate(b)
	if !ok {
		return false
	}
	return !ta.Before(tb)
}
