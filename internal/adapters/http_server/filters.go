package httpserver

import (
	"fmt"
	"net/url"
	"strconv"

	"hotel_bookings/internal/domain"
)

func bookingFilter(q url.Values) (domain.Filter[domain.Booking], error) {
	f := domain.BookingFilter{
		Name:      q.Get("name"),
		Email:     q.Get("email"),
		Phone:     q.Get("phone"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		State:     q.Get("state"),
	}
	for k, v := range map[string]string{"start_date": f.StartDate, "end_date": f.EndDate} {
		if v == "" {
			continue
		}
		if _, ok := domain.ParseDate(v); !ok {
			return nil, fmt.Errorf("%s must be YYYY-MM-DD", k)
		}
	}
	return f, nil
}

func hotelFilter(q url.Values) (domain.Filter[domain.Hotel], error) {
	f := domain.HotelFilter{Name: q.Get("name")}
	var err error
	if f.MinRating, err = optFloat(q, "min_rating"); err != nil {
		return nil, err
	}
	return f, nil
}

func roomFilter(q url.Values) (domain.Filter[domain.Room], error) {
	f := domain.RoomFilter{HotelID: q.Get("hotel")}
	var err error
	if f.Number, err = optInt(q, "number"); err != nil {
		return nil, err
	}
	if f.MinCapacity, err = optInt(q, "min_capacity"); err != nil {
		return nil, err
	}
	if f.MaxPrice, err = optFloat(q, "max_price"); err != nil {
		return nil, err
	}
	return f, nil
}

func optInt(q url.Values, k string) (*int, error) {
	s := q.Get(k)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer", k)
	}
	return &n, nil
}

func optFloat(q url.Values, k string) (*float64, error) {
	s := q.Get(k)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || !domain.IsFinite(f) {
		return nil, fmt.Errorf("%s must be a number", k)
	}
	return &f, nil
}
