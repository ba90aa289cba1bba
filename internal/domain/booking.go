package domain

import (
	"strconv"
	"strings"
	"time"
)

type BookingState string

const (
	StatePending   BookingState = "PENDING"
	StateConfirmed BookingState = "CONFIRMED"
	StateCancelled BookingState = "CANCELLED"
	StateCompleted BookingState = "COMPLETED"
)

func (s BookingState) Valid() bool {
	switch s {
	case StatePending, StateConfirmed, StateCancelled, StateCompleted:
		return true
	}
	return false
}

// DateLayout is the backend's DateField format.
const DateLayout = "2006-01-02"

type Booking struct {
	ID            string       `json:"id,omitempty"`
	CustomerName  string       `json:"customerName"`
	CustomerEmail string       `json:"customerEmail"`
	CustomerPhone string       `json:"customerPhone"`
	StartDate     string       `json:"startDate"`
	EndDate       string       `json:"endDate"`
	State         BookingState `json:"state,omitempty"`
	CreatedAt     *time.Time   `json:"createdAt,omitempty"`
	CompletedAt   *time.Time   `json:"completedAt,omitempty"`
}

func (b Booking) EntityID() string { return b.ID }

func (b Booking) WithEntityID(id string) Booking {
	b.ID = id
	return b
}

func (b Booking) Validate() error {
	var v ValidationError
	requiredMax(&v, "customerName", b.CustomerName, 127)
	requiredMax(&v, "customerEmail", b.CustomerEmail, 127)
	if e := strings.TrimSpace(b.CustomerEmail); e != "" && !strings.Contains(e, "@") {
		v.Add("customerEmail", "enter a valid email address")
	}
	if len(b.CustomerPhone) > 20 {
		v.Add("customerPhone", "ensure this field has no more than 20 characters")
	}
	requiredDate(&v, "startDate", b.StartDate)
	requiredDate(&v, "endDate", b.EndDate)
	if b.State != "" && !b.State.Valid() {
		v.Add("state", `"`+string(b.State)+`" is not a valid choice`)
	}
	return v.OrNil()
}

func requiredMax(v *ValidationError, field, val string, max int) {
	switch t := strings.TrimSpace(val); {
	case t == "":
		v.Add(field, "this field is required")
	case len(t) > max:
		v.Add(field, "ensure this field has no more than "+strconv.Itoa(max)+" characters")
	}
}

func requiredDate(v *ValidationError, field, val string) {
	if strings.TrimSpace(val) == "" {
		v.Add(field, "this field is required")
		return
	}
	if _, ok := ParseDate(val); !ok {
		v.Add(field, "date has wrong format, use YYYY-MM-DD")
	}
}

// ParseDate accepts the backend date format and full RFC 3339 timestamps.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}
