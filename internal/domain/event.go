package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

// EventClassName is the remote class that stores events.
const EventClassName = "Event"

// Status is the eventStatus of an event.
type Status string

const (
	StatusScheduled   Status = "scheduled"
	StatusRescheduled Status = "rescheduled"
	StatusPostponed   Status = "postponed"
	StatusMovedOnline Status = "movedOnline"
	StatusCancelled   Status = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusRescheduled, StatusPostponed, StatusMovedOnline, StatusCancelled:
		return true
	}
	return false
}

// AttendanceMode is the eventAttendanceMode of an event.
type AttendanceMode string

const (
	AttendanceOnline  AttendanceMode = "online"
	AttendanceOffline AttendanceMode = "offline"
	AttendanceMixed   AttendanceMode = "mixed"
)

// Valid reports whether m is one of the known attendance modes.
func (m AttendanceMode) Valid() bool {
	switch m {
	case AttendanceOnline, AttendanceOffline, AttendanceMixed:
		return true
	}
	return false
}

// Availability describes the ticket availability of an offer.
type Availability string

const (
	AvailabilitySoldOut             Availability = "soldOut"
	AvailabilityPreSale             Availability = "preSale"
	AvailabilityOnlineOnly          Availability = "onlineOnly"
	AvailabilityLimitedAvailability Availability = "limitedAvailability"
	AvailabilityInStoreOnly         Availability = "inStoreOnly"
	AvailabilityInStock             Availability = "inStock"
)

// Offer is ticket information for an event.
// swagger:model Offer
type Offer struct {
	Price         string       `json:"price,omitempty"`
	Name          string       `json:"name,omitempty"`
	PriceCurrency string       `json:"priceCurrency,omitempty"`
	Availability  Availability `json:"availability,omitempty"`
}

// Address is the postal address of an event location.
type Address struct {
	Name            string `json:"name,omitempty"`
	StreetAddress   string `json:"streetAddress,omitempty"`
	AddressLocality string `json:"addressLocality,omitempty"`
	PostalCode      string `json:"postalCode,omitempty"`
}

// GeoPoint is a latitude/longitude pair as stored by the catalog.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location is where an event takes place.
type Location struct {
	ID       string    `json:"id,omitempty"`
	Address  *Address  `json:"address,omitempty"`
	GeoPoint *GeoPoint `json:"geopoint,omitempty"`
}

// Event is a catalog event record.
// ID, CreatedAt and UpdatedAt are assigned by the server and never changed by clients.
// swagger:model Event
type Event struct {
	ID        string     `json:"objectId,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`

	StartDate                      *ParseDate     `json:"startDate,omitempty"`
	EndDate                        *ParseDate     `json:"endDate,omitempty"`
	Location                       *Location      `json:"location,omitempty"`
	Offers                         []Offer        `json:"offers,omitempty"`
	IsAllDay                       bool           `json:"isAllDay,omitempty"`
	Name                           string         `json:"name,omitempty"`
	Description                    string         `json:"description,omitempty"`
	URL                            string         `json:"url,omitempty"`
	Category                       string         `json:"category,omitempty"`
	Subcategory                    string         `json:"subcategory,omitempty"`
	Status                         Status         `json:"eventStatus,omitempty"`
	SourceURL                      string         `json:"sourceUrl,omitempty"`
	SourceID                       string         `json:"sourceId,omitempty"`
	AttendanceMode                 AttendanceMode `json:"eventAttendanceMode,omitempty"`
	MaximumAttendeeCapacity        *int           `json:"maximumAttendeeCapacity,omitempty"`
	MaximumVirtualAttendeeCapacity *int           `json:"maximumVirtualAttendeeCapacity,omitempty"`
	PreviousStartDate              string         `json:"previousStartDate,omitempty"`
	TypicalAgeRange                string         `json:"typicalAgeRange,omitempty"`
	Image                          string         `json:"image,omitempty"`
	ThumbImage                     string         `json:"thumbImage,omitempty"`
	Tags                           []string       `json:"tags,omitempty"`
}

// HasID reports whether the event carries a server identifier.
func (e Event) HasID() bool {
	return e.ID != ""
}

// Start returns the start date, if any.
func (e Event) Start() (time.Time, bool) {
	if e.StartDate == nil || e.StartDate.IsZero() {
		return time.Time{}, false
	}
	return e.StartDate.Time, true
}

// IsCancelled reports whether the event status is cancelled.
func (e Event) IsCancelled() bool {
	return e.Status == StatusCancelled
}

// Equal reports whether both events hold identical values in every field.
func (e Event) Equal(other Event) bool {
	return reflect.DeepEqual(e, other)
}

// Validate checks the record against the event schema.
func (e Event) Validate() error {
	if !e.Status.Valid() {
		return fmt.Errorf("unknown eventStatus %q", e.Status)
	}
	if !e.AttendanceMode.Valid() {
		return fmt.Errorf("unknown eventAttendanceMode %q", e.AttendanceMode)
	}
	if e.StartDate != nil && e.EndDate != nil && e.EndDate.Before(e.StartDate.Time) {
		return fmt.Errorf("endDate %s is before startDate %s", FormatISODate(e.EndDate.Time), FormatISODate(e.StartDate.Time))
	}
	return nil
}

// UnmarshalJSON decodes an event and applies the schema defaults for status and attendance mode.
func (e *Event) UnmarshalJSON(data []byte) error {
	type plain Event
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Status == "" {
		p.Status = StatusScheduled
	}
	if p.AttendanceMode == "" {
		p.AttendanceMode = AttendanceOffline
	}
	*e = Event(p)
	return nil
}

// DecodeEvent decodes and validates a single remote record.
func DecodeEvent(raw json.RawMessage) (Event, error) {
	var e Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return Event{}, err
	}
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	return e, nil
}

// ParseDate is a date as stored by the catalog. It decodes from either a plain
// ISO-8601 string or the {"__type":"Date","iso":"..."} object form and always
// encodes to the object form.
type ParseDate struct {
	time.Time
}

// NewParseDate returns a ParseDate pointer for t.
func NewParseDate(t time.Time) *ParseDate {
	return &ParseDate{Time: t}
}

type parseDateObject struct {
	Type string `json:"__type"`
	ISO  string `json:"iso"`
}

func (d ParseDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(parseDateObject{Type: "Date", ISO: FormatISODate(d.Time)})
}

func (d *ParseDate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var iso string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &iso); err != nil {
			return err
		}
	} else {
		var obj parseDateObject
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		if obj.Type != "" && obj.Type != "Date" {
			return fmt.Errorf("unexpected __type %q for date", obj.Type)
		}
		iso = obj.ISO
	}
	t, err := ParseISODate(iso)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// EventRepository fetches events from the remote catalog and the local cache.
type EventRepository interface {
	FetchAll(ctx context.Context, maxCount int, strategy CachingStrategy) ([]Event, error)
	FetchToday(ctx context.Context, maxCount int, strategy CachingStrategy) ([]Event, error)
	FetchNext(ctx context.Context, maxCount, nextDays int, strategy CachingStrategy) ([]Event, error)
	FetchByQuery(ctx context.Context, maxCount int, query string, strategy CachingStrategy, opts ...QueryOption) ([]Event, error)
	FetchByID(ctx context.Context, id string) (*Event, error)
	FetchByIDs(ctx context.Context, ids []string) ([]Event, error)
	CountToday(ctx context.Context) (int, error)
	CountByQuery(ctx context.Context, query string) (int, error)
}

// QueryOptions tune FetchByQuery.
type QueryOptions struct {
	// Raw requests raw search results; records failing schema validation are dropped
	// instead of failing the whole call.
	Raw bool
}

// QueryOption configures QueryOptions.
type QueryOption func(*QueryOptions)

// WithRawResults selects best-effort decoding for FetchByQuery.
func WithRawResults() QueryOption {
	return func(o *QueryOptions) { o.Raw = true }
}
