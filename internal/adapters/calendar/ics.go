// Package calendar renders events as an iCalendar feed.
package calendar

import (
	"io"
	"strings"
	"time"

	"eventcatalog/internal/domain"

	ical "github.com/arran4/golang-ical"
)

// DefaultProductID identifies the feed producer.
const DefaultProductID = "-//eventcatalog//watchlist//EN"

// Exporter converts events to VEVENT components.
type Exporter struct {
	productID string
	uidDomain string
	now       func() time.Time
}

// NewExporter returns an exporter. uidDomain is appended to event ids to form
// globally unique UIDs.
func NewExporter(productID, uidDomain string) *Exporter {
	if productID == "" {
		productID = DefaultProductID
	}
	return &Exporter{productID: productID, uidDomain: uidDomain, now: time.Now}
}

// Calendar builds the calendar. Events without an id or start date are skipped.
func (x *Exporter) Calendar(events []domain.Event) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(x.productID)

	stamp := x.now().UTC()
	for _, e := range events {
		start, ok := e.Start()
		if !ok || !e.HasID() {
			continue
		}
		ve := cal.AddEvent(x.uid(e.ID))
		ve.SetDtStampTime(stamp)
		if e.IsAllDay {
			ve.SetAllDayStartAt(start)
			if e.EndDate != nil {
				ve.SetAllDayEndAt(e.EndDate.Time)
			}
		} else {
			ve.SetStartAt(start)
			if e.EndDate != nil {
				ve.SetEndAt(e.EndDate.Time)
			}
		}
		ve.SetSummary(e.Name)
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		if loc := locationText(e.Location); loc != "" {
			ve.SetLocation(loc)
		}
		if e.URL != "" {
			ve.SetURL(e.URL)
		}
		if e.IsCancelled() {
			ve.SetStatus(ical.ObjectStatusCancelled)
		} else {
			ve.SetStatus(ical.ObjectStatusConfirmed)
		}
	}
	return cal
}

// Export returns the serialized calendar.
func (x *Exporter) Export(events []domain.Event) string {
	return x.Calendar(events).Serialize()
}

// Write serializes the calendar to w.
func (x *Exporter) Write(w io.Writer, events []domain.Event) error {
	_, err := io.WriteString(w, x.Export(events))
	return err
}

func (x *Exporter) uid(id string) string {
	if x.uidDomain == "" {
		return id
	}
	return id + "@" + x.uidDomain
}

func locationText(l *domain.Location) string {
	if l == nil || l.Address == nil {
		return ""
	}
	parts := make([]string, 0, 4)
	for _, p := range []string{l.Address.Name, l.Address.StreetAddress, l.Address.PostalCode, l.Address.AddressLocality} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
