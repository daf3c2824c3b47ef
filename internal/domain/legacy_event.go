package domain

import (
	"strings"
	"time"
)

// LegacyEvent is the deprecated "live event" record. It only exists to be read
// once from old storage and converted with ToEvent.
type LegacyEvent struct {
	ID               string     `json:"objectId,omitempty"`
	CreatedAt        *time.Time `json:"createdAt,omitempty"`
	UpdatedAt        *time.Time `json:"updatedAt,omitempty"`
	Title            string     `json:"title,omitempty"`
	Name             string     `json:"name,omitempty"`
	Info             string     `json:"info,omitempty"`
	Ort              string     `json:"ort,omitempty"`
	Strasse          string     `json:"strasse,omitempty"`
	Rubrik           string     `json:"rubrik,omitempty"`
	Section          string     `json:"section,omitempty"`
	Foto             string     `json:"foto,omitempty"`
	FotoThumb        string     `json:"fotoThumb,omitempty"`
	Link             string     `json:"link,omitempty"`
	Preise           string     `json:"preise,omitempty"`
	Soldout          string     `json:"soldout,omitempty"`
	Canceled         string     `json:"canceled,omitempty"`
	Ganztags         string     `json:"ganztags,omitempty"`
	StartDateTime    *ParseDate `json:"startDateTime,omitempty"`
	EndDateTime      *ParseDate `json:"endDateTime,omitempty"`
	NewStartDateTime *ParseDate `json:"newStartDateTime,omitempty"`
	NewEndDateTime   *ParseDate `json:"newEndDateTime,omitempty"`
	GeoPoint         *GeoPoint  `json:"geopoint,omitempty"`
}

// ToEvent converts the legacy record into an Event.
func (l LegacyEvent) ToEvent() Event {
	e := Event{
		ID:             l.ID,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
		Name:           firstNonEmpty(l.Title, l.Name),
		Description:    l.Info,
		URL:            l.Link,
		Category:       l.Rubrik,
		Subcategory:    l.Section,
		Image:          l.Foto,
		ThumbImage:     l.FotoThumb,
		IsAllDay:       legacyFlag(l.Ganztags),
		StartDate:      l.StartDateTime,
		EndDate:        l.EndDateTime,
		Status:         StatusScheduled,
		AttendanceMode: AttendanceOffline,
	}
	if l.NewStartDateTime != nil {
		e.StartDate = l.NewStartDateTime
		e.Status = StatusRescheduled
		if l.StartDateTime != nil {
			e.PreviousStartDate = FormatISODate(l.StartDateTime.Time)
		}
	}
	if l.NewEndDateTime != nil {
		e.EndDate = l.NewEndDateTime
	}
	if legacyFlag(l.Canceled) {
		e.Status = StatusCancelled
	}
	if l.Ort != "" || l.Strasse != "" || l.GeoPoint != nil {
		e.Location = &Location{GeoPoint: l.GeoPoint}
		if l.Ort != "" || l.Strasse != "" {
			e.Location.Address = &Address{Name: l.Ort, StreetAddress: l.Strasse}
		}
	}
	if l.Preise != "" || legacyFlag(l.Soldout) {
		offer := Offer{Price: l.Preise}
		if legacyFlag(l.Soldout) {
			offer.Availability = AvailabilitySoldOut
		}
		e.Offers = []Offer{offer}
	}
	return e
}

// legacyFlag interprets the string booleans of the legacy schema.
func legacyFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "ja", "yes", "x":
		return true
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
