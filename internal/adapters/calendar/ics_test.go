package calendar

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcatalog/internal/domain"
)

func TestExporter_Export(t *testing.T) {
	start := time.Date(2022, 2, 14, 19, 0, 0, 0, time.UTC)
	events := []domain.Event{
		{
			ID:          "e1",
			Name:        "Concert",
			Description: "Jazz night",
			StartDate:   domain.NewParseDate(start),
			EndDate:     domain.NewParseDate(start.Add(2 * time.Hour)),
			Location: &domain.Location{Address: &domain.Address{
				Name:            "Stadthalle",
				AddressLocality: "Solingen",
			}},
			Status: domain.StatusScheduled,
		},
		{ID: "e2", Name: "Cancelled talk", StartDate: domain.NewParseDate(start), Status: domain.StatusCancelled},
		{ID: "e3", Name: "No start"},
		{Name: "No id", StartDate: domain.NewParseDate(start)},
	}

	x := NewExporter("", "example.org")
	out := x.Export(events)

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	vevents := cal.Events()
	require.Len(t, vevents, 2)

	assert.Equal(t, "e1@example.org", vevents[0].Id())
	assert.Equal(t, "Concert", vevents[0].GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "Stadthalle, Solingen", vevents[0].GetProperty(ical.ComponentPropertyLocation).Value)
	gotStart, err := vevents[0].GetStartAt()
	require.NoError(t, err)
	assert.True(t, gotStart.Equal(start))

	assert.Equal(t, "CANCELLED", vevents[1].GetProperty(ical.ComponentPropertyStatus).Value)
	assert.Contains(t, out, DefaultProductID)
}
