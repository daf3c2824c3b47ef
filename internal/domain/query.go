package domain

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Remote function and index names used by the search backend.
const (
	DefaultSearchIndex      = "events"
	SearchFunctionName      = "elastic-search"
	SearchCountFunctionName = "elastic-search-count"
)

// searchDateLayout is the offset layout the search backend expects.
const searchDateLayout = "2006-01-02T15:04:05-0700"

// Where is a class-query filter expression. It is encoded as JSON into the
// "where" query parameter.
type Where map[string]any

// ClassQuery enumerates the request options understood by the class-query backend.
type ClassQuery struct {
	Limit        int
	Skip         int
	Order        string
	Where        Where
	Count        bool
	SessionToken string
}

// Values encodes the query as URL parameters. The session token is a header
// and is not part of the result.
func (q ClassQuery) Values() (url.Values, error) {
	if q.Limit < 0 || q.Skip < 0 {
		return nil, fmt.Errorf("%w: negative limit or skip", ErrInvalidRequest)
	}
	v := url.Values{}
	v.Set("limit", strconv.Itoa(q.Limit))
	if q.Skip > 0 {
		v.Set("skip", strconv.Itoa(q.Skip))
	}
	if q.Order != "" {
		v.Set("order", q.Order)
	}
	if q.Count {
		v.Set("count", "1")
	}
	if len(q.Where) > 0 {
		b, err := json.Marshal(q.Where)
		if err != nil {
			return nil, fmt.Errorf("%w: encode where: %v", ErrInvalidRequest, err)
		}
		v.Set("where", string(b))
	}
	return v, nil
}

// UpcomingEventsQuery requests events starting today or later, ordered by start date ascending.
func UpcomingEventsQuery(limit, skip int, now time.Time) ClassQuery {
	return ClassQuery{
		Limit: limit,
		Skip:  skip,
		Order: "startDate",
		Where: Where{"startDate": Where{"$gte": ParseDate{Time: StartOfDay(now)}}},
	}
}

// WindowEventsQuery requests events starting inside w, ordered by start date ascending.
// The upper bound is exclusive.
func WindowEventsQuery(limit, skip int, w DateWindow) ClassQuery {
	return ClassQuery{
		Limit: limit,
		Skip:  skip,
		Order: "startDate",
		Where: Where{"startDate": Where{
			"$gte": ParseDate{Time: w.Start},
			"$lt":  ParseDate{Time: w.End},
		}},
	}
}

// EventByIDQuery requests a single event by its identifier.
func EventByIDQuery(id string) ClassQuery {
	return ClassQuery{
		Limit: 1,
		Where: Where{"objectId": id},
	}
}

// SameDayCountQuery counts events taking place on day's calendar day: events
// without an end date that start during the day, and events that start before
// the day ends and end after it began. The day is [midnight, next midnight).
func SameDayCountQuery(day time.Time) ClassQuery {
	w := DayWindow(day, 0)
	start, end := ParseDate{Time: w.Start}, ParseDate{Time: w.End}
	return ClassQuery{
		Limit: 0,
		Count: true,
		Where: Where{"$or": []Where{
			{
				"endDate":   Where{"$exists": false},
				"startDate": Where{"$gte": start, "$lt": end},
			},
			{
				"endDate":   Where{"$gt": start},
				"startDate": Where{"$lt": end},
			},
		}},
	}
}

// ClassResult is the class-query response body.
type ClassResult struct {
	Results []json.RawMessage `json:"results"`
	Count   *int              `json:"count,omitempty"`
}

// SearchRequest holds the semantic inputs of a search-index query.
type SearchRequest struct {
	Index string
	Query string
	Limit int
	Skip  int
	// Date restricts results to that calendar day when set.
	Date *time.Time
	IDs  []string
	Raw  bool
}

// SearchParameters is the parameter object of the search functions.
type SearchParameters struct {
	Index        string   `json:"index"`
	Query        string   `json:"query"`
	From         *int     `json:"from,omitempty"`
	Size         *int     `json:"size,omitempty"`
	StartDateISO string   `json:"startDateIso,omitempty"`
	EndDateISO   string   `json:"endDateIso,omitempty"`
	ObjectIDs    []string `json:"objectIds,omitempty"`
	Raw          bool     `json:"raw"`
}

// NewSearchParameters builds the parameters of a paged search.
func NewSearchParameters(r SearchRequest) SearchParameters {
	p := NewSearchCountParameters(r)
	from, size := r.Skip, r.Limit
	p.From = &from
	p.Size = &size
	return p
}

// NewSearchCountParameters builds the parameters of a search count; from and size are omitted.
func NewSearchCountParameters(r SearchRequest) SearchParameters {
	index := r.Index
	if index == "" {
		index = DefaultSearchIndex
	}
	p := SearchParameters{
		Index:     index,
		Query:     r.Query,
		ObjectIDs: r.IDs,
		Raw:       r.Raw,
	}
	if r.Date != nil {
		start := StartOfDay(*r.Date)
		end := start.AddDate(0, 0, 1).Add(-time.Second)
		p.StartDateISO = start.Format(searchDateLayout)
		p.EndDateISO = end.Format(searchDateLayout)
	}
	return p
}

// SearchResult is the search function response body.
type SearchResult struct {
	Result []json.RawMessage `json:"result"`
}

// SearchCountResult is the search count function response body.
type SearchCountResult struct {
	Result *struct {
		Count *int `json:"count"`
	} `json:"result"`
}
