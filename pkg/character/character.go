// Package character defines the records, filters and pages exchanged with the
// Rick and Morty character API.
package character

import (
	"fmt"
	"strings"
)

// Status is the life status of a character as reported by the API.
type Status string

const (
	// StatusAll omits the status from the query.
	StatusAll Status = ""

	StatusAlive   Status = "Alive"
	StatusDead    Status = "Dead"
	StatusUnknown Status = "unknown"
)

// Statuses lists the selectable statuses in display order, "all" first.
var Statuses = []Status{StatusAll, StatusAlive, StatusDead, StatusUnknown}

// ParseStatus accepts the API spelling in any case, plus "all".
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return StatusAll, nil
	case "alive":
		return StatusAlive, nil
	case "dead":
		return StatusDead, nil
	case "unknown":
		return StatusUnknown, nil
	default:
		return StatusAll, fmt.Errorf("unknown status %q (want alive, dead, unknown or all)", s)
	}
}

// Next returns the status following s in Statuses, wrapping around.
func (s Status) Next() Status {
	for i, st := range Statuses {
		if st == s {
			return Statuses[(i+1)%len(Statuses)]
		}
	}
	return StatusAll
}

// Key is the translation key for the status ("all", "alive", "dead", "unknown").
func (s Status) Key() string {
	if s == StatusAll {
		return "all"
	}
	return strings.ToLower(string(s))
}

// Filter selects which characters are listed. It is a comparable value:
// two filters are the same filter when they are ==.
type Filter struct {
	Status  Status
	Species string
}

// Normalize returns f with the species trimmed of surrounding whitespace.
func (f Filter) Normalize() Filter {
	f.Species = strings.TrimSpace(f.Species)
	return f
}

func (f Filter) String() string {
	return fmt.Sprintf("status=%q species=%q", string(f.Status), f.Species)
}

// Record is one character row.
type Record struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Species    string `json:"species"`
	Gender     string `json:"gender"`
	OriginName string `json:"origin"`
}

// Page is one batch of records and whether another page follows.
type Page struct {
	Records []Record
	HasNext bool

	// Count and Pages are the totals the API reports for the filter.
	// Zero when unknown.
	Count int
	Pages int
}
