// Package cases holds the intake domain vocabulary: practice areas,
// priorities, statuses, and submission validation.
package cases

import (
	"sort"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/xid"
)

// Case priorities accepted by the review board.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Case statuses. Stored as integers to match the historical status table.
const (
	StatusNew      = 1
	StatusInReview = 2
	StatusClosed   = 3
)

// PracticeAreas maps the public submission form's practice area names to
// their stable IDs. The IDs match the seeded practice_area table.
var PracticeAreas = map[string]int{
	"Slip/Trip Fall":          1,
	"Negligence Security":     2,
	"Car Crashes":             3,
	"Professional Negligence": 4,
	"Workers Compensation":    5,
	"Products Liability":      6,
	"Wrongful Death":          7,
	"Motorcycle Crash":        8,
	"Other":                   9,
}

// PracticeAreaNames returns the form's practice area options in a stable
// order.
func PracticeAreaNames() []string {
	names := make([]string, 0, len(PracticeAreas))
	for name := range PracticeAreas {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return PracticeAreas[names[i]] < PracticeAreas[names[j]]
	})
	return names
}

// ContactMethods are the accepted preferred-contact options.
var ContactMethods = []string{"email", "phone"}

// descriptionPolicy strips all markup from submitted descriptions before
// they are stored or echoed back.
var descriptionPolicy = bluemonday.StrictPolicy()

// CleanDescription sanitizes a submitted case description.
func CleanDescription(s string) string {
	return descriptionPolicy.Sanitize(s)
}

// ValidPriority reports whether p is an accepted priority value.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ValidStatus reports whether s is an accepted status ID.
func ValidStatus(s int) bool {
	return s == StatusNew || s == StatusInReview || s == StatusClosed
}

// ValidContactMethod reports whether m is an accepted contact method.
func ValidContactMethod(m string) bool {
	for _, method := range ContactMethods {
		if m == method {
			return true
		}
	}
	return false
}

// NewReference generates an opaque, sortable case reference number shown
// to clients in correspondence.
func NewReference() string {
	return xid.New().String()
}

// StatusName returns the display name for a status ID.
func StatusName(s int) string {
	switch s {
	case StatusNew:
		return "New"
	case StatusInReview:
		return "In Review"
	case StatusClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}
