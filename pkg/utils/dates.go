package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/seenimoa/indexdash/pkg/models"
)

// InvalidDateMessage is shown in the sidebar when a date field does not parse.
const InvalidDateMessage = "Invalid date format. Use dd/mm/yyyy."

// dmyLayout accepts one- or two-digit day and month with a four-digit year.
const dmyLayout = "2/1/2006"

// ErrDatesPending is returned when neither date field has been filled in yet.
var ErrDatesPending = errors.New("start and end dates not entered")

// DateError reports a date field that is not a valid dd/mm/yyyy calendar day.
type DateError struct {
	Field  string // "start" or "end"
	Input  string
	Reason string
}

func (e *DateError) Error() string {
	return fmt.Sprintf("%s date %q: %s", e.Field, e.Input, e.Reason)
}

// ParseDMY parses a dd/mm/yyyy string into a UTC calendar day.
func ParseDMY(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty")
	}
	parts := strings.Split(s, "/")
	if len(parts) != 3 || len(parts[2]) != 4 {
		return time.Time{}, errors.New("expected dd/mm/yyyy")
	}
	t, err := time.ParseInLocation(dmyLayout, s, time.UTC)
	if err != nil {
		var pe *time.ParseError
		if errors.As(err, &pe) && pe.Message != "" {
			return time.Time{}, errors.New(strings.TrimPrefix(pe.Message, ": "))
		}
		return time.Time{}, errors.New("not a calendar date")
	}
	return t, nil
}

// ParseDateRange parses the two sidebar date fields. Both blank yields
// ErrDatesPending; any other failure is a *DateError naming the field.
// No ordering check is made between start and end.
func ParseDateRange(start, end string) (models.DateRange, error) {
	if strings.TrimSpace(start) == "" && strings.TrimSpace(end) == "" {
		return models.DateRange{}, ErrDatesPending
	}

	s, err := ParseDMY(start)
	if err != nil {
		return models.DateRange{}, &DateError{Field: "start", Input: start, Reason: err.Error()}
	}
	e, err := ParseDMY(end)
	if err != nil {
		return models.DateRange{}, &DateError{Field: "end", Input: end, Reason: err.Error()}
	}
	return models.DateRange{Start: s, End: e}, nil
}

// FormatDMY formats a day back into the sidebar's dd/mm/yyyy form.
func FormatDMY(t time.Time) string {
	return t.Format("02/01/2006")
}
