package utils

import (
	"time"

	"github.com/seenimoa/indexdash/pkg/models"
)

// MarketHours is the regular cash session of an exchange.
type MarketHours struct {
	Exchange               string
	Location               *time.Location
	OpenHour, OpenMinute   int
	CloseHour, CloseMinute int
}

var (
	// IST is the Indian Standard Time location (UTC+5:30).
	IST = loadLocation("Asia/Kolkata", "IST", 5*60*60+30*60)
	// ET is US Eastern time. The fixed fallback ignores daylight saving.
	ET = loadLocation("America/New_York", "ET", -5*60*60)
)

func loadLocation(name, abbr string, offset int) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone(abbr, offset)
	}
	return loc
}

// HoursFor returns the session hours of the exchange an index trades on.
func HoursFor(id models.IndexID) MarketHours {
	if id == models.IndexNifty {
		return MarketHours{Exchange: "NSE", Location: IST, OpenHour: 9, OpenMinute: 15, CloseHour: 15, CloseMinute: 30}
	}
	return MarketHours{Exchange: "NYSE", Location: ET, OpenHour: 9, OpenMinute: 30, CloseHour: 16}
}

// OpenAt returns the session open on the calendar day of t.
func (h MarketHours) OpenAt(t time.Time) time.Time {
	d := t.In(h.Location)
	return time.Date(d.Year(), d.Month(), d.Day(), h.OpenHour, h.OpenMinute, 0, 0, h.Location)
}

// CloseAt returns the session close on the calendar day of t.
func (h MarketHours) CloseAt(t time.Time) time.Time {
	d := t.In(h.Location)
	return time.Date(d.Year(), d.Month(), d.Day(), h.CloseHour, h.CloseMinute, 0, 0, h.Location)
}

// StatusAt describes the session state at t. Exchange holidays are not
// tracked, so a holiday weekday reports the regular schedule.
func (h MarketHours) StatusAt(t time.Time) string {
	t = t.In(h.Location)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return "CLOSED (Weekend)"
	}
	switch {
	case t.Before(h.OpenAt(t)):
		return "PRE-MARKET"
	case !t.After(h.CloseAt(t)):
		return "OPEN"
	default:
		return "CLOSED"
	}
}
