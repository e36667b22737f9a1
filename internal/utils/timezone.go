package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"remindmail/internal/models"
)

var offsetPattern = regexp.MustCompile(`^(?:UTC|GMT)?([+-])(\d{1,2})(?::?(\d{2}))?$`)

// ResolveLocation turns a zone label into a location. Accepted labels are IANA names
// ("Europe/Berlin"), "UTC"/"GMT"/"Z", and offsets ("+02:00", "UTC-5", "GMT+0530").
// An empty label yields fallback.
func ResolveLocation(label string, fallback *time.Location) (*time.Location, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		if fallback == nil {
			return time.UTC, nil
		}
		return fallback, nil
	}

	upper := strings.ToUpper(label)
	switch upper {
	case "UTC", "GMT", "Z":
		return time.UTC, nil
	}

	if m := offsetPattern.FindStringSubmatch(upper); m != nil {
		hours, _ := strconv.Atoi(m[2])
		minutes := 0
		if m[3] != "" {
			minutes, _ = strconv.Atoi(m[3])
		}
		if hours > 14 || minutes > 59 {
			return nil, fmt.Errorf("invalid UTC offset %q", label)
		}
		seconds := hours*3600 + minutes*60
		if m[1] == "-" {
			seconds = -seconds
		}
		if seconds == 0 {
			return time.UTC, nil
		}
		return time.FixedZone(OffsetLabel(seconds), seconds), nil
	}

	if strings.EqualFold(label, "local") {
		return nil, fmt.Errorf("ambiguous time zone %q", label)
	}
	loc, err := time.LoadLocation(label)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q", label)
	}
	return loc, nil
}

// OffsetLabel formats an offset in seconds as "UTC+02:00"
func OffsetLabel(seconds int) string {
	sign := '+'
	if seconds < 0 {
		sign = '-'
		seconds = -seconds
	}
	return fmt.Sprintf("UTC%c%02d:%02d", sign, seconds/3600, (seconds%3600)/60)
}

// ParseLocal combines a date ("2006-01-02") and a time of day ("15:04" or "15:04:05") in loc
func ParseLocal(date, clock string, loc *time.Location) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}

	layout := models.TimeLayout
	if strings.Count(clock, ":") == 2 {
		layout = "15:04:05"
	}
	t, err := time.ParseInLocation(models.DateLayout+" "+layout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q, expected HH:MM", clock)
	}
	return t, nil
}

// LocalToUTC re-expresses a local date and time of day as the UTC date and time of day
func LocalToUTC(date, clock string, loc *time.Location) (utcDate, utcTime string, err error) {
	t, err := ParseLocal(date, clock, loc)
	if err != nil {
		return "", "", err
	}
	u := t.UTC()
	return u.Format(models.DateLayout), u.Format(models.TimeLayout), nil
}

// UTCToLocal renders a stored UTC date and time of day in loc
func UTCToLocal(date, clock string, loc *time.Location) (localDate, localTime string, err error) {
	t, err := ParseLocal(date, clock, time.UTC)
	if err != nil {
		return "", "", err
	}
	l := t.In(loc)
	return l.Format(models.DateLayout), l.Format(models.TimeLayout), nil
}
