package utils

import (
	"testing"
	"time"
)

func TestLocalToUTC(t *testing.T) {
	cases := []struct {
		name     string
		date     string
		clock    string
		loc      *time.Location
		wantDate string
		wantTime string
	}{
		{"east of UTC", "2025-10-24", "03:33", time.FixedZone("UTC+2", 2*3600), "2025-10-24", "01:33"},
		{"west of UTC", "2025-10-24", "10:10", time.FixedZone("UTC-5", -5*3600), "2025-10-24", "15:10"},
		{"crosses midnight backwards", "2025-10-24", "00:30", time.FixedZone("UTC+2", 2*3600), "2025-10-23", "22:30"},
		{"crosses midnight forwards", "2025-12-31", "21:00", time.FixedZone("UTC-5", -5*3600), "2026-01-01", "02:00"},
		{"seconds are dropped", "2025-10-24", "10:10:45", time.UTC, "2025-10-24", "10:10"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			date, clock, err := LocalToUTC(tc.date, tc.clock, tc.loc)
			if err != nil {
				t.Fatalf("LocalToUTC: %v", err)
			}
			if date != tc.wantDate || clock != tc.wantTime {
				t.Fatalf("got %s %s, want %s %s", date, clock, tc.wantDate, tc.wantTime)
			}
		})
	}
}

func TestLocalToUTCRejectsMalformedInput(t *testing.T) {
	bad := [][2]string{
		{"24-10-2025", "10:10"},
		{"2025-13-01", "10:10"},
		{"2025-10-24", "25:00"},
		{"2025-10-24", "ten"},
		{"", "10:10"},
	}
	for _, in := range bad {
		if _, _, err := LocalToUTC(in[0], in[1], time.UTC); err == nil {
			t.Errorf("expected error for %q %q", in[0], in[1])
		}
	}
}

func TestUTCToLocalInvertsLocalToUTC(t *testing.T) {
	loc := time.FixedZone(OffsetLabel(-5*3600), -5*3600)
	date, clock, err := UTCToLocal("2025-10-24", "15:10", loc)
	if err != nil {
		t.Fatalf("UTCToLocal: %v", err)
	}
	if date != "2025-10-24" || clock != "10:10" {
		t.Fatalf("got %s %s, want 2025-10-24 10:10", date, clock)
	}
}

func TestResolveLocation(t *testing.T) {
	cases := []struct {
		label      string
		wantName   string
		wantOffset int
	}{
		{"", "Local-fallback", 3600},
		{"UTC", "UTC", 0},
		{"z", "UTC", 0},
		{"+02:00", "UTC+02:00", 2 * 3600},
		{"UTC-5", "UTC-05:00", -5 * 3600},
		{"GMT+0530", "UTC+05:30", 5*3600 + 30*60},
		{"-00:00", "UTC", 0},
	}
	fallback := time.FixedZone("Local-fallback", 3600)
	instant := time.Date(2025, time.October, 24, 12, 0, 0, 0, time.UTC)

	for _, tc := range cases {
		loc, err := ResolveLocation(tc.label, fallback)
		if err != nil {
			t.Fatalf("ResolveLocation(%q): %v", tc.label, err)
		}
		if loc.String() != tc.wantName {
			t.Errorf("ResolveLocation(%q) name = %q, want %q", tc.label, loc.String(), tc.wantName)
		}
		if _, offset := instant.In(loc).Zone(); offset != tc.wantOffset {
			t.Errorf("ResolveLocation(%q) offset = %d, want %d", tc.label, offset, tc.wantOffset)
		}
	}
}

func TestResolveLocationRoundTripsItsLabels(t *testing.T) {
	loc, err := ResolveLocation("UTC+02:00", nil)
	if err != nil {
		t.Fatalf("ResolveLocation: %v", err)
	}
	again, err := ResolveLocation(loc.String(), nil)
	if err != nil || again.String() != loc.String() {
		t.Fatalf("label %q did not round trip: %v, %v", loc.String(), again, err)
	}
}

func TestResolveLocationRejectsUnknownZones(t *testing.T) {
	for _, label := range []string{"Mars/Olympus", "+15:00", "+02:75", "local"} {
		if _, err := ResolveLocation(label, time.UTC); err == nil {
			t.Errorf("expected error for %q", label)
		}
	}
}
