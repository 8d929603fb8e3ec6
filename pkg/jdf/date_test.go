package jdf

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	date, err := ParseDate("31122024")
	if err != nil {
		t.Fatalf("ParseDate failed: %v", err)
	}

	if date.Year() != 2024 || date.Month() != time.December || date.Day() != 31 {
		t.Errorf("Parsed wrong date: %v", date)
	}

	if date.String() != "31122024" {
		t.Errorf("Round trip produced %q", date.String())
	}
}

func TestParseDateInvalid(t *testing.T) {
	for _, value := range []string{"", "2024-12-31", "32132024", "0101"} {
		if _, err := ParseDate(value); err == nil {
			t.Errorf("Expected error for %q", value)
		}
	}
}

func TestDateAddDays(t *testing.T) {
	date := NewDate(2024, time.February, 28)

	next := date.AddDays(1)
	if next.String() != "29022024" {
		t.Errorf("Expected leap day, got %s", next)
	}

	previous := NewDate(2024, time.March, 1).AddDays(-1)
	if previous.String() != "29022024" {
		t.Errorf("Expected leap day, got %s", previous)
	}
}

func TestDateComparisons(t *testing.T) {
	earlier := NewDate(2024, time.January, 1)
	later := NewDate(2024, time.June, 1)

	if !earlier.Before(later) || later.Before(earlier) {
		t.Error("Before is wrong")
	}
	if !later.After(earlier) || earlier.After(later) {
		t.Error("After is wrong")
	}
	if !earlier.Equal(NewDate(2024, time.January, 1)) {
		t.Error("Equal is wrong")
	}
}
