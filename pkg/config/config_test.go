package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	loaded, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Merge.LocationDistanceWarn != 1000 {
		t.Errorf("Expected default warn distance 1000, got %v", loaded.Merge.LocationDistanceWarn)
	}
	if loaded.Output.Format != "gtfs" || loaded.Output.Timezone != "Europe/Prague" {
		t.Errorf("Unexpected output defaults: %+v", loaded.Output)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	contents := "merge:\n  locationDistanceWarn: 250\noutput:\n  timezone: Europe/Bratislava\n"

	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Merge.LocationDistanceWarn != 250 {
		t.Errorf("Expected warn distance 250, got %v", loaded.Merge.LocationDistanceWarn)
	}
	if loaded.Output.Timezone != "Europe/Bratislava" {
		t.Errorf("Expected overridden timezone, got %s", loaded.Output.Timezone)
	}
	// Untouched keys keep their defaults
	if loaded.Output.Format != "gtfs" {
		t.Errorf("Expected default format, got %s", loaded.Output.Format)
	}
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")

	if err := os.WriteFile(path, []byte("output:\n  format: pdf\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Expected validation error for unsupported format")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("Expected error for missing file")
	}
}
