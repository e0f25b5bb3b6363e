package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestNextFilenameFirstFreeSlot(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"000", "001", "002"} {
		if err := os.WriteFile(filepath.Join(dir, "tes"+n+".3es"), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := nextFilename(dir, "tes", false)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "tes003.3es")
	if got != want {
		t.Fatalf("nextFilename() = %q, want %q", got, want)
	}
}

func TestNextFilenameOverwriteAlwaysSlotZero(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"000", "001"} {
		if err := os.WriteFile(filepath.Join(dir, "tes"+n+".3es"), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := nextFilename(dir, "tes", true)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "tes000.3es")
	if got != want {
		t.Fatalf("nextFilename() = %q, want %q", got, want)
	}
}

func TestNextFilenameExhausted(t *testing.T) {
	dir := t.TempDir()
	for n := 0; n < 1000; n++ {
		name := filepath.Join(dir, fmt.Sprintf("tes%03d.3es", n))
		if err := os.WriteFile(name, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := nextFilename(dir, "tes", false); err == nil {
		t.Fatal("expected error when all 1000 slots are taken")
	}
}
