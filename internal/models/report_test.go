package models

import (
	"image"
	"testing"

	"binmorph/pkg/bitmap"
	"binmorph/pkg/components"
)

// TestComponentRecordRect verifies that a record maps back to the component bounds
func TestComponentRecordRect(t *testing.T) {
	img, err := bitmap.Parse(
		"......",
		"..###.",
		"..#...",
	)
	if err != nil {
		t.Fatalf("Failed to parse test image: %v", err)
	}
	set, err := components.Find(img)
	if err != nil {
		t.Fatalf("Failed to label test image: %v", err)
	}
	if len(set) != 1 {
		t.Fatalf("Expected 1 component, got %d", len(set))
	}

	rec := NewComponentRecord(0, set[0])
	if rec.Power != 4 {
		t.Errorf("Expected power 4, got %d", rec.Power)
	}
	want := image.Rect(2, 1, 5, 3)
	if got := rec.Rect(); got != want {
		t.Errorf("Expected rect %v, got %v", want, got)
	}
	if got := rec.Rect(); got != set[0].Bounds() {
		t.Errorf("Record rect %v differs from component bounds %v", got, set[0].Bounds())
	}
}
