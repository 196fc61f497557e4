package verification

import (
	"errors"
	"testing"
)

func TestRandomIconStaysInRangeAndSkipsExclusion(t *testing.T) {
	for i := 0; i < 500; i++ {
		icon, err := RandomIcon(7, 1, 28)
		if err != nil {
			t.Fatalf("RandomIcon: %v", err)
		}
		if icon < 1 || icon > 28 {
			t.Fatalf("icon %d outside [1, 28]", icon)
		}
		if icon == 7 {
			t.Fatalf("drew the excluded icon")
		}
	}
}

func TestRandomIconExclusionOutsideRange(t *testing.T) {
	// An exclusion outside the range leaves every icon available
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		icon, err := RandomIcon(99, 1, 3)
		if err != nil {
			t.Fatalf("RandomIcon: %v", err)
		}
		seen[icon] = true
	}
	for want := 1; want <= 3; want++ {
		if !seen[want] {
			t.Fatalf("icon %d never drawn", want)
		}
	}
}

func TestRandomIconInvalidRange(t *testing.T) {
	if _, err := RandomIcon(0, 5, 4); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for empty range, got %v", err)
	}
	// A single-icon range emptied by the exclusion
	if _, err := RandomIcon(5, 5, 5); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange when exclusion empties the range, got %v", err)
	}
}
