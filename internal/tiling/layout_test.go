package tiling

import (
	"testing"

	"github.com/1broseidon/khigy/internal/platform"
)

func TestCalculateGrid(t *testing.T) {
	tests := []struct {
		n          int
		rows, cols int
	}{
		{0, 0, 0},
		{1, 1, 1},
		{2, 1, 2},
		{3, 2, 2},
		{5, 2, 3},
		{9, 3, 3},
	}
	for _, tt := range tests {
		rows, cols := CalculateGrid(tt.n)
		if rows != tt.rows || cols != tt.cols {
			t.Fatalf("CalculateGrid(%d) = %dx%d, want %dx%d", tt.n, rows, cols, tt.rows, tt.cols)
		}
	}
}

func TestPlacements_GridWithGaps(t *testing.T) {
	area := platform.Rect{X: 0, Y: 0, Width: 210, Height: 100}

	positions, err := Placements(ModeGrid, 2, area, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(positions) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(positions))
	}

	// width=210, gap=10, cols=2: slotWidth=(210-30)/2=90
	// x0 = 10, x1 = 10 + 1*(90+10) = 110
	if positions[0].X != 10 || positions[1].X != 110 {
		t.Fatalf("expected x=10,110, got %d,%d", positions[0].X, positions[1].X)
	}
	if positions[0].Width != 90 || positions[0].Height != 80 {
		t.Fatalf("expected 90x80 slots, got %dx%d", positions[0].Width, positions[0].Height)
	}
}

func TestPlacements_GridFlexibleLastRow(t *testing.T) {
	area := platform.Rect{X: 0, Y: 0, Width: 300, Height: 200}

	positions, err := Placements(ModeGrid, 3, area, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 2x2 grid with one window in the last row, which spans the width.
	last := positions[2]
	if last.X != 0 || last.Y != 100 || last.Width != 300 {
		t.Fatalf("last row = %+v, want x=0 y=100 w=300", last)
	}
}

func TestPlacements_ErrorsWhenInsufficientSpace(t *testing.T) {
	area := platform.Rect{X: 0, Y: 0, Width: 20, Height: 10}

	if _, err := Placements(ModeGrid, 2, area, 20); err == nil {
		t.Fatalf("expected error for insufficient space")
	}
}

func TestPlacements_StackAndCascade(t *testing.T) {
	area := platform.Rect{X: 5, Y: 5, Width: 100, Height: 100}

	stack, err := Placements(ModeStack, 3, area, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, r := range stack {
		if r.Loc() != area.Loc() {
			t.Fatalf("stack[%d] at %v, want %v", i, r.Loc(), area.Loc())
		}
	}

	cascade, err := Placements(ModeCascade, 3, area, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cascade[2].X != 25 || cascade[2].Y != 25 {
		t.Fatalf("cascade[2] at %d,%d, want 25,25", cascade[2].X, cascade[2].Y)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(""); err != nil || m != ModeStack {
		t.Fatalf("ParseMode(\"\") = %q, %v", m, err)
	}
	if _, err := ParseMode("spiral"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
