// Package tiling decides where mapped toplevels sit on the output.
package tiling

import (
	"fmt"
	"math"

	"github.com/1broseidon/khigy/internal/platform"
)

// Mode selects a placement policy.
type Mode string

const (
	// ModeStack puts every toplevel at the area origin, newest on top.
	ModeStack Mode = "stack"
	// ModeGrid tiles toplevels in a near-square grid in creation order.
	ModeGrid Mode = "grid"
	// ModeCascade offsets each toplevel by the gap from the previous one.
	ModeCascade Mode = "cascade"
)

// ParseMode validates a configured placement name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeStack, ModeGrid, ModeCascade:
		return m, nil
	case "":
		return ModeStack, nil
	default:
		return "", fmt.Errorf("unsupported placement mode: %q", s)
	}
}

// CalculateGrid determines the optimal grid dimensions for the given number of windows
func CalculateGrid(numWindows int) (rows, cols int) {
	if numWindows == 0 {
		return 0, 0
	}

	// Calculate columns first (ceiling of square root)
	cols = int(math.Ceil(math.Sqrt(float64(numWindows))))

	// Calculate rows needed
	rows = int(math.Ceil(float64(numWindows) / float64(cols)))

	return rows, cols
}

// Placements returns one rectangle per toplevel, in the order given. Only the
// origin is binding; toplevels keep their own buffer size and are not clipped
// to their slot.
func Placements(mode Mode, numWindows int, area platform.Rect, gapSize int) ([]platform.Rect, error) {
	if numWindows == 0 {
		return nil, nil
	}
	if gapSize < 0 {
		return nil, fmt.Errorf("negative gap: %d", gapSize)
	}

	positions := make([]platform.Rect, numWindows)
	switch mode {
	case ModeStack, "":
		for i := range positions {
			positions[i] = area
		}
		return positions, nil

	case ModeCascade:
		for i := range positions {
			off := gapSize * i
			positions[i] = platform.Rect{
				X:      area.X + off,
				Y:      area.Y + off,
				Width:  max(area.Width-off, 1),
				Height: max(area.Height-off, 1),
			}
		}
		return positions, nil

	case ModeGrid:
		return gridPositions(numWindows, area, gapSize, true)

	default:
		return nil, fmt.Errorf("unsupported placement mode: %q", mode)
	}
}

// gridPositions lays out a grid with gaps around every cell. With
// flexibleLastRow, a short last row stretches to the full width.
func gridPositions(numWindows int, area platform.Rect, gapSize int, flexibleLastRow bool) ([]platform.Rect, error) {
	rows, cols := CalculateGrid(numWindows)

	// Gaps: (cols + 1) * gapSize, one before each column and one after
	totalHorizontalGaps := (cols + 1) * gapSize
	totalVerticalGaps := (rows + 1) * gapSize

	slotWidth := (area.Width - totalHorizontalGaps) / cols
	slotHeight := (area.Height - totalVerticalGaps) / rows

	if slotWidth <= 0 || slotHeight <= 0 {
		return nil, fmt.Errorf(
			"insufficient space for layout: area=%dx%d rows=%d cols=%d gap=%d (slot=%dx%d)",
			area.Width, area.Height, rows, cols, gapSize, slotWidth, slotHeight,
		)
	}

	lastRowIndex := rows - 1
	windowsInLastRow := numWindows - (lastRowIndex * cols)

	var lastRowSlotWidth int
	if flexibleLastRow && windowsInLastRow < cols {
		lastRowHorizontalGaps := (windowsInLastRow + 1) * gapSize
		lastRowSlotWidth = (area.Width - lastRowHorizontalGaps) / windowsInLastRow
	}

	positions := make([]platform.Rect, numWindows)
	for i := range numWindows {
		row := i / cols
		col := i % cols
		width := slotWidth

		if flexibleLastRow && row == lastRowIndex && windowsInLastRow < cols {
			col = i - (lastRowIndex * cols)
			width = lastRowSlotWidth
		}

		positions[i] = platform.Rect{
			X:      area.X + gapSize + col*(width+gapSize),
			Y:      area.Y + gapSize + row*(slotHeight+gapSize),
			Width:  width,
			Height: slotHeight,
		}
	}

	return positions, nil
}
