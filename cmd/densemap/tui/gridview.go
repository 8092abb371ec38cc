package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/densemap/pkg/densemap/export"
	"github.com/jamesainslie/densemap/pkg/densemap/types"
)

// backgroundHex is the terminal rendition of the exporter's background
// color, used for cells that have not been sampled yet.
var backgroundHex = hexColor(export.Background.R, export.Background.G, export.Background.B)

// hexColor formats an RGB triple as a lipgloss hex color.
func hexColor(r, g, b uint8) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", r, g, b))
}

// renderGrid draws an aggregator snapshot into a block of styled text.
// Each character column is one grid column (downsampled when the grid is
// wider than maxCols) and each text line packs two grid rows using the
// upper-half-block glyph, foreground on top, background below.
func renderGrid(snapshot map[types.Coord]types.CellStats, geom types.Geometry, sampleBytes, maxCols, maxLines int) string {
	if maxCols < 1 || maxLines < 1 {
		return ""
	}

	cols := geom.Width
	if cols > maxCols {
		cols = maxCols
	}
	rows := geom.Height
	if rows > maxLines*2 {
		rows = maxLines * 2
	}
	lines := (rows + 1) / 2

	var b strings.Builder
	for line := 0; line < lines; line++ {
		for tx := 0; tx < cols; tx++ {
			gx := tx * geom.Width / cols
			top := cellHex(snapshot, geom, sampleBytes, gx, (line*2)*geom.Height/rows)
			bottom := backgroundHex
			if line*2+1 < rows {
				bottom = cellHex(snapshot, geom, sampleBytes, gx, (line*2+1)*geom.Height/rows)
			}
			style := lipgloss.NewStyle().Foreground(top).Background(bottom)
			b.WriteString(style.Render("▀"))
		}
		if line < lines-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// cellHex resolves one grid cell to its ramp color, falling back to the
// background for cells without samples.
func cellHex(snapshot map[types.Coord]types.CellStats, geom types.Geometry, sampleBytes, gx, gy int) lipgloss.Color {
	stats, ok := snapshot[types.Coord{X: gx, Y: gy}]
	if !ok || stats.Count == 0 {
		return backgroundHex
	}
	c := export.RampColor(stats.Average(), sampleBytes)
	return hexColor(c.R, c.G, c.B)
}
