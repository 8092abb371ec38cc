package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometry_TotalPoints(t *testing.T) {
	tests := []struct {
		name string
		geom Geometry
		want int
	}{
		{"single cell", Geometry{Width: 1, Height: 1}, 1},
		{"wide strip", Geometry{Width: 400, Height: 40}, 16000},
		{"square", Geometry{Width: 100, Height: 100}, 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.geom.TotalPoints())
		})
	}
}

func TestGeometry_Validate(t *testing.T) {
	require.NoError(t, Geometry{Width: 10, Height: 5}.Validate())

	err := Geometry{Width: 0, Height: 5}.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidGeometry)

	err = Geometry{Width: 10, Height: -1}.Validate()
	assert.ErrorIs(t, err, ErrInvalidGeometry)
}

func TestGeometry_MinFileSize(t *testing.T) {
	g := Geometry{Width: 10, Height: 5}
	assert.Equal(t, int64(400), g.MinFileSize(8))
	assert.Equal(t, int64(50), g.MinFileSize(1))
}

func TestCoord_In(t *testing.T) {
	g := Geometry{Width: 10, Height: 5}

	assert.True(t, Coord{X: 0, Y: 0}.In(g))
	assert.True(t, Coord{X: 9, Y: 4}.In(g))
	assert.False(t, Coord{X: 10, Y: 0}.In(g))
	assert.False(t, Coord{X: 0, Y: 5}.In(g))
	assert.False(t, Coord{X: -1, Y: 0}.In(g))
}

func TestCellStats_Average(t *testing.T) {
	assert.Equal(t, 0.0, CellStats{}.Average())
	assert.Equal(t, 4.0, CellStats{Total: 8, Count: 2}.Average())
	assert.InDelta(t, 2.5, CellStats{Total: 5, Count: 2}.Average(), 1e-9)
}
