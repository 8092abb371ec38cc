package engine

import (
	"math/rand/v2"

	"github.com/jamesainslie/densemap/pkg/densemap/types"
)

// shuffledCoords returns every coordinate of the grid exactly once in
// random order.
func shuffledCoords(geom types.Geometry, rng *rand.Rand) []types.Coord {
	coords := make([]types.Coord, 0, geom.TotalPoints())
	for y := 0; y < geom.Height; y++ {
		for x := 0; x < geom.Width; x++ {
			coords = append(coords, types.Coord{X: x, Y: y})
		}
	}
	rng.Shuffle(len(coords), func(i, j int) {
		coords[i], coords[j] = coords[j], coords[i]
	})
	return coords
}

// partition splits coords into at most n contiguous disjoint slices whose
// union is the input. Slice sizes differ by at most the ceiling division
// remainder; fewer than n slices come back when len(coords) < n.
func partition(coords []types.Coord, n int) [][]types.Coord {
	if n < 1 {
		n = 1
	}
	per := (len(coords) + n - 1) / n
	if per == 0 {
		return nil
	}

	slices := make([][]types.Coord, 0, n)
	for start := 0; start < len(coords); start += per {
		end := start + per
		if end > len(coords) {
			end = len(coords)
		}
		slices = append(slices, coords[start:end])
	}
	return slices
}
