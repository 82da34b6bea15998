package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// DrawingColors is the base palette handed out to joining players.
var DrawingColors = []string{
	"#4A466D", // blue
	"#99454D", // red
	"#69536D", // purple
	"#3F8F8D", // green
	"#855419", // orange
	"#877241", // yellow
	"#6E4C4E", // pink
	"#451E3E", // dark purple
	"#7D5D54", // brown
}

// ErrPaletteExhausted means there are more players than colors, even
// after mixing every combination of base colors.
var ErrPaletteExhausted = errors.New("number of players is greater than number of drawing colors")

// pickColor returns a drawing color not yet used in the game. The base
// palette is tried in random order first; once exhausted, candidates
// are synthesized by averaging every distinct combination of k base
// colors for growing k.
func pickColor(ctx context.Context, s Store, gameID int64) (string, error) {
	pool := make([]string, len(DrawingColors))
	for i, c := range DrawingColors {
		pool[i] = strings.ToLower(c)
	}
	rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	mixerStage := 1
	for {
		if len(pool) == 0 {
			mixerStage++
			if mixerStage > len(DrawingColors) {
				return "", ErrPaletteExhausted
			}
			for _, combo := range combinations(DrawingColors, mixerStage) {
				pool = append(pool, mixColors(combo))
			}
			rand.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		}

		color := pool[len(pool)-1]
		pool = pool[:len(pool)-1]

		taken, err := s.ColorTaken(ctx, gameID, color)
		if err != nil {
			return "", err
		}
		if !taken {
			return color, nil
		}
	}
}

// mixColors averages the RGB channels of the given colors, rounding
// half up so black and white mix to #808080.
func mixColors(colors []string) string {
	var r, g, b int
	for _, c := range colors {
		cr, cg, cb := splitHex(c)
		r += cr
		g += cg
		b += cb
	}
	n := len(colors)
	r = (r + n/2) / n
	g = (g + n/2) / n
	b = (b + n/2) / n
	return strings.ToLower(fmt.Sprintf("#%02X%02X%02X", r, g, b))
}

func splitHex(c string) (int, int, int) {
	c = strings.TrimPrefix(c, "#")
	r, _ := strconv.ParseUint(c[0:2], 16, 16)
	g, _ := strconv.ParseUint(c[2:4], 16, 16)
	b, _ := strconv.ParseUint(c[4:6], 16, 16)
	return int(r), int(g), int(b)
}

// combinations returns every distinct k-combination of items, in
// lexicographic order of indices.
func combinations(items []string, k int) [][]string {
	var out [][]string
	if k <= 0 || k > len(items) {
		return out
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		combo := make([]string, k)
		for i, j := range idx {
			combo[i] = items[j]
		}
		out = append(out, combo)

		i := k - 1
		for i >= 0 && idx[i] == len(items)-k+i {
			i--
		}
		if i < 0 {
			return out
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
