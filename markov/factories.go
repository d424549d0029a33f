package markov

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// LeftRight builds the n state chain that moves right with probability
// pRight and left with probability pLeft, staying put at the borders.
// A negative probability means unset: both unset gives 0.5/0.5, one unset is
// the complement of the other.
func LeftRight(n int, pRight, pLeft float64) (*Policy, error) {
	if n <= 0 {
		return nil, ErrEmpty
	}
	switch {
	case pRight < 0 && pLeft < 0:
		pRight, pLeft = 0.5, 0.5
	case pRight < 0:
		pRight = 1 - pLeft
	case pLeft < 0:
		pLeft = 1 - pRight
	}

	P := mat.NewDense(n, n, nil)
	for s := 0; s < n; s++ {
		right, left := s+1, s-1
		if right == n {
			right = s
		}
		if left < 0 {
			left = s
		}
		P.Set(s, right, P.At(s, right)+pRight)
		P.Set(s, left, P.At(s, left)+pLeft)
	}
	return FromDense(P)
}

// Uniform is the chain jumping to any state with equal probability.
func Uniform(n int) (*Policy, error) {
	if n <= 0 {
		return nil, ErrEmpty
	}
	data := make([]float64, n*n)
	for i := range data {
		data[i] = 1 / float64(n)
	}
	return FromDense(mat.NewDense(n, n, data))
}

// Random draws every transition weight uniformly in [0,1) and normalises the
// rows. The draw is reproducible for a seeded src.
func Random(n int, src rand.Source) (*Policy, error) {
	if n <= 0 {
		return nil, ErrEmpty
	}
	if src == nil {
		src = rand.NewSource(uint64(time.Now().UnixNano()))
	}
	rnd := rand.New(src)
	P := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		row := P.RawRowView(i)
		sum := 0.0
		for j := range row {
			row[j] = rnd.Float64()
			sum += row[j]
		}
		for j := range row {
			row[j] /= sum
		}
	}
	return FromDense(P)
}

// GridCell maps grid coordinates to a state index, x*ly + y. Coordinates off
// the grid report false.
func GridCell(lx, ly, x, y int) (int, bool) {
	if x < 0 || x >= lx || y < 0 || y >= ly {
		return 0, false
	}
	return x*ly + y, true
}

// GridRandomWalk is a random walk on an lx×ly grid. A move leaving the grid
// keeps the walker in place; rows are renormalised by the total move weight.
func GridRandomWalk(lx, ly int, up, down, left, right float64) (*Policy, error) {
	if lx <= 0 || ly <= 0 {
		return nil, ErrEmpty
	}
	total := up + down + left + right
	if total <= 0 || up < 0 || down < 0 || left < 0 || right < 0 {
		return nil, fmt.Errorf("%w: move weights up=%v down=%v left=%v right=%v", ErrNotStochastic, up, down, left, right)
	}

	n := lx * ly
	P := mat.NewDense(n, n, nil)
	moves := []struct {
		dx, dy int
		w      float64
	}{
		{-1, 0, up},
		{1, 0, down},
		{0, 1, right},
		{0, -1, left},
	}
	for x := 0; x < lx; x++ {
		for y := 0; y < ly; y++ {
			id, _ := GridCell(lx, ly, x, y)
			for _, m := range moves {
				next, ok := GridCell(lx, ly, x+m.dx, y+m.dy)
				if !ok {
					next = id
				}
				P.Set(id, next, P.At(id, next)+m.w/total)
			}
		}
	}
	return FromDense(P)
}
