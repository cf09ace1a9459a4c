package ranks

import "math"

// curve is a rank<->rating mapping. Implementations are immutable.
type curve interface {
	rankToRating(rank float64) float64
	ratingToRank(rating float64) float64
}

// linearCurve maps rank = rating/m + b.
type linearCurve struct {
	m, b float64
}

func (l linearCurve) rankToRating(rank float64) float64   { return (rank - l.b) * l.m }
func (l linearCurve) ratingToRank(rating float64) float64 { return rating/l.m + l.b }

// logCurve maps rating = a*e^((rank-d)/c).
type logCurve struct {
	a, c, d float64
}

func (l logCurve) rankToRating(rank float64) float64 {
	return l.a * math.Exp((rank-l.d)/l.c)
}

func (l logCurve) ratingToRank(rating float64) float64 {
	return math.Log(rating/l.a)*l.c + l.d
}

// powerLogCurve maps rating = a*e^((rank/c)^(1/p)) with rank clamped to >= 0
// and rating clamped to >= a on the way back.
type powerLogCurve struct {
	a, c, p float64
}

func (l powerLogCurve) rankToRating(rank float64) float64 {
	if rank < 0 {
		rank = 0
	}
	return l.a * math.Exp(math.Pow(rank/l.c, 1/l.p))
}

func (l powerLogCurve) ratingToRank(rating float64) float64 {
	if rating < l.a {
		rating = l.a
	}
	return math.Pow(math.Log(rating/l.a), l.p) * l.c
}

// sigmoidInflection is the rating below which the log curve is mirrored.
const sigmoidInflection = 1500.0

// sigmoidCurve follows a*e^(rank/c) above the inflection rating and mirrors
// it about the inflection point below, so low ratings stay spread out.
type sigmoidCurve struct {
	a, c float64
}

func (s sigmoidCurve) f(rating float64) float64 { return math.Log(rating/s.a) * s.c }
func (s sigmoidCurve) i(rank float64) float64   { return s.a * math.Exp(rank/s.c) }

func (s sigmoidCurve) rankToRating(rank float64) float64 {
	base := s.f(sigmoidInflection)
	if rank >= base {
		return s.i(rank)
	}
	d := base - rank
	return s.i(base)*2 - s.i(base+d)
}

func (s sigmoidCurve) ratingToRank(rating float64) float64 {
	if rating >= sigmoidInflection {
		return s.f(rating)
	}
	d := sigmoidInflection - rating
	return s.f(sigmoidInflection)*2 - s.f(sigmoidInflection+d)
}

// Piecewise control point layout.
const (
	ControlPointCount = 38
	maxPiecewiseRank  = ControlPointCount - 1
	// AboveLastPointRank is returned for ratings above the last control point.
	AboveLastPointRank = 39
)

// piecewiseCurve linearly interpolates between fitted control points, one per
// integer rank in [0, 37].
type piecewiseCurve struct {
	points []float64
}

func lerp(x, y, a float64) float64 {
	return x*(1-a) + y*a
}

func (p piecewiseCurve) rankToRating(rank float64) float64 {
	if rank <= 0 {
		return p.points[0]
	}
	if rank >= maxPiecewiseRank {
		return p.points[maxPiecewiseRank]
	}
	base := int(rank)
	return lerp(p.points[base], p.points[base+1], rank-float64(base))
}

func (p piecewiseCurve) ratingToRank(rating float64) float64 {
	if rating < p.points[0] {
		return 0
	}
	for rank := 1; rank <= maxPiecewiseRank; rank++ {
		if rating < p.points[rank] {
			lo, hi := p.points[rank-1], p.points[rank]
			return lerp(float64(rank-1), float64(rank), (rating-lo)/(hi-lo))
		}
	}
	if rating == p.points[maxPiecewiseRank] {
		return maxPiecewiseRank
	}
	return AboveLastPointRank
}
