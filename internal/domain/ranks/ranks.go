// Package ranks converts between human ranks and internal ratings and derives
// the rating shift a handicap is worth.
//
// Ranks are numbered from 0 (30 kyu) upward; 30 is 1 dan. A Converter is
// built once per run from a System and its coefficients and is immutable
// afterwards.
package ranks

import (
	"fmt"
	"math"
	"strings"
)

// System names a rank<->rating formula family.
type System string

// Supported systems.
const (
	SystemLinear         System = "linear"
	SystemGoR            System = "gor"
	SystemLog            System = "log"
	SystemPowerLog       System = "logp"
	SystemSigmoid        System = "sig"
	SystemExhaustiveLog  System = "exhaustivelog"
	SystemExhaustiveLogP System = "exhaustivelogp"
	SystemPiecewise      System = "optimizer"
)

// Default coefficients.
const (
	DefaultA = 525.0
	DefaultC = 23.15
	DefaultD = 0.0
	DefaultP = 1.0
	DefaultM = 100.0
	DefaultB = 9.0

	// validationRating is the probe used to check that a zero handicap is
	// worth zero rating points.
	validationRating    = 1000.0
	validationTolerance = 1e-8
)

// Systems lists every supported system in a stable order.
func Systems() []System {
	return []System{
		SystemLinear, SystemGoR, SystemLog, SystemPowerLog, SystemSigmoid,
		SystemExhaustiveLog, SystemExhaustiveLogP, SystemPiecewise,
	}
}

// ParseSystem resolves a configured system name.
func ParseSystem(name string) (System, error) {
	s := System(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Systems() {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSystem, name)
}

// Calibration holds the constants of the exhaustive search systems. They are
// fixed per run and never read from the regular coefficients.
type Calibration struct {
	A, C, D, P float64
}

// DefaultCalibration returns the calibration constants used when none are set.
func DefaultCalibration() Calibration {
	return Calibration{A: DefaultA, C: DefaultC, D: DefaultD, P: DefaultP}
}

// AdjustmentContext describes the game a handicap adjustment is computed for.
type AdjustmentContext struct {
	Komi  float64
	Size  int
	Rules string
}

// Option applies a configuration option to the Converter.
type Option func(*settings)

type settings struct {
	a, c, d, p              float64
	m, b                    float64
	calibration             Calibration
	halfStoneHandicap       bool
	halfStoneHandicapForAll bool
	controlPoints           []float64
}

// WithLogCoefficients sets a, c, d and p for the log, logp and sig systems.
func WithLogCoefficients(a, c, d, p float64) Option {
	return func(s *settings) {
		s.a, s.c, s.d, s.p = a, c, d, p
	}
}

// WithLinearCoefficients sets m and b for the linear system.
func WithLinearCoefficients(m, b float64) Option {
	return func(s *settings) {
		s.m, s.b = m, b
	}
}

// WithCalibration sets the constants of the exhaustive systems.
func WithCalibration(c Calibration) Option {
	return func(s *settings) {
		s.calibration = c
	}
}

// WithHalfStoneHandicap counts a handicap of one as half a rank.
func WithHalfStoneHandicap(enabled bool) Option {
	return func(s *settings) {
		s.halfStoneHandicap = enabled
	}
}

// WithHalfStoneHandicapForAllRanks subtracts half a rank from every
// non-zero handicap. Takes precedence over WithHalfStoneHandicap.
func WithHalfStoneHandicapForAllRanks(enabled bool) Option {
	return func(s *settings) {
		s.halfStoneHandicapForAll = enabled
	}
}

// WithControlPoints sets the ratings of ranks 0..37 for the piecewise system.
// The slice is copied.
func WithControlPoints(points []float64) Option {
	return func(s *settings) {
		s.controlPoints = append([]float64(nil), points...)
	}
}

// HandicapPolicy selects how handicap stones translate into ranks.
type HandicapPolicy int

// Handicap policies.
const (
	HandicapFullStone HandicapPolicy = iota
	HandicapHalfStoneForOne
	HandicapHalfStoneForAll
)

// String implements fmt.Stringer.
func (p HandicapPolicy) String() string {
	switch p {
	case HandicapHalfStoneForOne:
		return "half-stone-for-handicap-one"
	case HandicapHalfStoneForAll:
		return "half-stone-for-all"
	default:
		return "default"
	}
}

// rankOffset returns how many ranks a handicap is worth under the policy.
func (p HandicapPolicy) rankOffset(handicap int) float64 {
	switch p {
	case HandicapHalfStoneForAll:
		if handicap > 0 {
			return float64(handicap) - 0.5
		}
		return 0
	case HandicapHalfStoneForOne:
		if handicap == 1 {
			return 0.5
		}
		return float64(handicap)
	default:
		return float64(handicap)
	}
}

// Converter converts ranks to ratings and back for one configured system.
type Converter struct {
	system System
	curve  curve
	policy HandicapPolicy
	params map[string]float64
}

// New resolves system into a Converter. It fails with ErrConfiguration when
// the coefficients are unusable or a zero handicap is not worth zero points.
func New(system System, opts ...Option) (*Converter, error) {
	s := settings{
		a: DefaultA, c: DefaultC, d: DefaultD, p: DefaultP,
		m: DefaultM, b: DefaultB,
		calibration: DefaultCalibration(),
	}
	for _, opt := range opts {
		opt(&s)
	}

	cv, params, err := buildCurve(system, s)
	if err != nil {
		return nil, err
	}

	policy := HandicapFullStone
	switch {
	case s.halfStoneHandicapForAll:
		policy = HandicapHalfStoneForAll
	case s.halfStoneHandicap:
		policy = HandicapHalfStoneForOne
	}

	c := &Converter{system: system, curve: cv, policy: policy, params: params}
	if adj := c.adjustment(validationRating, 0); math.IsNaN(adj) || math.Abs(adj) > validationTolerance {
		return nil, fmt.Errorf("%w: %s: zero handicap adjusts rating %.0f by %g", ErrConfiguration, system, validationRating, adj)
	}
	return c, nil
}

func buildCurve(system System, s settings) (curve, map[string]float64, error) {
	switch system {
	case SystemLinear:
		if s.m <= 0 {
			return nil, nil, fmt.Errorf("%w: linear: m must be positive", ErrConfiguration)
		}
		return linearCurve{m: s.m, b: s.b}, map[string]float64{"m": s.m, "b": s.b}, nil
	case SystemGoR:
		return linearCurve{m: DefaultM, b: DefaultB}, map[string]float64{"m": DefaultM, "b": DefaultB}, nil
	case SystemLog:
		if err := checkLog(system, s.a, s.c); err != nil {
			return nil, nil, err
		}
		return logCurve{a: s.a, c: s.c, d: s.d}, map[string]float64{"a": s.a, "c": s.c, "d": s.d}, nil
	case SystemPowerLog:
		if err := checkPowerLog(system, s.a, s.c, s.p); err != nil {
			return nil, nil, err
		}
		return powerLogCurve{a: s.a, c: s.c, p: s.p}, map[string]float64{"a": s.a, "c": s.c, "p": s.p}, nil
	case SystemSigmoid:
		if err := checkLog(system, s.a, s.c); err != nil {
			return nil, nil, err
		}
		return sigmoidCurve{a: s.a, c: s.c}, map[string]float64{"a": s.a, "c": s.c}, nil
	case SystemExhaustiveLog:
		k := s.calibration
		if err := checkLog(system, k.A, k.C); err != nil {
			return nil, nil, err
		}
		return logCurve{a: k.A, c: k.C, d: k.D}, map[string]float64{"a": k.A, "c": k.C, "d": k.D}, nil
	case SystemExhaustiveLogP:
		k := s.calibration
		if err := checkPowerLog(system, k.A, k.C, k.P); err != nil {
			return nil, nil, err
		}
		return powerLogCurve{a: k.A, c: k.C, p: k.P}, map[string]float64{"a": k.A, "c": k.C, "p": k.P}, nil
	case SystemPiecewise:
		if len(s.controlPoints) != ControlPointCount {
			return nil, nil, fmt.Errorf("%w: optimizer: need %d control points, got %d", ErrConfiguration, ControlPointCount, len(s.controlPoints))
		}
		for i := 1; i < len(s.controlPoints); i++ {
			if !(s.controlPoints[i] > s.controlPoints[i-1]) {
				return nil, nil, fmt.Errorf("%w: optimizer: control point %d (%g) does not exceed point %d (%g)",
					ErrConfiguration, i, s.controlPoints[i], i-1, s.controlPoints[i-1])
			}
		}
		return piecewiseCurve{points: s.controlPoints}, map[string]float64{}, nil
	default:
		return nil, nil, fmt.Errorf("%w: %w: %q", ErrConfiguration, ErrUnknownSystem, system)
	}
}

func checkLog(system System, a, c float64) error {
	if a <= 0 {
		return fmt.Errorf("%w: %s: a must be positive", ErrConfiguration, system)
	}
	if c <= 0 {
		return fmt.Errorf("%w: %s: c must be positive", ErrConfiguration, system)
	}
	return nil
}

func checkPowerLog(system System, a, c, p float64) error {
	if err := checkLog(system, a, c); err != nil {
		return err
	}
	if p <= 0 {
		return fmt.Errorf("%w: %s: p must be positive", ErrConfiguration, system)
	}
	return nil
}

// System returns the configured system.
func (c *Converter) System() System { return c.system }

// Policy returns the handicap policy.
func (c *Converter) Policy() HandicapPolicy { return c.policy }

// Params returns a copy of the effective coefficients, keyed by name.
func (c *Converter) Params() map[string]float64 {
	out := make(map[string]float64, len(c.params))
	for k, v := range c.params {
		out[k] = v
	}
	return out
}

// RankToRating converts a rank to a rating.
func (c *Converter) RankToRating(rank float64) float64 { return c.curve.rankToRating(rank) }

// RatingToRank converts a rating to a rank.
func (c *Converter) RatingToRank(rating float64) float64 { return c.curve.ratingToRank(rating) }

// HandicapAdjustment returns how many rating points handicap stones are worth
// to a player rated rating. The game context is accepted so komi and ruleset
// aware policies can share the signature; the rank based policies ignore it.
// A handicap worth no ranks is worth exactly zero points, even where the
// curve does not round trip.
func (c *Converter) HandicapAdjustment(rating float64, handicap int, _ AdjustmentContext) float64 {
	offset := c.policy.rankOffset(handicap)
	if offset == 0 {
		return 0
	}
	return c.adjustment(rating, offset)
}

// adjustment is the raw round trip through the curve.
func (c *Converter) adjustment(rating, offset float64) float64 {
	return c.RankToRating(c.RatingToRank(rating)+offset) - rating
}
