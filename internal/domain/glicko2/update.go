package glicko2

import (
	"fmt"
	"math"
)

// Default update parameters.
const (
	defaultTau           = 0.5
	defaultEpsilon       = 1e-6
	defaultMaxIterations = 100

	defaultMinRating     = 100.0
	defaultMaxRating     = 6000.0
	defaultMinDeviation  = 45.0
	defaultMaxDeviation  = DefaultDeviation
	defaultMinVolatility = 0.01
	defaultMaxVolatility = 0.15

	// noInformationVariance stands in for v when no opponent carries information.
	noInformationVariance = 9999.0
)

// Match is one game against an opponent within a rating period.
// Outcome is 1 for a win, 0 for a loss, 0.5 for a draw.
type Match struct {
	Opponent Entry
	Outcome  float64
}

// Outcome helpers.
const (
	Win  = 1.0
	Draw = 0.5
	Loss = 0.0
)

// Option applies a configuration option to the Updater.
type Option func(*Updater)

// WithTau sets the system constant constraining volatility change.
func WithTau(tau float64) Option {
	return func(u *Updater) {
		if tau > 0 {
			u.tau = tau
		}
	}
}

// WithEpsilon sets the convergence tolerance of the volatility solve.
func WithEpsilon(eps float64) Option {
	return func(u *Updater) {
		if eps > 0 {
			u.epsilon = eps
		}
	}
}

// WithMaxIterations sets the iteration budget of each solver loop.
func WithMaxIterations(n int) Option {
	return func(u *Updater) {
		if n > 0 {
			u.maxIterations = n
		}
	}
}

// WithRatingBounds clamps updated ratings to [lo, hi].
func WithRatingBounds(lo, hi float64) Option {
	return func(u *Updater) {
		if hi > lo {
			u.minRating, u.maxRating = lo, hi
		}
	}
}

// WithDeviationBounds clamps updated deviations to [lo, hi].
func WithDeviationBounds(lo, hi float64) Option {
	return func(u *Updater) {
		if lo > 0 && hi > lo {
			u.minDeviation, u.maxDeviation = lo, hi
		}
	}
}

// WithVolatilityBounds clamps updated volatilities to [lo, hi].
func WithVolatilityBounds(lo, hi float64) Option {
	return func(u *Updater) {
		if lo > 0 && hi > lo {
			u.minVolatility, u.maxVolatility = lo, hi
		}
	}
}

// Updater runs Glicko-2 rating period updates. It holds no per-player state
// and is safe to share.
type Updater struct {
	tau           float64
	epsilon       float64
	maxIterations int

	minRating, maxRating         float64
	minDeviation, maxDeviation   float64
	minVolatility, maxVolatility float64
}

// NewUpdater creates an Updater with configuration options.
func NewUpdater(opts ...Option) *Updater {
	u := &Updater{
		tau:           defaultTau,
		epsilon:       defaultEpsilon,
		maxIterations: defaultMaxIterations,
		minRating:     defaultMinRating,
		maxRating:     defaultMaxRating,
		minDeviation:  defaultMinDeviation,
		maxDeviation:  defaultMaxDeviation,
		minVolatility: defaultMinVolatility,
		maxVolatility: defaultMaxVolatility,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Tau returns the configured system constant.
func (u *Updater) Tau() float64 { return u.tau }

// Update applies one rating period of matches to player and returns the new
// entry. No idle-period deviation growth is applied when matches is empty;
// the player is returned unchanged. ErrNoConvergence is returned instead of
// an entry when the volatility solve exhausts its iteration budget.
func (u *Updater) Update(player Entry, matches []Match) (Entry, error) {
	if err := player.Validate(); err != nil {
		return Entry{}, err
	}
	if len(matches) == 0 {
		return player, nil
	}

	mu, phi := player.mu(), player.phi()

	// Estimated variance and improvement from the period's results.
	var vSum, deltaSum float64
	for _, m := range matches {
		if err := m.Opponent.Validate(); err != nil {
			return Entry{}, fmt.Errorf("opponent: %w", err)
		}
		gPhi := g(m.Opponent.phi())
		e := expected(mu, m.Opponent.mu(), gPhi)
		vSum += gPhi * gPhi * e * (1 - e)
		deltaSum += gPhi * (m.Outcome - e)
	}
	v := noInformationVariance
	if vSum != 0 {
		v = 1 / vSum
	}
	delta := v * deltaSum

	sigma, err := u.solveVolatility(phi, player.Volatility, v, delta)
	if err != nil {
		return Entry{}, err
	}

	phiStar := math.Sqrt(phi*phi + sigma*sigma)
	phiPrime := 1 / math.Sqrt(1/(phiStar*phiStar)+1/v)
	muPrime := mu + phiPrime*phiPrime*deltaSum

	out := Entry{
		Rating:     clamp(scale*muPrime+DefaultRating, u.minRating, u.maxRating),
		Deviation:  clamp(scale*phiPrime, u.minDeviation, u.maxDeviation),
		Volatility: clamp(sigma, u.minVolatility, u.maxVolatility),
	}
	if err := out.Validate(); err != nil {
		return Entry{}, fmt.Errorf("%w: %w", ErrNoConvergence, err)
	}
	return out, nil
}

// solveVolatility finds the new volatility with the Illinois variant of
// regula falsi, as in step 5 of the Glicko-2 paper.
func (u *Updater) solveVolatility(phi, sigma, v, delta float64) (float64, error) {
	a := math.Log(sigma * sigma)
	tau2 := u.tau * u.tau
	f := func(x float64) float64 {
		ex := math.Exp(x)
		d := phi*phi + v + ex
		return ex*(delta*delta-phi*phi-v-ex)/(2*d*d) - (x-a)/tau2
	}

	A := a
	var B float64
	if delta*delta > phi*phi+v {
		B = math.Log(delta*delta - phi*phi - v)
	} else {
		k := 1.0
		for f(a-k*u.tau) < 0 {
			if int(k) >= u.maxIterations {
				return 0, fmt.Errorf("%w: no bracket after %d steps", ErrNoConvergence, u.maxIterations)
			}
			k++
		}
		B = a - k*u.tau
	}

	fA, fB := f(A), f(B)
	for i := 0; math.Abs(B-A) > u.epsilon; i++ {
		if i >= u.maxIterations {
			return 0, fmt.Errorf("%w: |B-A|=%g after %d iterations", ErrNoConvergence, math.Abs(B-A), u.maxIterations)
		}
		C := A + (A-B)*fA/(fB-fA)
		fC := f(C)
		if math.IsNaN(fC) || math.IsInf(fC, 0) {
			return 0, fmt.Errorf("%w: f(%g) is %v", ErrNoConvergence, C, fC)
		}
		if fC*fB <= 0 {
			A, fA = B, fB
		} else {
			fA /= 2
		}
		B, fB = C, fC
	}
	return math.Exp(A / 2), nil
}

// g attenuates the impact of a game by the opponent's deviation.
func g(phi float64) float64 {
	return 1 / math.Sqrt(1+3*phi*phi/(math.Pi*math.Pi))
}

// expected is the win probability of mu against an opponent at muJ.
func expected(mu, muJ, gPhiJ float64) float64 {
	return 1 / (1 + math.Exp(-gPhiJ*(mu-muJ)))
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
