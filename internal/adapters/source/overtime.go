package source

import (
	"regexp"
	"strconv"
)

var ( //nolint:gochecknoglobals // compiled once
	canadianPattern = regexp.MustCompile(`(\d+)/(\d+) Canadian`)
	fischerPattern  = regexp.MustCompile(`(\d+) fischer`)
	byoyomiPattern  = regexp.MustCompile(`(\d+)x(\d+) byo-yomi`)
	simplePattern   = regexp.MustCompile(`(\d+) simple`)
)

// SecondsPerMove derives the time per move from an SGF style overtime
// description such as "25/600 Canadian", "30 fischer", "5x30 byo-yomi" or
// "60 simple". ok is false when the format is not recognized.
func SecondsPerMove(overtime string) (seconds float64, ok bool) {
	if m := canadianPattern.FindStringSubmatch(overtime); m != nil {
		stones, _ := strconv.Atoi(m[1])
		period, _ := strconv.Atoi(m[2])
		if stones == 0 {
			return 0, false
		}
		return float64(period) / float64(stones), true
	}
	if m := fischerPattern.FindStringSubmatch(overtime); m != nil {
		inc, _ := strconv.Atoi(m[1])
		return float64(inc), true
	}
	if m := byoyomiPattern.FindStringSubmatch(overtime); m != nil {
		period, _ := strconv.Atoi(m[2])
		return float64(period), true
	}
	if m := simplePattern.FindStringSubmatch(overtime); m != nil {
		t, _ := strconv.Atoi(m[1])
		return float64(t), true
	}
	return 0, false
}
