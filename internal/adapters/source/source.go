// Package source produces ordered game streams for the rating engine.
//
// Sources are pull based and single pass: Next returns io.EOF once the
// stream is exhausted. Merging several sources into one stream ordered by
// end time is the job of Merge, never of the engine.
package source

import (
	"container/heap"
	"context"
	"errors"
	"io"

	"github.com/okian/goratings/internal/domain/model"
	"github.com/okian/goratings/internal/domain/types"
)

// Source yields games one at a time.
type Source interface {
	Next(ctx context.Context) (model.GameRecord, error)
}

// SliceSource serves games from memory.
type SliceSource struct {
	games []model.GameRecord
	pos   int
}

// FromSlice creates a source over games. The slice is not copied.
func FromSlice(games []model.GameRecord) *SliceSource {
	return &SliceSource{games: games}
}

// Next implements Source.
func (s *SliceSource) Next(ctx context.Context) (model.GameRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.GameRecord{}, err
	}
	if s.pos >= len(s.games) {
		return model.GameRecord{}, io.EOF
	}
	g := s.games[s.pos]
	s.pos++
	return g, nil
}

// concat drains sources one after another.
type concat struct {
	sources []Source
}

// Concat chains sources without reordering.
func Concat(sources ...Source) Source {
	return &concat{sources: sources}
}

func (c *concat) Next(ctx context.Context) (model.GameRecord, error) {
	for len(c.sources) > 0 {
		g, err := c.sources[0].Next(ctx)
		if errors.Is(err, io.EOF) {
			c.sources = c.sources[1:]
			continue
		}
		return g, err
	}
	return model.GameRecord{}, io.EOF
}

// head is the next pending game of one merged source.
type head struct {
	game  model.GameRecord
	index int
}

type headHeap []head

func (h headHeap) Len() int { return len(h) }
func (h headHeap) Less(i, j int) bool {
	if h[i].game.EndedAt != h[j].game.EndedAt {
		return h[i].game.EndedAt < h[j].game.EndedAt
	}
	return h[i].index < h[j].index
}
func (h headHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *headHeap) Push(x any)   { *h = append(*h, x.(head)) }
func (h *headHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}

// merge interleaves individually ordered sources by end time.
type merge struct {
	sources []Source
	heads   headHeap
	primed  bool
}

// Merge combines sources that are each ordered by EndedAt into one ordered
// stream. Ties go to the source listed first.
func Merge(sources ...Source) Source {
	return &merge{sources: sources}
}

func (m *merge) pull(ctx context.Context, index int) error {
	g, err := m.sources[index].Next(ctx)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return err
	}
	heap.Push(&m.heads, head{game: g, index: index})
	return nil
}

func (m *merge) Next(ctx context.Context) (model.GameRecord, error) {
	if !m.primed {
		m.primed = true
		for i := range m.sources {
			if err := m.pull(ctx, i); err != nil {
				return model.GameRecord{}, err
			}
		}
	}
	if m.heads.Len() == 0 {
		return model.GameRecord{}, io.EOF
	}
	next := heap.Pop(&m.heads).(head)
	if err := m.pull(ctx, next.index); err != nil {
		return model.GameRecord{}, err
	}
	return next.game, nil
}

// limit stops after n games.
type limit struct {
	src  Source
	left int
}

// Limit caps src at n games. n <= 0 means no cap.
func Limit(src Source, n int) Source {
	if n <= 0 {
		return src
	}
	return &limit{src: src, left: n}
}

func (l *limit) Next(ctx context.Context) (model.GameRecord, error) {
	if l.left <= 0 {
		return model.GameRecord{}, io.EOF
	}
	g, err := l.src.Next(ctx)
	if err == nil {
		l.left--
	}
	return g, err
}

// filter drops games that do not match.
type filter struct {
	src  Source
	keep func(model.GameRecord) bool
}

// Filter keeps games for which keep returns true.
func Filter(src Source, keep func(model.GameRecord) bool) Source {
	return &filter{src: src, keep: keep}
}

func (f *filter) Next(ctx context.Context) (model.GameRecord, error) {
	for {
		g, err := f.src.Next(ctx)
		if err != nil || f.keep(g) {
			return g, err
		}
	}
}

// SizeAndSpeed returns a predicate keeping games on the given board size
// (0 for any) and speed class. Games of unknown speed only pass SpeedAny.
func SizeAndSpeed(size int, speed types.Speed) func(model.GameRecord) bool {
	return func(g model.GameRecord) bool {
		if size != 0 && g.Size != size {
			return false
		}
		if speed == types.SpeedAny {
			return true
		}
		class, ok := types.ClassifySpeed(g.TimePerMove)
		return ok && class == speed
	}
}

// Drain reads src to the end.
func Drain(ctx context.Context, src Source) ([]model.GameRecord, error) {
	var out []model.GameRecord
	for {
		g, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, g)
	}
}
