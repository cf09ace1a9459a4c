package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/okian/goratings/internal/domain/model"
)

// Column names of the game CSV format.
const (
	ColID              = "id"
	ColSize            = "size"
	ColHandicap        = "handicap"
	ColKomi            = "komi"
	ColRules           = "rules"
	ColBlackID         = "black_id"
	ColWhiteID         = "white_id"
	ColTimePerMove     = "time_per_move"
	ColTimedOut        = "timed_out"
	ColWinnerID        = "winner_id"
	ColEndedAt         = "ended_at"
	ColBlackManualRank = "black_manual_rank"
	ColWhiteManualRank = "white_manual_rank"
)

// Columns lists every column in the order CSVWriter writes them.
func Columns() []string {
	return []string{
		ColID, ColSize, ColHandicap, ColKomi, ColRules, ColBlackID, ColWhiteID,
		ColTimePerMove, ColTimedOut, ColWinnerID, ColEndedAt,
		ColBlackManualRank, ColWhiteManualRank,
	}
}

// requiredColumns must be present and non-empty on every row.
var requiredColumns = []string{ //nolint:gochecknoglobals // fixed layout
	ColID, ColSize, ColHandicap, ColKomi, ColBlackID, ColWhiteID, ColWinnerID, ColEndedAt,
}

// CSVSource reads games from a header-led CSV stream. Columns may appear
// in any order; unknown columns are ignored. A missing required column or
// value fails with model.ErrInvalidGame.
type CSVSource struct {
	name   string
	r      *csv.Reader
	closer io.Closer
	index  map[string]int
	line   int
}

// NewCSVSource reads games from r. name labels errors.
func NewCSVSource(name string, r io.Reader) *CSVSource {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	s := &CSVSource{name: name, r: cr}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// OpenCSV opens path as a CSVSource. The file is closed at EOF or by Close.
func OpenCSV(path string) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open games file: %w", err)
	}
	return NewCSVSource(path, f), nil
}

// Close releases the underlying file, if any.
func (s *CSVSource) Close() error {
	if s.closer == nil {
		return nil
	}
	c := s.closer
	s.closer = nil
	return c.Close()
}

func (s *CSVSource) readHeader() error {
	header, err := s.r.Read()
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	if err != nil {
		return fmt.Errorf("%s: read header: %w", s.name, err)
	}
	s.line = 1
	s.index = make(map[string]int, len(header))
	for i, h := range header {
		s.index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := s.index[col]; !ok {
			return fmt.Errorf("%w: %s: missing column %q", model.ErrInvalidGame, s.name, col)
		}
	}
	return nil
}

// Next implements Source.
func (s *CSVSource) Next(ctx context.Context) (model.GameRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.GameRecord{}, err
	}
	if s.index == nil {
		if err := s.readHeader(); err != nil {
			_ = s.Close()
			return model.GameRecord{}, err
		}
	}
	row, err := s.r.Read()
	if errors.Is(err, io.EOF) {
		_ = s.Close()
		return model.GameRecord{}, io.EOF
	}
	s.line++
	if err != nil {
		return model.GameRecord{}, fmt.Errorf("%s:%d: %w", s.name, s.line, err)
	}
	g, err := s.parse(row)
	if err != nil {
		return model.GameRecord{}, fmt.Errorf("%s:%d: %w", s.name, s.line, err)
	}
	return g, nil
}

// rowReader extracts typed fields from one row, keeping the first error.
type rowReader struct {
	row   []string
	index map[string]int
	err   error
}

func (r *rowReader) raw(col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(r.row) {
		return ""
	}
	return strings.TrimSpace(r.row[i])
}

func (r *rowReader) required(col string) string {
	v := r.raw(col)
	if v == "" && r.err == nil {
		r.err = fmt.Errorf("%w: missing %s", model.ErrInvalidGame, col)
	}
	return v
}

func (r *rowReader) integer(col string) int64 {
	v := r.required(col)
	if r.err != nil {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		r.err = fmt.Errorf("%w: %s: %w", model.ErrInvalidGame, col, err)
	}
	return n
}

func (r *rowReader) number(col string) float64 {
	v := r.required(col)
	if r.err != nil {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.err = fmt.Errorf("%w: %s: %w", model.ErrInvalidGame, col, err)
	}
	return f
}

func (r *rowReader) optionalFloat(col string) *float64 {
	v := r.raw(col)
	if v == "" || r.err != nil {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.err = fmt.Errorf("%w: %s: %w", model.ErrInvalidGame, col, err)
		return nil
	}
	return &f
}

// timePerMove accepts plain seconds or an overtime description. Anything
// else is a data error rather than a game of unknown speed.
func (r *rowReader) timePerMove() *float64 {
	v := r.raw(ColTimePerMove)
	if v == "" || r.err != nil {
		return nil
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return &f
	}
	if f, ok := SecondsPerMove(v); ok {
		return &f
	}
	r.err = fmt.Errorf("%w: %s: unrecognized time %q", model.ErrInvalidGame, ColTimePerMove, v)
	return nil
}

func (r *rowReader) flag(col string) bool {
	v := r.raw(col)
	if v == "" || r.err != nil {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.err = fmt.Errorf("%w: %s: %w", model.ErrInvalidGame, col, err)
	}
	return b
}

func (s *CSVSource) parse(row []string) (model.GameRecord, error) {
	r := &rowReader{row: row, index: s.index}
	g := model.GameRecord{
		ID:              r.integer(ColID),
		Size:            int(r.integer(ColSize)),
		Handicap:        int(r.integer(ColHandicap)),
		Komi:            r.number(ColKomi),
		Rules:           r.raw(ColRules),
		BlackID:         model.PlayerID(r.integer(ColBlackID)),
		WhiteID:         model.PlayerID(r.integer(ColWhiteID)),
		TimePerMove:     r.timePerMove(),
		TimedOut:        r.flag(ColTimedOut),
		WinnerID:        model.PlayerID(r.integer(ColWinnerID)),
		EndedAt:         r.integer(ColEndedAt),
		BlackManualRank: r.optionalFloat(ColBlackManualRank),
		WhiteManualRank: r.optionalFloat(ColWhiteManualRank),
	}
	if r.err != nil {
		return model.GameRecord{}, r.err
	}
	return g, nil
}

// CSVWriter writes games in the format CSVSource reads.
type CSVWriter struct {
	w      *csv.Writer
	header bool
}

// NewCSVWriter writes games to w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// Write appends one game, preceded by the header on first use.
func (c *CSVWriter) Write(g model.GameRecord) error {
	if !c.header {
		c.header = true
		if err := c.w.Write(Columns()); err != nil {
			return err
		}
	}
	return c.w.Write([]string{
		strconv.FormatInt(g.ID, 10),
		strconv.Itoa(g.Size),
		strconv.Itoa(g.Handicap),
		formatFloat(&g.Komi),
		g.Rules,
		strconv.FormatInt(int64(g.BlackID), 10),
		strconv.FormatInt(int64(g.WhiteID), 10),
		formatFloat(g.TimePerMove),
		strconv.FormatBool(g.TimedOut),
		strconv.FormatInt(int64(g.WinnerID), 10),
		strconv.FormatInt(g.EndedAt, 10),
		formatFloat(g.BlackManualRank),
		formatFloat(g.WhiteManualRank),
	})
}

// Flush writes buffered rows and reports any write error.
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
