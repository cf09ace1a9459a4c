package report

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/okian/goratings/internal/domain/model"
)

// csvHeader is the column layout of the per-game dump.
var csvHeader = []string{ //nolint:gochecknoglobals // fixed column layout
	"GameId", "Black", "White", "Skipped", "BlackWinrate",
	"BlackRating", "BlackDeviation", "BlackVolatility",
	"WhiteRating", "WhiteDeviation", "WhiteVolatility",
}

// CSVSink writes one row per game. Skipped games keep their ids and leave
// the rating columns empty.
type CSVSink struct {
	w      *csv.Writer
	buf    *bufio.Writer
	closer io.Closer
	closed bool
}

// NewCSVSink writes rows to w. If w is an io.Closer it is closed by Close.
func NewCSVSink(w io.Writer) (*CSVSink, error) {
	buf := bufio.NewWriter(w)
	s := &CSVSink{w: csv.NewWriter(buf), buf: buf}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	if err := s.w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	return s, nil
}

// CreateCSVSink creates or truncates path and writes rows to it.
func CreateCSVSink(path string) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create analysis outfile: %w", err)
	}
	s, err := NewCSVSink(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

// Write implements Sink.
func (s *CSVSink) Write(_ context.Context, a model.Analytics) error { //nolint:gocritic // hugeParam: mirrors Sink
	if s.closed {
		return ErrSinkClosed
	}
	row := []string{
		strconv.FormatInt(a.Game.ID, 10),
		strconv.FormatInt(int64(a.Game.BlackID), 10),
		strconv.FormatInt(int64(a.Game.WhiteID), 10),
		strconv.FormatBool(a.Skipped),
	}
	if a.Skipped {
		row = append(row, "", "", "", "", "", "", "")
	} else {
		row = append(row,
			formatFloat(a.ExpectedWinRate),
			formatFloat(a.BlackUpdatedRating),
			formatFloat(a.BlackUpdatedDeviation),
			formatFloat(a.BlackUpdatedVolatility),
			formatFloat(a.WhiteUpdatedRating),
			formatFloat(a.WhiteUpdatedDeviation),
			formatFloat(a.WhiteUpdatedVolatility),
		)
	}
	if err := s.w.Write(row); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	return nil
}

// Close flushes buffered rows and closes the destination.
func (s *CSVSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.w.Flush()
	err := s.w.Error()
	if ferr := s.buf.Flush(); err == nil {
		err = ferr
	}
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("close csv sink: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
