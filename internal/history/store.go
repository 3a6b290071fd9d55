package history

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Turbo503/EchoNode/internal/model"
)

var header = []string{"timestamp", "open", "high", "low", "close", "volume"}

// Store keeps one append-only CSV file per symbol/timeframe under a fixed
// directory, one row per candle. The collector reads it as a local cache and
// appends candles it has not seen before.
type Store struct {
	dir string
}

// NewStore creates the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(symbol, timeframe string) string {
	name := strings.ReplaceAll(symbol, "/", "") + "_" + timeframe + ".csv"
	return filepath.Join(s.dir, name)
}

// Load reads all candles for a symbol/timeframe, in file order. A missing
// file is an empty history, not an error.
func (s *Store) Load(symbol, timeframe string) ([]model.Candle, error) {
	f, err := os.Open(s.path(symbol, timeframe))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	var candles []model.Candle
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == header[0] {
			continue
		}
		c, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("history row %d: %w", i+1, err)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

// Append writes candles newer than the last stored row, preserving the
// append-only discipline.
func (s *Store) Append(symbol, timeframe string, candles []model.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	existing, err := s.Load(symbol, timeframe)
	if err != nil {
		return err
	}
	var lastStored time.Time
	if len(existing) > 0 {
		lastStored = existing[len(existing)-1].Time
	}

	path := s.path(symbol, timeframe)
	fresh := len(existing) == 0
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history for append: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(header); err != nil {
			return err
		}
	}
	for _, c := range candles {
		if !lastStored.IsZero() && !c.Time.After(lastStored) {
			continue
		}
		row := []string{
			strconv.FormatInt(c.Time.UTC().Unix(), 10),
			formatFloat(c.Open),
			formatFloat(c.High),
			formatFloat(c.Low),
			formatFloat(c.Close),
			formatFloat(c.Volume),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func parseRow(row []string) (model.Candle, error) {
	if len(row) != len(header) {
		return model.Candle{}, fmt.Errorf("expected %d columns, got %d", len(header), len(row))
	}
	ts, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return model.Candle{}, fmt.Errorf("bad timestamp %q", row[0])
	}
	vals := make([]float64, 5)
	for i := 1; i < len(row); i++ {
		v, err := strconv.ParseFloat(row[i], 64)
		if err != nil {
			return model.Candle{}, fmt.Errorf("bad value %q in column %s", row[i], header[i])
		}
		vals[i-1] = v
	}
	return model.Candle{
		Time:   time.Unix(ts, 0).UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
