package data

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"
)

// FlatFileProvider serves snapshots and underlying bars from a directory of
// end-of-day CSV flat files, the layout produced by downloading the vendor's
// daily OPRA dumps:
//
//	<optionDir>/2024-01-24.csv        option rows: ticker,open,high,low,close,...
//	<optionDir>/2024-01-24.csv.gz     gzip accepted interchangeably
//	<underlyingDir>/AAPL.csv          daily bars: date,open,high,low,close,volume
//
// Files are immutable for the duration of a run; a loaded snapshot is never
// re-read.
type FlatFileProvider struct {
	optionDir     string
	underlyingDir string

	mu     sync.RWMutex
	loaded map[string]*Snapshot
}

func NewFlatFileProvider(optionDir, underlyingDir string) *FlatFileProvider {
	return &FlatFileProvider{
		optionDir:     optionDir,
		underlyingDir: underlyingDir,
		loaded:        make(map[string]*Snapshot),
	}
}

// optionFlatRow is the raw CSV shape of one option line.
type optionFlatRow struct {
	Ticker string  `csv:"ticker"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
}

// barFlatRow is the raw CSV shape of one underlying daily bar.
type barFlatRow struct {
	Date   string  `csv:"date"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume float64 `csv:"volume"`
}

// HasSnapshot reports whether a flat file exists for the date.
func (p *FlatFileProvider) HasSnapshot(date time.Time) bool {
	_, ok := p.snapshotPath(date)
	return ok
}

// LoadRows returns the date's rows for one underlying, filtered by exact
// parsed-symbol match.
func (p *FlatFileProvider) LoadRows(_ context.Context, symbol string, date time.Time) ([]OptionQuote, bool, error) {
	snap, ok, err := p.LoadSnapshot(date)
	if err != nil || !ok {
		return nil, ok, err
	}
	return snap.RowsForUnderlying(symbol), true, nil
}

// LoadSnapshot reads and parses the flat file for an exact date, memoizing
// the result: files are immutable for the duration of a run. Rows whose
// contract symbols do not parse are dropped with a debug log; a chain dump
// routinely carries a handful of malformed lines and they must not poison the
// rest of the file.
func (p *FlatFileProvider) LoadSnapshot(date time.Time) (*Snapshot, bool, error) {
	key := date.Format("2006-01-02")
	p.mu.RLock()
	if snap, ok := p.loaded[key]; ok {
		p.mu.RUnlock()
		return snap, true, nil
	}
	p.mu.RUnlock()

	path, ok := p.snapshotPath(date)
	if !ok {
		return nil, false, nil
	}

	r, closeFn, err := openMaybeGzip(path)
	if err != nil {
		return nil, false, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	defer closeFn()

	var raw []*optionFlatRow
	if err := gocsv.Unmarshal(r, &raw); err != nil {
		return nil, false, fmt.Errorf("parse snapshot %s: %w", path, err)
	}

	snap := &Snapshot{Date: date, Rows: make([]OptionQuote, 0, len(raw))}
	dropped := 0
	for _, row := range raw {
		c, err := ParseOptionSymbol(row.Ticker)
		if err != nil {
			dropped++
			continue
		}
		snap.Rows = append(snap.Rows, OptionQuote{
			Symbol:     row.Ticker,
			Underlying: c.Underlying,
			Expiry:     c.Expiry,
			Type:       c.Type,
			Strike:     c.Strike,
			Open:       row.Open,
			High:       row.High,
			Low:        row.Low,
			Close:      row.Close,
		})
	}
	if dropped > 0 {
		log.WithFields(log.Fields{
			"date":    date.Format("2006-01-02"),
			"dropped": dropped,
		}).Debug("dropped unparseable option rows")
	}

	p.mu.Lock()
	p.loaded[key] = snap
	p.mu.Unlock()
	return snap, true, nil
}

// SnapshotDates scans the option directory for parseable YYYY-MM-DD file
// names and returns them sorted ascending.
func (p *FlatFileProvider) SnapshotDates() ([]time.Time, error) {
	entries, err := os.ReadDir(p.optionDir)
	if err != nil {
		return nil, fmt.Errorf("scan snapshot dir %s: %w", p.optionDir, err)
	}

	var dates []time.Time
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.TrimSuffix(strings.TrimSuffix(e.Name(), ".gz"), ".csv")
		d, err := time.Parse("2006-01-02", name)
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// GetDailyBars reads the per-symbol bar file and returns bars inside
// [from, to], ordered by date.
func (p *FlatFileProvider) GetDailyBars(_ context.Context, symbol string, from, to time.Time) ([]Bar, error) {
	path := filepath.Join(p.underlyingDir, strings.ToUpper(symbol)+".csv")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open bars %s: %w", path, err)
	}
	defer f.Close()

	var raw []*barFlatRow
	if err := gocsv.Unmarshal(f, &raw); err != nil {
		return nil, fmt.Errorf("parse bars %s: %w", path, err)
	}

	out := make([]Bar, 0, len(raw))
	for _, row := range raw {
		d, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			continue
		}
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, Bar{Date: d, Open: row.Open, High: row.High, Low: row.Low, Close: row.Close, Vol: row.Volume})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (p *FlatFileProvider) snapshotPath(date time.Time) (string, bool) {
	base := filepath.Join(p.optionDir, date.Format("2006-01-02"))
	for _, ext := range []string{".csv", ".csv.gz"} {
		if _, err := os.Stat(base + ext); err == nil {
			return base + ext, true
		}
	}
	return "", false
}

func openMaybeGzip(path string) (io.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		return gz, func() error {
			gz.Close()
			return f.Close()
		}, nil
	}
	return f, f.Close, nil
}
