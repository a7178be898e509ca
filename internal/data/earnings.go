package data

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"
)

// CSVEarningsProvider reads per-symbol earnings files exported by the
// earnings fetcher: <dir>/<SYMBOL>_earnings.csv with an EarningsDate column.
type CSVEarningsProvider struct {
	dir string
}

func NewCSVEarningsProvider(dir string) *CSVEarningsProvider {
	return &CSVEarningsProvider{dir: dir}
}

type earningsRow struct {
	EarningsDate string `csv:"EarningsDate"`
}

// GetEarningsEvents returns the symbol's earnings events sorted ascending by
// date. Rows with unparseable dates are skipped, not fatal; the export often
// mixes date-only and timestamped values.
func (p *CSVEarningsProvider) GetEarningsEvents(symbol string) ([]EarningsEvent, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	path := filepath.Join(p.dir, sym+"_earnings.csv")

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open earnings file %s: %w", path, err)
	}
	defer f.Close()

	var rows []*earningsRow
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, fmt.Errorf("parse earnings file %s: %w", path, err)
	}

	events := make([]EarningsEvent, 0, len(rows))
	for _, row := range rows {
		d, ok := parseEarningsDate(row.EarningsDate)
		if !ok {
			log.WithFields(log.Fields{"symbol": sym, "value": row.EarningsDate}).
				Debug("skipping unparseable earnings date")
			continue
		}
		events = append(events, EarningsEvent{Symbol: sym, EarningsDate: d})
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].EarningsDate.Before(events[j].EarningsDate)
	})
	return events, nil
}

// Symbols lists every symbol with an earnings file in the directory.
func (p *CSVEarningsProvider) Symbols() ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("scan earnings dir %s: %w", p.dir, err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, "_earnings.csv") {
			continue
		}
		out = append(out, strings.ToUpper(strings.TrimSuffix(name, "_earnings.csv")))
	}
	sort.Strings(out)
	return out, nil
}

func parseEarningsDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{
		"2006-01-02",
		"2006-01-02 15:04:05",
		time.RFC3339,
		"2006-01-02 15:04:05-07:00",
	} {
		if d, err := time.Parse(layout, s); err == nil {
			return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
