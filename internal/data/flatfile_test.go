package data

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshotCSV = `ticker,open,high,low,close
O:AAPL240426C00190000,5.10,5.40,4.95,5.20
O:AAPL240426P00190000,4.70,4.95,4.60,4.80
O:AA240426C00030000,1.00,1.10,0.95,1.05
not-a-symbol,1,1,1,1
`

func writeSnapshotDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2024-01-24.csv"), []byte(snapshotCSV), 0o644))
	return dir
}

func TestFlatFileLoadRows(t *testing.T) {
	p := NewFlatFileProvider(writeSnapshotDir(t), "")
	date := time.Date(2024, 1, 24, 0, 0, 0, 0, time.UTC)

	require.True(t, p.HasSnapshot(date))
	require.False(t, p.HasSnapshot(date.AddDate(0, 0, 1)))

	rows, ok, err := p.LoadRows(context.Background(), "AAPL", date)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, rows, 2, "AA and the malformed row must be excluded")

	call := rows[0]
	assert.Equal(t, "O:AAPL240426C00190000", call.Symbol)
	assert.Equal(t, Call, call.Type)
	assert.Equal(t, 190.0, call.Strike)
	assert.Equal(t, 5.20, call.Close)
	assert.Equal(t, "2024-04-26", call.Expiry.Format("2006-01-02"))
}

func TestFlatFileMissingDate(t *testing.T) {
	p := NewFlatFileProvider(writeSnapshotDir(t), "")

	rows, ok, err := p.LoadRows(context.Background(), "AAPL", time.Date(2024, 1, 25, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, rows)
}

func TestFlatFileSnapshotDates(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"2024-01-26.csv", "2024-01-24.csv", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("ticker,open,high,low,close\n"), 0o644))
	}

	p := NewFlatFileProvider(dir, "")
	dates, err := p.SnapshotDates()
	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.Equal(t, "2024-01-24", dates[0].Format("2006-01-02"))
	assert.Equal(t, "2024-01-26", dates[1].Format("2006-01-02"))
}

func TestFlatFileGetDailyBars(t *testing.T) {
	dir := t.TempDir()
	bars := `date,open,high,low,close,volume
2024-01-02,184.2,186.0,183.9,185.6,48210000
2024-01-03,185.0,185.9,183.4,184.3,41350000
2024-01-04,183.9,184.5,182.7,183.1,45190000
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AAPL.csv"), []byte(bars), 0o644))

	p := NewFlatFileProvider("", dir)
	got, err := p.GetDailyBars(context.Background(),
		"aapl",
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 184.3, got[0].Close)
	assert.Equal(t, 183.1, got[1].Close)

	// an unknown symbol is empty, not an error
	missing, err := p.GetDailyBars(context.Background(), "MSFT", time.Time{}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestCSVEarningsProvider(t *testing.T) {
	dir := t.TempDir()
	csv := `EarningsDate
2024-04-25
2024-01-25 16:30:00
bogus
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AAPL_earnings.csv"), []byte(csv), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "MSFT_earnings.csv"), []byte("EarningsDate\n2024-01-30\n"), 0o644))

	p := NewCSVEarningsProvider(dir)

	events, err := p.GetEarningsEvents("aapl")
	require.NoError(t, err)
	require.Len(t, events, 2, "bogus date is skipped")
	assert.Equal(t, "2024-01-25", events[0].EarningsDate.Format("2006-01-02"))
	assert.Equal(t, "2024-04-25", events[1].EarningsDate.Format("2006-01-02"))
	assert.Equal(t, "AAPL", events[0].Symbol)

	symbols, err := p.Symbols()
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)

	_, err = p.GetEarningsEvents("TSLA")
	assert.Error(t, err, "missing earnings file is an error")
}
