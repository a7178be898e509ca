package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/iv-crush/internal/analysis"
	"github.com/contactkeval/iv-crush/internal/data"
)

func sampleRecords() []analysis.CrushRecord {
	ivPre, ivPost, crush := 0.45, 0.31, 0.14
	return []analysis.CrushRecord{{
		Symbol:      "AAPL",
		EarnDate:    "2024-01-25",
		AsOfPre:     "2024-01-24",
		AsOfPost:    "2024-01-26",
		Ticker:      "O:AAPL240426C00190000",
		Type:        data.Call,
		Strike:      190,
		Expiry:      "2024-04-26",
		Spot:        190,
		PricePre:    5.20,
		PricePost:   3.90,
		PriceChange: -1.30,
		IVPre:       &ivPre,
		IVPost:      &ivPost,
		IVCrush:     &crush,
	}}
}

func TestWriteCSV(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteCSV(sampleRecords(), dir, "iv_crush"))

	raw, err := os.ReadFile(filepath.Join(dir, "iv_crush.csv"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "iv_crush")
	assert.Contains(t, lines[1], "O:AAPL240426C00190000")
	assert.Contains(t, lines[1], "0.14")
}

func TestWriteCSVNilFieldsStayEmpty(t *testing.T) {
	dir := t.TempDir()
	recs := sampleRecords()
	recs[0].IVPre, recs[0].IVPost, recs[0].IVCrush = nil, nil, nil

	require.NoError(t, WriteCSV(recs, dir, "iv_crush"))

	raw, err := os.ReadFile(filepath.Join(dir, "iv_crush.csv"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "0.45", "an unsolved leg must not export a number")
}

func TestWriteJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteJSON(sampleRecords(), dir, "iv_crush"))

	raw, err := os.ReadFile(filepath.Join(dir, "iv_crush.json"))
	require.NoError(t, err)

	var got []analysis.CrushRecord
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "AAPL", got[0].Symbol)
	require.NotNil(t, got[0].IVCrush)
	assert.Equal(t, 0.14, *got[0].IVCrush)
}

func TestWriteNoPartialFileOnEmptyDirCreate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	require.NoError(t, WriteCSV(sampleRecords(), dir, "iv_crush"))
	_, err := os.Stat(filepath.Join(dir, "iv_crush.csv"))
	assert.NoError(t, err)
}
