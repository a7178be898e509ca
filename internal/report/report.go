// Package report exports crush records for downstream consumers. The core
// has no opinion on serialization; this is the CSV/JSON boundary.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"

	"github.com/contactkeval/iv-crush/internal/analysis"
)

// WriteCSV writes all records to <dir>/<name>.csv via a temp file and rename,
// so readers never observe a partially written export.
func WriteCSV(records []analysis.CrushRecord, dir, name string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".report-*")
	if err != nil {
		return err
	}
	if err := gocsv.Marshal(records, tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("marshal csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	path := filepath.Join(dir, name+".csv")
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	log.WithFields(log.Fields{"path": path, "rows": len(records)}).Info("wrote csv report")
	return nil
}

// WriteJSON writes the records as a single JSON array next to the CSV.
func WriteJSON(records []analysis.CrushRecord, dir, name string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}

	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".report-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	path := filepath.Join(dir, name+".json")
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	log.WithFields(log.Fields{"path": path, "rows": len(records)}).Info("wrote json report")
	return nil
}
