package adapter

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	m "github.com/mouse-blink/goevolve/internal/model"
)

// ReportStore persists and retrieves search reports.
type ReportStore interface {
	SaveReport(dir m.Path, report m.SearchReport) (m.Path, error)
	LoadReports(dir m.Path) ([]m.SearchReport, error)
}

// LocalReportStore writes one YAML file per report, named after a hash of
// the workflow and target so a rerun replaces the previous report.
type LocalReportStore struct {
	fs FSAdapter
}

// NewReportStore constructs a LocalReportStore.
func NewReportStore(fs FSAdapter) *LocalReportStore {
	return &LocalReportStore{fs: fs}
}

// SaveReport writes report under dir and returns the file written.
func (rs *LocalReportStore) SaveReport(dir m.Path, report m.SearchReport) (m.Path, error) {
	if err := rs.fs.MkdirAll(dir); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("marshal report for %s: %w", report.Target, err)
	}

	path := rs.fs.JoinPath(string(dir), rs.reportKey(report)+".yaml")
	if err := rs.fs.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write report %s: %w", path, err)
	}

	return path, nil
}

// LoadReports reads every report under dir, ordered by target.
func (rs *LocalReportStore) LoadReports(dir m.Path) ([]m.SearchReport, error) {
	var reports []m.SearchReport

	err := rs.fs.Walk(dir, false, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() || filepath.Ext(path) != ".yaml" {
			return nil
		}

		data, err := rs.fs.ReadFile(m.Path(path))
		if err != nil {
			return err
		}

		var report m.SearchReport
		if err := yaml.Unmarshal(data, &report); err != nil {
			return fmt.Errorf("decode report %s: %w", path, err)
		}

		reports = append(reports, report)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load reports from %s: %w", dir, err)
	}

	sort.SliceStable(reports, func(i, j int) bool {
		if reports[i].Target != reports[j].Target {
			return reports[i].Target < reports[j].Target
		}

		return reports[i].Workflow < reports[j].Workflow
	})

	return reports, nil
}

func (rs *LocalReportStore) reportKey(report m.SearchReport) string {
	sum := sha256.Sum256([]byte(string(report.Workflow) + "\x00" + string(report.Target)))
	return hex.EncodeToString(sum[:8])
}
