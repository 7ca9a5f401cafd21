package duckdb

import (
	"os"
	"time"
)

// Input roles recorded for a run.
const (
	RoleSummaryStats = "summary_stats"
	RoleGeneSets     = "gene_sets"
	RoleGTF          = "gtf"
	RoleGeneTable    = "gene_table"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Role    string
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(role, path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Role:    role,
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime().UTC().Truncate(time.Microsecond),
	}, nil
}
