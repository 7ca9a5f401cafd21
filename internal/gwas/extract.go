package gwas

import "fmt"

// Stats summarizes an extraction.
type Stats struct {
	Rows       int // data rows read
	Unique     int // SNPs returned
	Duplicates int // rows whose ID was already seen
	Filtered   int // rows dropped by the p-value filter
}

// Extract reads every row of src and returns the unique SNPs in order of
// first occurrence. Later rows with an already seen ID are dropped.
func Extract(src Source, opts Options) ([]SNP, Stats, error) {
	var (
		stats Stats
		snps  []SNP
	)
	seen := make(map[string]struct{})

	for {
		s, err := src.Next()
		if err != nil {
			return nil, stats, fmt.Errorf("read SNP: %w", err)
		}
		if s == nil {
			break
		}
		stats.Rows++

		if opts.MaxP > 0 && s.HasP() && s.P > opts.MaxP {
			stats.Filtered++
			continue
		}

		if _, ok := seen[s.ID]; ok {
			stats.Duplicates++
			continue
		}
		seen[s.ID] = struct{}{}
		snps = append(snps, *s)
	}

	stats.Unique = len(snps)
	return snps, stats, nil
}

// ExtractFile opens path and extracts its unique SNPs.
func ExtractFile(path string, opts Options) ([]SNP, Stats, error) {
	src, err := Open(path, opts)
	if err != nil {
		return nil, Stats{}, err
	}
	defer src.Close()

	return Extract(src, opts)
}

// IDs returns the identifiers of snps in order.
func IDs(snps []SNP) []string {
	ids := make([]string, len(snps))
	for i, s := range snps {
		ids[i] = s.ID
	}
	return ids
}
