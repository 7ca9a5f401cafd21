// Package vcf provides VCF file parsing functionality.
package vcf

import (
	"math"
	"strconv"
	"strings"
)

// Variant represents a single record from a VCF file.
type Variant struct {
	Chrom   string            // Chromosome name (e.g., "12", "chr12")
	Pos     int64             // 1-based genomic position
	ID      string            // Variant identifier (e.g., rs ID)
	Ref     string            // Reference allele
	Alt     string            // Alternate allele(s), comma separated
	Info    map[string]string // INFO field key-value pairs; flags map to ""
	Format  []string          // FORMAT keys, nil if absent
	Samples [][]string        // per-sample values aligned with Format
}

// HasID reports whether the record carries a usable identifier.
func (v *Variant) HasID() bool {
	return v.ID != "" && v.ID != "."
}

// SampleValue returns the FORMAT value for key in the given sample.
func (v *Variant) SampleValue(sample int, key string) (string, bool) {
	if sample < 0 || sample >= len(v.Samples) {
		return "", false
	}
	for i, k := range v.Format {
		if k != key {
			continue
		}
		if i >= len(v.Samples[sample]) {
			return "", false
		}
		return v.Samples[sample][i], true
	}
	return "", false
}

// PValue returns the association p-value stored in a GWAS-VCF record.
// GWAS-VCF keeps -log10(p) in the LP FORMAT field of the first sample;
// a plain "P" INFO key is accepted as well. NaN is returned when neither is present.
func (v *Variant) PValue() float64 {
	if lp, ok := v.SampleValue(0, "LP"); ok && lp != "." {
		if f, err := strconv.ParseFloat(lp, 64); err == nil {
			return math.Pow(10, -f)
		}
	}
	if p, ok := v.Info["P"]; ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(p), 64); err == nil {
			return f
		}
	}
	return math.NaN()
}
