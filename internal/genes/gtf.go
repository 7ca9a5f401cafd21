package genes

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/inodb/bann/internal/gwas"
)

// GTFLoader loads gene coordinates from GENCODE GTF files.
type GTFLoader struct {
	path     string
	biotypes map[string]bool
}

// NewGTFLoader creates a new GTF loader. When biotypes is non-empty only
// genes with one of those gene_type values are loaded.
func NewGTFLoader(path string, biotypes ...string) *GTFLoader {
	l := &GTFLoader{path: path}
	if len(biotypes) > 0 {
		l.biotypes = make(map[string]bool, len(biotypes))
		for _, b := range biotypes {
			l.biotypes[b] = true
		}
	}
	return l
}

// Load reads all gene features from the GTF file.
func (l *GTFLoader) Load() ([]*Gene, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open GTF file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f

	// Handle gzipped files
	if strings.HasSuffix(l.path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	return l.parseGTF(reader)
}

// gtfFeature represents a parsed GTF line.
type gtfFeature struct {
	chrom       string
	featureType string
	start       int64
	end         int64
	strand      string
	attributes  map[string]string
}

// parseGTF parses GTF content and returns gene records in file order.
func (l *GTFLoader) parseGTF(reader io.Reader) ([]*Gene, error) {
	scanner := bufio.NewScanner(reader)
	// Increase buffer size for long lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var genes []*Gene
	for scanner.Scan() {
		line := scanner.Text()

		// Skip comments and empty lines
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		feat, err := parseLine(line)
		if err != nil {
			continue // Skip malformed lines
		}
		if feat.featureType != "gene" {
			continue
		}

		biotype := feat.attributes["gene_type"]
		if biotype == "" {
			biotype = feat.attributes["gene_biotype"] // Ensembl GTF
		}
		if l.biotypes != nil && !l.biotypes[biotype] {
			continue
		}

		genes = append(genes, &Gene{
			ID:      stripVersion(feat.attributes["gene_id"]),
			Name:    feat.attributes["gene_name"],
			Chrom:   feat.chrom,
			Start:   feat.start,
			End:     feat.end,
			Strand:  parseStrand(feat.strand),
			Biotype: biotype,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan GTF: %w", err)
	}

	return genes, nil
}

// parseLine parses a single GTF line.
func parseLine(line string) (*gtfFeature, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 9 {
		return nil, fmt.Errorf("invalid GTF line: expected 9 fields, got %d", len(fields))
	}

	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse start: %w", err)
	}

	end, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse end: %w", err)
	}

	return &gtfFeature{
		chrom:       gwas.NormalizeChrom(fields[0]),
		featureType: fields[2],
		start:       start,
		end:         end,
		strand:      fields[6],
		attributes:  parseAttributes(fields[8]),
	}, nil
}

// parseAttributes parses GTF attribute column.
// Format: key "value"; key "value"; ...
func parseAttributes(attrStr string) map[string]string {
	attrs := make(map[string]string)

	for _, part := range strings.Split(attrStr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, value, ok := strings.Cut(part, " ")
		if !ok {
			continue
		}

		attrs[key] = strings.Trim(strings.TrimSpace(value), "\"")
	}

	return attrs
}

// parseStrand converts strand string to int8.
func parseStrand(s string) int8 {
	if s == "-" {
		return -1
	}
	return 1
}

// stripVersion removes the version suffix from an Ensembl ID.
// e.g., "ENSG00000133703.14" -> "ENSG00000133703"
func stripVersion(id string) string {
	if idx := strings.LastIndex(id, "."); idx != -1 {
		return id[:idx]
	}
	return id
}
