package geneset

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultPath is the MSigDB human gene symbol collection shipped with BANN.
const DefaultPath = "BANN/data/msigdb.v2025.1.Hs.symbols.gmt"

// Options filters gene sets while loading. Zero values disable a bound.
type Options struct {
	MinSize int
	MaxSize int
}

func (o Options) keep(size int) bool {
	if o.MinSize > 0 && size < o.MinSize {
		return false
	}
	if o.MaxSize > 0 && size > o.MaxSize {
		return false
	}
	return true
}

// Stats summarizes a GMT load.
type Stats struct {
	Lines          int // gene set lines read
	Kept           int // sets in the collection
	SizeFiltered   int // sets dropped by Options
	DuplicateGenes int // repeated symbols dropped within a set
}

// ReadPathwayFile loads a GMT gene set file. Gzipped files are detected
// by magic bytes.
func ReadPathwayFile(path string, opts Options) (*Collection, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open pathway file: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, Stats{}, fmt.Errorf("read pathway file: %w", err)
	}

	var reader io.Reader = br
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, Stats{}, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	return Parse(reader, opts)
}

// Parse reads GMT content: one gene set per line as
// name<TAB>description<TAB>gene1<TAB>gene2...
func Parse(r io.Reader, opts Options) (*Collection, Stats, error) {
	scanner := bufio.NewScanner(r)
	// MSigDB lines for large sets exceed the default token size
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 16*1024*1024)

	var (
		stats Stats
		sets  []*GeneSet
	)
	firstLine := make(map[string]int)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")

		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		set, dups, err := parseLine(line, lineNum)
		if err != nil {
			return nil, stats, err
		}
		stats.Lines++
		stats.DuplicateGenes += dups

		if prev, ok := firstLine[set.Name]; ok {
			return nil, stats, &ParseError{
				Line:    lineNum,
				Message: fmt.Sprintf("duplicate gene set name %q (first defined at line %d)", set.Name, prev),
			}
		}
		firstLine[set.Name] = lineNum

		if !opts.keep(set.Size()) {
			stats.SizeFiltered++
			continue
		}
		sets = append(sets, set)
	}

	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("scan GMT: %w", err)
	}

	c, err := NewCollection(sets)
	if err != nil {
		return nil, stats, err
	}
	stats.Kept = c.Len()
	return c, stats, nil
}

// parseLine parses a single GMT line and reports how many repeated symbols were dropped.
func parseLine(line string, lineNum int) (*GeneSet, int, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 2 {
		return nil, 0, &ParseError{
			Line:    lineNum,
			Message: fmt.Sprintf("expected at least 2 fields, got %d", len(fields)),
		}
	}

	name := strings.TrimSpace(fields[0])
	if name == "" {
		return nil, 0, &ParseError{Line: lineNum, Message: "empty gene set name"}
	}

	set := &GeneSet{
		Name:        name,
		Description: strings.TrimSpace(fields[1]),
		Genes:       make([]string, 0, len(fields)-2),
	}

	dups := 0
	seen := make(map[string]struct{}, len(fields)-2)
	for _, g := range fields[2:] {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		if _, ok := seen[g]; ok {
			dups++
			continue
		}
		seen[g] = struct{}{}
		set.Genes = append(set.Genes, g)
	}

	return set, dups, nil
}

// ParseError represents an error during GMT parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("gmt parse error at line %d: %s", e.Line, e.Message)
}
