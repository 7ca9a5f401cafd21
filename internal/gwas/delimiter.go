package gwas

import (
	"bytes"
	"encoding/csv"
	"io"
	"strings"

	"github.com/csimplestring/go-csv/detector"
)

// Whitespace splits fields on runs of spaces and tabs (REGENIE, PLINK style).
const Whitespace = ' '

// preferredDelimiters lists the delimiters accepted from detection, in priority order.
var preferredDelimiters = []rune{'\t', ',', Whitespace, ';', '|'}

// DetectDelimiter returns the most likely field delimiter for a sample of a
// delimited file. Meta lines starting with "##" are ignored.
func DetectDelimiter(sample []byte) rune {
	var body bytes.Buffer
	for _, line := range strings.Split(string(sample), "\n") {
		if strings.HasPrefix(line, "##") {
			continue
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}

	candidates := detector.New().DetectDelimiter(bytes.NewReader(body.Bytes()), '"')
	found := make(map[rune]bool, len(candidates))
	for _, c := range candidates {
		if c != "" {
			found[rune(c[0])] = true
		}
	}
	for _, d := range preferredDelimiters {
		if found[d] {
			return d
		}
	}

	// Detection needs several consistent lines; fall back on the header.
	header, _, _ := strings.Cut(body.String(), "\n")
	switch {
	case strings.Contains(header, "\t"):
		return '\t'
	case strings.Contains(header, ","):
		return ','
	default:
		return Whitespace
	}
}

// splitFields splits a line with the given delimiter. Whitespace tables are
// split on runs of blanks; other delimiters follow CSV quoting rules.
func splitFields(line string, delim rune) ([]string, error) {
	if delim == Whitespace {
		return strings.Fields(line), nil
	}

	r := csv.NewReader(strings.NewReader(line))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	fields, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields, nil
}
