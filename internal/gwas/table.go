package gwas

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Column name aliases recognized in summary statistics headers (upper case).
var (
	IDColumns    = []string{"SNP", "ID", "RSID", "RS_ID", "SNPID", "MARKERNAME", "VARIANT_ID", "MARKER"}
	ChromColumns = []string{"CHR", "CHROM", "CHROMOSOME"}
	PosColumns   = []string{"BP", "POS", "GENPOS", "POSITION", "BASE_PAIR_LOCATION"}
	PColumns     = []string{"P", "PVAL", "P_VALUE", "PVALUE", "P_BOLT_LMM"}
)

// ColumnIndices holds the indices of the columns the extractor reads.
// A value of -1 means the column is absent.
type ColumnIndices struct {
	ID    int
	Chrom int
	Pos   int
	P     int
}

// TableReader reads SNPs from a delimited summary statistics table.
type TableReader struct {
	reader     *bufio.Reader
	closer     io.Closer
	delim      rune
	lineNumber int
	header     []string
	columns    ColumnIndices
	minFields  int
}

// NewTableReader creates a table reader. When delim is zero the delimiter is
// detected from the first bytes of r. idColumn, if non-empty, names the ID
// column explicitly.
func NewTableReader(r io.Reader, delim rune, idColumn string) (*TableReader, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReaderSize(r, 64*1024)
	}

	if delim == 0 {
		sample, err := br.Peek(sampleSize)
		if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
			return nil, fmt.Errorf("read sample: %w", err)
		}
		delim = DetectDelimiter(sample)
	}

	tr := &TableReader{reader: br, delim: delim}
	if err := tr.parseHeader(idColumn); err != nil {
		return nil, err
	}
	return tr, nil
}

// parseHeader skips "##" meta lines and maps the header row to column indices.
func (tr *TableReader) parseHeader(idColumn string) error {
	for {
		line, err := tr.readLine()
		if err != nil {
			if err == io.EOF {
				return &ParseError{Line: tr.lineNumber, Message: "no header line found"}
			}
			return fmt.Errorf("read header: %w", err)
		}

		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "##") {
			continue
		}

		header, err := splitFields(strings.TrimPrefix(line, "#"), tr.delim)
		if err != nil {
			return &ParseError{Line: tr.lineNumber, Message: fmt.Sprintf("invalid header: %v", err)}
		}
		tr.header = header
		return tr.parseColumnIndices(idColumn)
	}
}

func (tr *TableReader) parseColumnIndices(idColumn string) error {
	tr.columns = ColumnIndices{
		ID:    -1,
		Chrom: -1,
		Pos:   -1,
		P:     -1,
	}

	if idColumn != "" {
		tr.columns.ID = findColumn(tr.header, []string{strings.ToUpper(idColumn)})
		if tr.columns.ID == -1 {
			return &ParseError{
				Line:    tr.lineNumber,
				Message: fmt.Sprintf("column %q not found in header", idColumn),
			}
		}
	} else {
		tr.columns.ID = findColumn(tr.header, IDColumns)
	}
	tr.columns.Chrom = findColumn(tr.header, ChromColumns)
	tr.columns.Pos = findColumn(tr.header, PosColumns)
	tr.columns.P = findColumn(tr.header, PColumns)

	hasLocus := tr.columns.Chrom != -1 && tr.columns.Pos != -1
	if tr.columns.ID == -1 && !hasLocus {
		return &ParseError{
			Line:    tr.lineNumber,
			Message: "no SNP identifier column and no chromosome/position columns in header",
		}
	}

	tr.minFields = max(tr.columns.ID, tr.columns.Chrom, tr.columns.Pos, tr.columns.P) + 1
	return nil
}

// findColumn returns the index of the first header field matching any alias.
// Aliases are tried in order so that "SNP" wins over "ID" when both exist.
func findColumn(header []string, aliases []string) int {
	for _, alias := range aliases {
		for i, h := range header {
			if strings.ToUpper(h) == alias {
				return i
			}
		}
	}
	return -1
}

// Next reads the next SNP from the table.
// Returns nil, nil when there are no more rows.
func (tr *TableReader) Next() (*SNP, error) {
	for {
		line, err := tr.readLine()
		if err != nil {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("read line: %w", err)
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		return tr.parseLine(line)
	}
}

func (tr *TableReader) parseLine(line string) (*SNP, error) {
	fields, err := splitFields(line, tr.delim)
	if err != nil {
		return nil, &ParseError{Line: tr.lineNumber, Message: fmt.Sprintf("invalid row: %v", err)}
	}
	if len(fields) < tr.minFields {
		return nil, &ParseError{
			Line:    tr.lineNumber,
			Message: fmt.Sprintf("expected at least %d columns, found %d", tr.minFields, len(fields)),
		}
	}

	s := &SNP{P: math.NaN()}

	if tr.columns.Chrom != -1 {
		s.Chrom = NormalizeChrom(fields[tr.columns.Chrom])
	}
	if tr.columns.Pos != -1 {
		pos, err := strconv.ParseInt(fields[tr.columns.Pos], 10, 64)
		if err != nil {
			return nil, &ParseError{
				Line:    tr.lineNumber,
				Message: fmt.Sprintf("invalid position: %s", fields[tr.columns.Pos]),
			}
		}
		s.Pos = pos
	}
	if tr.columns.P != -1 {
		if p, err := strconv.ParseFloat(fields[tr.columns.P], 64); err == nil {
			s.P = p
		}
	}

	if tr.columns.ID != -1 {
		s.ID = fields[tr.columns.ID]
	}
	if s.ID == "" || s.ID == "." {
		if !s.HasLocus() {
			return nil, &ParseError{
				Line:    tr.lineNumber,
				Message: "row has no SNP identifier and no position",
			}
		}
		s.ID = LocusID(s.Chrom, s.Pos)
	}

	return s, nil
}

// readLine returns the next line without its terminator. A final line
// lacking a newline is returned before io.EOF.
func (tr *TableReader) readLine() (string, error) {
	line, err := tr.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	tr.lineNumber++
	return strings.TrimRight(line, "\r\n"), nil
}

// Columns returns the resolved column indices.
func (tr *TableReader) Columns() ColumnIndices {
	return tr.columns
}

// Header returns the parsed header fields.
func (tr *TableReader) Header() []string {
	return tr.header
}

// Delimiter returns the delimiter in use.
func (tr *TableReader) Delimiter() rune {
	return tr.delim
}

// LineNumber returns the current line number being processed.
func (tr *TableReader) LineNumber() int {
	return tr.lineNumber
}

// Close closes the underlying input if the reader owns it.
func (tr *TableReader) Close() error {
	if tr.closer != nil {
		return tr.closer.Close()
	}
	return nil
}
