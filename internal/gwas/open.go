package gwas

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/inodb/bann/internal/vcf"
)

// Input formats.
const (
	FormatAuto  = ""
	FormatTable = "table"
	FormatVCF   = "vcf"
)

// sampleSize is the number of bytes inspected for format and delimiter detection.
const sampleSize = 16 * 1024

// vcfHeaderPrefix is the fixed column prefix of a VCF #CHROM line.
const vcfHeaderPrefix = "#CHROM\tPOS\tID\tREF\tALT"

// Options configures how summary statistics are read.
type Options struct {
	Format    string  // FormatAuto, FormatTable or FormatVCF
	Delimiter rune    // table delimiter; zero to detect
	IDColumn  string  // explicit SNP ID column name for tables
	MaxP      float64 // skip SNPs with p > MaxP; <= 0 disables the filter
}

// Open opens a summary statistics file and returns a Source for it.
// Gzipped input is detected by magic bytes; "-" reads stdin.
func Open(path string, opts Options) (Source, error) {
	var (
		r       io.Reader
		closers []io.Closer
	)

	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open summary statistics: %w", err)
		}
		r = f
		closers = append(closers, f)
	}

	br := bufio.NewReaderSize(r, 64*1024)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		closeAll(closers)
		return nil, fmt.Errorf("read summary statistics: %w", err)
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			closeAll(closers)
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		closers = append([]io.Closer{gz}, closers...)
		br = bufio.NewReaderSize(gz, 64*1024)
	}

	src, err := NewSource(br, opts)
	if err != nil {
		closeAll(closers)
		return nil, err
	}

	switch s := src.(type) {
	case *TableReader:
		s.closer = multiCloser(closers)
	case *vcfSource:
		s.closer = multiCloser(closers)
	}
	return src, nil
}

// NewSource creates a Source reading from r, detecting the format if needed.
func NewSource(r io.Reader, opts Options) (Source, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReaderSize(r, 64*1024)
	}

	format := opts.Format
	if format == FormatAuto {
		sample, err := br.Peek(sampleSize)
		if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
			return nil, fmt.Errorf("read sample: %w", err)
		}
		format = DetectFormat(sample)
	}

	switch format {
	case FormatVCF:
		p, err := vcf.NewParserFromReader(br)
		if err != nil {
			return nil, err
		}
		return &vcfSource{parser: p}, nil
	case FormatTable:
		return NewTableReader(br, opts.Delimiter, opts.IDColumn)
	default:
		return nil, fmt.Errorf("unknown input format %q", format)
	}
}

// DetectFormat guesses whether a sample is GWAS-VCF or a delimited table.
func DetectFormat(sample []byte) string {
	for _, line := range strings.Split(string(sample), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, "##fileformat=VCF") {
			return FormatVCF
		}
		if strings.HasPrefix(line, "##") || line == "" {
			continue
		}
		if strings.HasPrefix(line, vcfHeaderPrefix) {
			return FormatVCF
		}
		break
	}
	return FormatTable
}

// vcfSource adapts a VCF parser to the Source interface.
type vcfSource struct {
	parser *vcf.Parser
	closer io.Closer
}

func (s *vcfSource) Next() (*SNP, error) {
	v, err := s.parser.Next()
	if err != nil || v == nil {
		return nil, err
	}

	snp := &SNP{
		ID:    v.ID,
		Chrom: NormalizeChrom(v.Chrom),
		Pos:   v.Pos,
		P:     v.PValue(),
	}
	if !v.HasID() {
		snp.ID = LocusID(snp.Chrom, snp.Pos)
	}
	return snp, nil
}

func (s *vcfSource) LineNumber() int {
	return s.parser.LineNumber()
}

func (s *vcfSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func closeAll(closers []io.Closer) {
	_ = multiCloser(closers).Close()
}
