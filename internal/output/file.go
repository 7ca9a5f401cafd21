package output

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pierrec/lz4/v4"
)

// Create opens path for writing. A ".gz" suffix selects gzip compression and
// ".lz4" selects lz4 frames. An empty path or "-" writes to stdout.
func Create(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}

	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".gz"):
		return &stackedWriter{Writer: gzip.NewWriter(f), file: f}, nil
	case strings.HasSuffix(lower, ".lz4"):
		return &stackedWriter{Writer: lz4.NewWriter(f), file: f}, nil
	default:
		return f, nil
	}
}

// stackedWriter closes the compressor before the file beneath it.
type stackedWriter struct {
	io.Writer
	file *os.File
}

func (s *stackedWriter) Close() error {
	var err error
	if c, ok := s.Writer.(io.Closer); ok {
		err = c.Close()
	}
	if ferr := s.file.Close(); err == nil {
		err = ferr
	}
	return err
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
