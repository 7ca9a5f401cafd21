package main

import (
	"bytes"
	"compress/gzip"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func serveGENCODE(t *testing.T, body []byte) *atomic.Int32 {
	t.Helper()
	requests := new(atomic.Int32)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.URL.Path != "/gencode.v46.annotation.gtf.gz" {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	}))
	t.Cleanup(srv.Close)

	orig := gencodeBaseURL
	gencodeBaseURL = srv.URL
	t.Cleanup(func() { gencodeBaseURL = orig })
	return requests
}

func TestGencodeGTFURL(t *testing.T) {
	assert.Equal(t, gencodeBaseURL+"/gencode.v46.annotation.gtf.gz", gencodeGTFURL("GRCh38"))
	assert.Equal(t, gencodeBaseURL+"/GRCh37_mapping/gencode.v46lift37.annotation.gtf.gz", gencodeGTFURL("grch37"))
}

func TestDownloadThenAnnotate(t *testing.T) {
	env := setup(t)
	requests := serveGENCODE(t, gzipBytes(t, testGTF))

	out, stderr, code := execute("download")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, out, "Done:")

	gtf := filepath.Join(env.dir, ".bann", "grch38", "gencode.v46.annotation.gtf.gz")
	assert.FileExists(t, gtf)
	assert.NoFileExists(t, gtf+".tmp")

	out, _, code = execute("download")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "already exists")
	assert.Equal(t, int32(1), requests.Load())

	matrix := filepath.Join(env.dir, "matrix.tsv")
	_, stderr, code = execute("annotate", "--genesets", env.gmt, "-o", matrix, env.sumstats)
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stderr, "using downloaded GENCODE annotations")

	data, err := os.ReadFile(matrix)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rs1\t1\t0\t1\n")
}

func TestDownload_Errors(t *testing.T) {
	env := setup(t)
	serveGENCODE(t, nil)

	_, _, code := execute("download", "--assembly", "hg19")
	assert.Equal(t, ExitUsage, code)

	_, stderr, code := execute("download", "--assembly", "GRCh37", "--output", env.dir)
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "404")
	assert.NoFileExists(t, filepath.Join(env.dir, "grch37", "gencode.v46lift37.annotation.gtf.gz"))
}

func TestAnnotate_NoMapping(t *testing.T) {
	env := setup(t)

	_, stderr, code := execute("annotate", "--genesets", env.gmt, "-o", filepath.Join(env.dir, "m.tsv"), env.sumstats)
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "no SNP to gene mapping configured")
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.5 KB", formatSize(1536))
	assert.Equal(t, "2.0 MB", formatSize(2*1024*1024))
}
