package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// GENCODE FTP URLs
var gencodeBaseURL = "https://ftp.ebi.ac.uk/pub/databases/gencode/Gencode_human/release_46"

const gencodeVersion = "v46"

// gencodeGTFURL returns the GTF URL for the given assembly.
func gencodeGTFURL(assembly string) string {
	if strings.ToUpper(assembly) == "GRCH37" {
		return fmt.Sprintf("%s/GRCh37_mapping/gencode.%slift37.annotation.gtf.gz", gencodeBaseURL, gencodeVersion)
	}
	return fmt.Sprintf("%s/gencode.%s.annotation.gtf.gz", gencodeBaseURL, gencodeVersion)
}

func newDownloadCmd(a *app) *cobra.Command {
	var (
		assembly  string
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download GENCODE gene annotations",
		Long: `Download the GENCODE gene annotation GTF used for positional SNP to gene
mapping. 'bann annotate' picks it up automatically when --gtf is not given.`,
		Example: `  bann download
  bann download --assembly GRCh37
  bann download --output /data/gencode`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch strings.ToUpper(assembly) {
			case "GRCH37", "GRCH38":
			default:
				return &usageError{fmt.Errorf("unknown assembly %q (want GRCh37 or GRCh38)", assembly)}
			}

			if outputDir == "" {
				outputDir = defaultDataDir()
				if outputDir == "" {
					return fmt.Errorf("cannot determine home directory")
				}
			}
			destDir := filepath.Join(outputDir, strings.ToLower(assembly))
			if err := os.MkdirAll(destDir, 0755); err != nil {
				return fmt.Errorf("create directory %s: %w", destDir, err)
			}

			url := gencodeGTFURL(assembly)
			dest := filepath.Join(destDir, filepath.Base(url))
			w := cmd.OutOrStdout()

			fmt.Fprintf(w, "Downloading GENCODE %s annotations for %s...\n", gencodeVersion, assembly)
			fmt.Fprintf(w, "Destination: %s\n", destDir)

			if info, err := os.Stat(dest); err == nil {
				fmt.Fprintf(w, "  %s already exists (%s), skipping\n", filepath.Base(dest), formatSize(info.Size()))
				return nil
			}

			start := time.Now()
			n, err := downloadFile(cmd.Context(), url, dest)
			if err != nil {
				return fmt.Errorf("download GTF: %w", err)
			}
			a.logger.Debug("downloaded file",
				zap.String("url", url),
				zap.Int64("bytes", n),
				zap.Duration("elapsed", time.Since(start)))

			fmt.Fprintf(w, "  Done: %s\n", formatSize(n))
			return nil
		},
	}
	cmd.Flags().StringVar(&assembly, "assembly", "GRCh38", "Genome assembly: GRCh37 or GRCh38")
	cmd.Flags().StringVar(&outputDir, "output", "", "Output directory (default: ~/.bann/)")

	return cmd
}

// downloadFile downloads url to destPath through a temporary file and
// returns the number of bytes written.
func downloadFile(ctx context.Context, url, destPath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	client := &http.Client{
		Timeout: 30 * time.Minute, // Long timeout for large files
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}

	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("rename file: %w", err)
	}
	return n, nil
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// defaultDataDir returns ~/.bann, or "" when the home directory is unknown.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".bann")
}

// findGENCODEGTF looks for a downloaded GENCODE GTF for assembly.
func findGENCODEGTF(assembly string) (string, bool) {
	dir := defaultDataDir()
	if dir == "" {
		return "", false
	}

	pattern := "gencode.v*.annotation.gtf.gz"
	if strings.EqualFold(assembly, "GRCh37") {
		pattern = "gencode.v*lift37.annotation.gtf.gz"
	}

	matches, err := filepath.Glob(filepath.Join(dir, strings.ToLower(assembly), pattern))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	return matches[0], true
}
