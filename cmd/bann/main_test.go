package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSumstats = "SNP\tCHR\tBP\tP\n" +
		"rs1\t17\t7675000\t1e-8\n" +
		"rs2\t12\t25230000\t0.2\n" +
		"rs3\t1\t100\t0.5\n"

	testGMT = "APOPTOSIS\thttp://example.org/apoptosis\tTP53\n" +
		"KRAS_SIGNALING\thttp://example.org/kras\tKRAS\tEGFR\n" +
		"P53_PATHWAY\thttp://example.org/p53\tTP53\tMDM2\tCDKN1A\tBAX\n"

	testGTF = "17\tHAVANA\tgene\t7661779\t7687538\t.\t-\t.\tgene_id \"ENSG00000141510.18\"; gene_type \"protein_coding\"; gene_name \"TP53\";\n" +
		"12\tHAVANA\tgene\t25205246\t25250936\t.\t-\t.\tgene_id \"ENSG00000133703.14\"; gene_type \"protein_coding\"; gene_name \"KRAS\";\n"
)

type testEnv struct {
	dir      string
	sumstats string
	gmt      string
	gtf      string
}

// setup isolates the config from the user's home and writes test inputs.
func setup(t *testing.T) *testEnv {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	color.NoColor = true

	dir := t.TempDir()
	t.Setenv("HOME", dir)

	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
		return p
	}
	return &testEnv{
		dir:      dir,
		sumstats: write("sumstats.tsv", testSumstats),
		gmt:      write("sets.gmt", testGMT),
		gtf:      write("genes.gtf", testGTF),
	}
}

func execute(args ...string) (stdout, stderr string, code int) {
	viper.Reset()
	var out, errb bytes.Buffer
	code = run(args, &out, &errb)
	return out.String(), errb.String(), code
}

func TestVersion(t *testing.T) {
	setup(t)
	out, _, code := execute("--version")
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "bann version dev (none) built unknown\n", out)
}

func TestUsageErrors(t *testing.T) {
	setup(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"frobnicate"}},
		{"unknown flag", []string{"annotate", "--no-such-flag", "x"}},
		{"missing argument", []string{"annotate"}},
		{"bad mode", []string{"annotate", "--gtf", "g.gtf", "--mode", "weighted", "s.tsv"}},
		{"negative flank", []string{"annotate", "--gtf", "g.gtf", "--flank", "-10", "s.tsv"}},
		{"bad delimiter", []string{"annotate", "--gtf", "g.gtf", "--delimiter", "colon", "s.tsv"}},
		{"runs without store", []string{"runs", "list"}},
		{"too many args", []string{"pathways", "head", "a.gmt", "b.gmt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, code := execute(tt.args...)
			assert.Equal(t, ExitUsage, code)
			assert.Contains(t, stderr, "Error: ")
		})
	}
}

func TestAnnotate(t *testing.T) {
	env := setup(t)
	out := filepath.Join(env.dir, "matrix.tsv")

	_, stderr, code := execute("annotate", "--gtf", env.gtf, "--genesets", env.gmt, "-o", out, env.sumstats)
	require.Equal(t, ExitSuccess, code, stderr)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "SNP\tAPOPTOSIS\tKRAS_SIGNALING\tP53_PATHWAY\n"+
		"rs1\t1\t0\t1\n"+
		"rs2\t0\t1\t0\n"+
		"rs3\t0\t0\t0\n", string(data))

	assert.Contains(t, stderr, "unique SNPs:      3")
	assert.Contains(t, stderr, "dimensions:       3 x 3")
}

func TestAnnotate_MissingInput(t *testing.T) {
	env := setup(t)

	_, stderr, code := execute("annotate", "--gtf", env.gtf, "--genesets", env.gmt,
		"-o", filepath.Join(env.dir, "m.tsv"), filepath.Join(env.dir, "none.tsv"))
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "Hint: Check that the file path is correct")
}

func TestAnnotate_ConfigFile(t *testing.T) {
	env := setup(t)
	cfg := "genes:\n  gtf: " + env.gtf + "\ngenesets:\n  path: " + env.gmt + "\nmatrix:\n  mode: count\n"
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, ".bann.yaml"), []byte(cfg), 0644))
	out := filepath.Join(env.dir, "matrix.tsv")

	_, stderr, code := execute("annotate", "--format", "triplet", "-o", out, env.sumstats)
	require.Equal(t, ExitSuccess, code, stderr)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "SNP\tSET\tVALUE\n"+
		"rs1\tAPOPTOSIS\t1\n"+
		"rs1\tP53_PATHWAY\t1\n"+
		"rs2\tKRAS_SIGNALING\t1\n", string(data))
}

func TestAnnotate_EnvOverride(t *testing.T) {
	env := setup(t)
	t.Setenv("BANN_GENES_GTF", env.gtf)
	out := filepath.Join(env.dir, "matrix.tsv")

	_, stderr, code := execute("annotate", "--genesets", env.gmt, "--kind", "gene", "-o", out, env.sumstats)
	require.Equal(t, ExitSuccess, code, stderr)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "SNP\tKRAS\tTP53\n"))
}

func TestRuns(t *testing.T) {
	env := setup(t)
	store := filepath.Join(env.dir, "runs.duckdb")

	_, stderr, code := execute("annotate", "--gtf", env.gtf, "--genesets", env.gmt,
		"-o", filepath.Join(env.dir, "m.tsv"), "--store", store, env.sumstats)
	require.Equal(t, ExitSuccess, code, stderr)

	out, stderr, code := execute("runs", "list", "--store", store)
	require.Equal(t, ExitSuccess, code, stderr)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	id := strings.Fields(lines[1])[0]

	out, _, code = execute("runs", "show", "--store", store, "--snp", "rs1", id)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "APOPTOSIS\t1\nP53_PATHWAY\t1\n", out)

	out, _, code = execute("runs", "show", "--store", store, "--pathway", "KRAS_SIGNALING", id)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "rs2\t1\n", out)

	out, _, code = execute("runs", "show", "--store", store, "-f", "triplet", id)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "SNP\tSET\tVALUE\nrs1\tAPOPTOSIS\t1\nrs1\tP53_PATHWAY\t1\nrs2\tKRAS_SIGNALING\t1\n", out)

	out, _, code = execute("runs", "show", "--store", store, id)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "Run "+id)
	assert.Contains(t, out, "size:     3 x 3 (3 non-zero)")

	_, _, code = execute("runs", "delete", "--store", store, id)
	require.Equal(t, ExitSuccess, code)

	_, stderr, code = execute("runs", "show", "--store", store, id)
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, "run not found")
}

func TestPathwaysHead(t *testing.T) {
	env := setup(t)

	out, _, code := execute("pathways", "head", env.gmt)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "NAME\tDESCRIPTION\tSIZE\tGENES\n"+
		"APOPTOSIS\thttp://example.org/apoptosis\t1\tTP53\n", out)

	out, _, code = execute("pathways", "head", "-n", "5", env.gmt)
	require.Equal(t, ExitSuccess, code)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 4)
}

func TestPathwaysStats(t *testing.T) {
	env := setup(t)

	out, _, code := execute("pathways", "stats", env.gmt)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "sets:            3")
	assert.Contains(t, out, "distinct genes:  6")
	assert.Contains(t, out, "min size:        1")
	assert.Contains(t, out, "mean size:       2.3")
	assert.Contains(t, out, "max size:        4")
}

func TestPathwaysGene(t *testing.T) {
	env := setup(t)

	out, _, code := execute("pathways", "gene", "TP53", env.gmt)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "APOPTOSIS\nP53_PATHWAY\n", out)

	out, _, code = execute("pathways", "gene", "NOTAGENE", env.gmt)
	require.Equal(t, ExitSuccess, code)
	assert.Empty(t, out)
}

func TestConfigSetGet(t *testing.T) {
	env := setup(t)

	out, _, code := execute("config")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "No configuration set")

	out, _, code = execute("config", "set", "matrix.workers", "4")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "Set matrix.workers = 4")

	_, _, code = execute("config", "set", "genes.gtf", env.gtf)
	require.Equal(t, ExitSuccess, code)

	data, err := os.ReadFile(filepath.Join(env.dir, ".bann.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "workers: 4")
	assert.NotContains(t, string(data), "genesets")

	out, _, code = execute("config", "get", "matrix.workers")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "4\n", out)

	out, _, code = execute("config")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "gtf: "+env.gtf)

	_, stderr, code := execute("config", "get", "no.such.key")
	assert.Equal(t, ExitError, code)
	assert.Contains(t, stderr, `key "no.such.key" is not set`)
}
