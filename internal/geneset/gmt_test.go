package geneset

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGMT = `KEGG_GLYCOLYSIS	http://www.gsea-msigdb.org/gsea/msigdb/KEGG_GLYCOLYSIS	HK1	GCK	PFKM	HK1
# comment line
HALLMARK_APOPTOSIS	http://example.org/apoptosis	CASP3	TP53	BCL2

REACTOME_EMPTY	na
KRAS_SIGNALING	http://example.org/kras	KRAS	TP53	
`

func TestParse(t *testing.T) {
	c, stats, err := Parse(strings.NewReader(sampleGMT), Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"KEGG_GLYCOLYSIS", "HALLMARK_APOPTOSIS", "REACTOME_EMPTY", "KRAS_SIGNALING"}, c.Names())
	assert.Equal(t, 4, stats.Lines)
	assert.Equal(t, 4, stats.Kept)
	assert.Equal(t, 1, stats.DuplicateGenes)

	first := c.First()
	require.NotNil(t, first)
	assert.Equal(t, "KEGG_GLYCOLYSIS", first.Name)
	assert.Equal(t, "http://www.gsea-msigdb.org/gsea/msigdb/KEGG_GLYCOLYSIS", first.Description)
	assert.Equal(t, []string{"HK1", "GCK", "PFKM"}, first.Genes)

	assert.Equal(t, 0, c.Get("REACTOME_EMPTY").Size())
	assert.Equal(t, []string{"KRAS", "TP53"}, c.Get("KRAS_SIGNALING").Genes)
}

func TestCollection_Index(t *testing.T) {
	c, _, err := Parse(strings.NewReader(sampleGMT), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, c.Index("HALLMARK_APOPTOSIS"))
	assert.Equal(t, -1, c.Index("MISSING"))
	assert.Nil(t, c.Get("MISSING"))

	assert.Equal(t, []int{1, 3}, c.SetsForGene("TP53"))
	assert.Equal(t, []int{0}, c.SetsForGene("HK1"))
	assert.Empty(t, c.SetsForGene("BRCA1"))

	assert.Equal(t, []string{"BCL2", "CASP3", "GCK", "HK1", "KRAS", "PFKM", "TP53"}, c.Genes())
}

func TestParse_SizeFilter(t *testing.T) {
	c, stats, err := Parse(strings.NewReader(sampleGMT), Options{MinSize: 1, MaxSize: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"KRAS_SIGNALING"}, c.Names())
	assert.Equal(t, 3, stats.SizeFiltered)
	assert.Equal(t, []int{0}, c.SetsForGene("TP53"))
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		line    int
		message string
	}{
		{"single field", "SET_A\tdesc\tG1\nSET_B\n", 2, "expected at least 2 fields"},
		{"empty name", " \tdesc\tG1\n", 1, "empty gene set name"},
		{"duplicate name", "SET_A\td\tG1\nSET_B\td\tG2\nSET_A\td\tG3\n", 3, "first defined at line 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Parse(strings.NewReader(tt.input), Options{})
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.line, perr.Line)
			assert.Contains(t, perr.Message, tt.message)
		})
	}
}

func TestParse_DuplicateNameAfterFilter(t *testing.T) {
	// Names stay unique across the whole file even if one copy is filtered out.
	input := "SET_A\td\n" + "SET_A\td\tG1\tG2\n"
	_, _, err := Parse(strings.NewReader(input), Options{MinSize: 1})
	require.Error(t, err)
}

func TestNewCollection_Duplicate(t *testing.T) {
	_, err := NewCollection([]*GeneSet{{Name: "A"}, {Name: "A"}})
	require.Error(t, err)
}

func TestReadPathwayFile(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "sets.gmt")
	require.NoError(t, os.WriteFile(plain, []byte(sampleGMT), 0o644))

	gzPath := filepath.Join(dir, "sets.gmt.gz")
	f, err := os.Create(gzPath)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(sampleGMT))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	for _, path := range []string{plain, gzPath} {
		c, _, err := ReadPathwayFile(path, Options{})
		require.NoError(t, err, path)
		assert.Equal(t, 4, c.Len())
		assert.Equal(t, "KEGG_GLYCOLYSIS", c.First().Name)
	}

	_, _, err = ReadPathwayFile(filepath.Join(dir, "missing.gmt"), Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCollection_Empty(t *testing.T) {
	c, _, err := Parse(strings.NewReader(""), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
	assert.Nil(t, c.First())
	assert.Empty(t, c.Names())
}
