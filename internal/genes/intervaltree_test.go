package genes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func geneNames(gs []*Gene) []string {
	names := make([]string, 0, len(gs))
	for _, g := range gs {
		names = append(names, g.Name)
	}
	return names
}

func TestIntervalTree_Empty(t *testing.T) {
	tree := BuildIntervalTree(nil)
	assert.Nil(t, tree.FindOverlaps(100, 0))
	assert.Equal(t, 0, tree.Len())
}

func TestIntervalTree_FindOverlaps(t *testing.T) {
	genes := []*Gene{
		{Name: "LONG", Start: 100, End: 10000},
		{Name: "A", Start: 200, End: 300},
		{Name: "B", Start: 250, End: 400},
		{Name: "C", Start: 5000, End: 5100},
	}
	tree := BuildIntervalTree(genes)

	tests := []struct {
		pos  int64
		want []string
	}{
		{50, nil},
		{100, []string{"LONG"}},
		{260, []string{"LONG", "A", "B"}},
		{350, []string{"LONG", "B"}},
		{5050, []string{"LONG", "C"}},
		{10000, []string{"LONG"}},
		{10001, nil},
	}

	for _, tt := range tests {
		assert.ElementsMatch(t, tt.want, geneNames(tree.FindOverlaps(tt.pos, 0)), "pos %d", tt.pos)
	}
}

// A short late interval must not hide an earlier long one.
func TestIntervalTree_LongIntervalBeforeShort(t *testing.T) {
	tree := BuildIntervalTree([]*Gene{
		{Name: "LONG", Start: 1, End: 1000},
		{Name: "SHORT", Start: 10, End: 20},
	})
	assert.Equal(t, []string{"LONG"}, geneNames(tree.FindOverlaps(500, 0)))
}

func TestIntervalTree_Flank(t *testing.T) {
	tree := BuildIntervalTree([]*Gene{
		{Name: "A", Start: 1000, End: 2000},
		{Name: "B", Start: 5000, End: 6000},
	})

	assert.Empty(t, tree.FindOverlaps(900, 0))
	assert.Equal(t, []string{"A"}, geneNames(tree.FindOverlaps(900, 100)))
	assert.Equal(t, []string{"A"}, geneNames(tree.FindOverlaps(2100, 100)))
	assert.Empty(t, tree.FindOverlaps(2101, 100))
	assert.ElementsMatch(t, []string{"A", "B"}, geneNames(tree.FindOverlaps(3500, 1500)))
}

func TestGene_Contains(t *testing.T) {
	g := &Gene{Start: 100, End: 200}
	assert.True(t, g.Contains(100, 0))
	assert.True(t, g.Contains(200, 0))
	assert.False(t, g.Contains(201, 0))
	assert.True(t, g.Contains(210, 10))
	assert.False(t, g.Contains(89, 10))
}
