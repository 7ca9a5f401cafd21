// Package geneset loads pathway gene-set definitions such as MSigDB GMT files.
package geneset

import (
	"fmt"
	"sort"
)

// GeneSet is a named pathway and its member gene symbols.
type GeneSet struct {
	Name        string   // Gene set name, unique within a Collection
	Description string   // Second GMT column, usually a URL
	Genes       []string // Unique member symbols in file order
}

// Size returns the number of member genes.
func (g *GeneSet) Size() int {
	return len(g.Genes)
}

// Collection is an ordered set of gene sets with a gene -> set index.
// It is read-only once built and safe for concurrent readers.
type Collection struct {
	sets   []*GeneSet
	byName map[string]int
	byGene map[string][]int
}

// NewCollection indexes sets. Set names must be unique.
func NewCollection(sets []*GeneSet) (*Collection, error) {
	c := &Collection{
		sets:   sets,
		byName: make(map[string]int, len(sets)),
		byGene: make(map[string][]int),
	}

	for i, s := range sets {
		if _, dup := c.byName[s.Name]; dup {
			return nil, fmt.Errorf("duplicate gene set name %q", s.Name)
		}
		c.byName[s.Name] = i
		for _, g := range s.Genes {
			c.byGene[g] = append(c.byGene[g], i)
		}
	}

	return c, nil
}

// Len returns the number of gene sets.
func (c *Collection) Len() int {
	return len(c.sets)
}

// Sets returns the gene sets in load order.
func (c *Collection) Sets() []*GeneSet {
	return c.sets
}

// At returns the i-th gene set.
func (c *Collection) At(i int) *GeneSet {
	return c.sets[i]
}

// First returns the first gene set, or nil for an empty collection.
func (c *Collection) First() *GeneSet {
	if len(c.sets) == 0 {
		return nil
	}
	return c.sets[0]
}

// Names returns the gene set names in load order.
func (c *Collection) Names() []string {
	names := make([]string, len(c.sets))
	for i, s := range c.sets {
		names[i] = s.Name
	}
	return names
}

// Index returns the position of the named set, or -1.
func (c *Collection) Index(name string) int {
	if i, ok := c.byName[name]; ok {
		return i
	}
	return -1
}

// Get returns the named set, or nil.
func (c *Collection) Get(name string) *GeneSet {
	if i, ok := c.byName[name]; ok {
		return c.sets[i]
	}
	return nil
}

// SetsForGene returns the indices of the sets containing symbol, ascending.
// The returned slice must not be modified.
func (c *Collection) SetsForGene(symbol string) []int {
	return c.byGene[symbol]
}

// Genes returns every gene symbol present in at least one set, sorted.
func (c *Collection) Genes() []string {
	genes := make([]string, 0, len(c.byGene))
	for g := range c.byGene {
		genes = append(genes, g)
	}
	sort.Strings(genes)
	return genes
}
