package genes

import "sort"

// IntervalTree provides O(log n + k) overlap queries using a sorted-slice approach.
// Genes are loaded once and never modified after build.
type IntervalTree struct {
	intervals []interval
	maxEnd    []int64 // maxEnd[i] = max(end) for intervals[:i+1]
}

type interval struct {
	start int64
	end   int64
	gene  *Gene
}

// BuildIntervalTree creates an interval tree from a slice of genes.
func BuildIntervalTree(genes []*Gene) *IntervalTree {
	if len(genes) == 0 {
		return &IntervalTree{}
	}

	intervals := make([]interval, len(genes))
	for i, g := range genes {
		intervals[i] = interval{start: g.Start, end: g.End, gene: g}
	}

	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].start < intervals[j].start
	})

	// Prefix-max array: once maxEnd[i] < pos nothing at or before i can overlap.
	maxEnd := make([]int64, len(intervals))
	maxEnd[0] = intervals[0].end
	for i := 1; i < len(intervals); i++ {
		maxEnd[i] = max(maxEnd[i-1], intervals[i].end)
	}

	return &IntervalTree{intervals: intervals, maxEnd: maxEnd}
}

// Len returns the number of intervals in the tree.
func (t *IntervalTree) Len() int {
	return len(t.intervals)
}

// FindOverlaps returns all genes whose [Start-flank, End+flank] range contains pos.
func (t *IntervalTree) FindOverlaps(pos, flank int64) []*Gene {
	if len(t.intervals) == 0 {
		return nil
	}

	var result []*Gene

	// Candidates have start-flank <= pos; hi is the first index past them.
	hi := sort.Search(len(t.intervals), func(i int) bool {
		return t.intervals[i].start-flank > pos
	})

	for i := hi - 1; i >= 0; i-- {
		if t.maxEnd[i]+flank < pos {
			break
		}
		if t.intervals[i].end+flank >= pos {
			result = append(result, t.intervals[i].gene)
		}
	}

	return result
}
