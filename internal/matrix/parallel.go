package matrix

import (
	"context"
	"runtime"
	"sync"

	"github.com/inodb/bann/internal/gwas"
)

// WorkItem holds a SNP waiting for its row to be computed.
type WorkItem struct {
	Seq int
	SNP gwas.SNP
}

// WorkResult holds the computed row for a single SNP.
type WorkResult struct {
	Seq     int
	SNP     gwas.SNP
	Genes   []string
	Entries []Entry
}

// rowFunc computes the mapped genes and row entries for one SNP.
type rowFunc func(gwas.SNP) ([]string, []Entry)

// feed sends snps as sequence-numbered work items until done or ctx is cancelled.
func feed(ctx context.Context, snps []gwas.SNP, buffer int) <-chan WorkItem {
	items := make(chan WorkItem, buffer)
	go func() {
		defer close(items)
		for i, s := range snps {
			select {
			case items <- WorkItem{Seq: i, SNP: s}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return items
}

// parallelRows computes rows using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// If workers is 0, runtime.NumCPU() is used.
func parallelRows(items <-chan WorkItem, workers int, fn rowFunc) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				genes, entries := fn(item.SNP)
				results <- WorkResult{
					Seq:     item.Seq,
					SNP:     item.SNP,
					Genes:   genes,
					Entries: entries,
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
