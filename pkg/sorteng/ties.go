package sorteng

import (
	"sort"

	"github.com/rowix/rowix/pkg/parallel"
	"github.com/rowix/rowix/pkg/util"
)

// tiePhase resolves columns the key prefix cannot discriminate: string tails
// beyond the embedded prefix, comparison-only types, and columns overflowing
// the prefix budget. Runs of equal prefixes are located in parallel, then
// each run is re-sorted by the tie comparator. Entries inside a run ascend by
// row number coming in, and the re-sort is stable, so full ties keep original
// relative order.
func (run *sortRun) tiePhase() error {
	if !run.lay.HasTies() {
		return nil
	}
	n := run.n
	entry := run.lay.EntrySize
	nworkers := run.sorter.pool.WorkerCount()

	if n < 2 {
		run.tracker.Done(run.tiesNode, float64(n))
		return nil
	}

	//ties[i] marks that entries i and i+1 share one key prefix
	ties := make([]bool, n)
	if run.lay.CompWidth == 0 {
		util.Fill(ties, int(n-1), true)
	} else {
		sched := parallel.NewStaticRange(n-1, nworkers,
			func(workerID int, begin, end int64) error {
				for i := begin; i < end; i++ {
					ties[i] = memcmpAt(
						run.keys, int(i)*entry,
						run.keys, int(i+1)*entry,
						run.lay.CompWidth,
					) == 0
				}
				return nil
			})
		if err := run.submit(sched); err != nil {
			return err
		}
	}

	queue := parallel.NewQueueScheduler()
	tied := int64(0)
	for i := int64(0); i < n-1; i++ {
		if !ties[i] {
			continue
		}
		j := i + 1
		for j < n-1 && ties[j] {
			j++
		}
		begin, end := i, j+1
		queue.Enqueue(func(workerID int) error {
			run.sortTiedRun(begin, end)
			run.tracker.Done(run.tiesNode, float64(end-begin))
			return nil
		})
		tied += end - begin
		i = j
	}
	run.tracker.Done(run.tiesNode, float64(n-tied))
	if queue.Size() == 0 {
		return nil
	}
	return run.submit(queue)
}

func (run *sortRun) sortTiedRun(begin, end int64) {
	entry := run.lay.EntrySize
	cnt := int(end - begin)

	rows := make([]int64, cnt)
	for k := 0; k < cnt; k++ {
		rows[k] = run.srcRow(run.lay.RowID(run.keys, begin+int64(k)))
	}
	perm := make([]int, cnt)
	for k := range perm {
		perm[k] = k
	}
	sort.SliceStable(perm, func(a, b int) bool {
		return run.lay.CompareTies(rows[perm[a]], rows[perm[b]]) < 0
	})

	base := int(begin) * entry
	scratch := make([]byte, cnt*entry)
	copy(scratch, run.keys[base:base+cnt*entry])
	for k := 0; k < cnt; k++ {
		copy(
			run.keys[base+k*entry:base+(k+1)*entry],
			scratch[perm[k]*entry:(perm[k]+1)*entry],
		)
	}
}
