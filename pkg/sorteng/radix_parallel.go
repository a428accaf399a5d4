package sorteng

import (
	"github.com/rowix/rowix/pkg/parallel"
	"github.com/rowix/rowix/pkg/util"
)

// span is a contiguous bucket still wide enough to be distributed by a
// parallel histogram/scatter pass. swapped marks whether its live data sits
// in temp.
type span struct {
	start   int64
	count   int64
	offset  int
	swapped bool
}

// parallelCutoff is the bucket size above which the next digit is processed
// by another parallel pass instead of a single sequential task. It depends
// only on n, so the chunking is reproducible; output order does not depend on
// it either way.
func parallelCutoff(n int64) int64 {
	c := n / 64
	if c < 1<<16 {
		c = 1 << 16
	}
	return c
}

func (run *sortRun) radixPhase() error {
	n := run.n
	entry := run.lay.EntrySize
	compWidth := run.lay.CompWidth

	if compWidth == 0 {
		//entries carry only the row number, already in ascending order
		run.tracker.Done(run.radixNode, float64(3*n))
		return nil
	}

	if n <= insertionSortThreshold {
		sched := parallel.NewStaticScheduler(run.sorter.pool.WorkerCount())
		sched.Add(0, func(workerID int) error {
			insertionSort(run.keys, run.temp, int(n), entry, compWidth, 0, false)
			run.tracker.Done(run.radixNode, float64(3*n))
			return nil
		})
		return run.submit(sched)
	}

	cutoff := parallelCutoff(n)
	queue := parallel.NewQueueScheduler()
	large := []span{{start: 0, count: n, offset: 0}}
	for !util.Empty(large) {
		sp := util.Back(large)
		large = large[:len(large)-1]
		var err error
		large, err = run.parallelPass(sp, cutoff, large, queue)
		if err != nil {
			return err
		}
	}
	if queue.Size() == 0 {
		return nil
	}
	return run.submit(queue)
}

// parallelPass distributes one digit of one span across all workers: local
// histograms, a global prefix sum completed before any write, then a stable
// scatter into disjoint destination ranges. Sub-buckets either seed further
// parallel passes, are queued for sequential sorting, or are done.
func (run *sortRun) parallelPass(
	sp span,
	cutoff int64,
	large []span,
	queue *parallel.QueueScheduler,
) ([]span, error) {
	entry := run.lay.EntrySize
	compWidth := run.lay.CompWidth
	nworkers := run.sorter.pool.WorkerCount()

	src, dst := run.keys, run.temp
	if sp.swapped {
		src, dst = run.temp, run.keys
	}

	hist := make([][valuesPerRadix]uint64, nworkers)
	histSched := parallel.NewStaticRange(sp.count, nworkers,
		func(workerID int, begin, end int64) error {
			h := &hist[workerID]
			pos := int(sp.start+begin)*entry + sp.offset
			for i := begin; i < end; i++ {
				h[src[pos]]++
				pos += entry
			}
			run.tracker.Done(run.radixNode, float64(end-begin))
			return nil
		})
	if err := run.submit(histSched); err != nil {
		return nil, err
	}

	var total [valuesPerRadix]uint64
	for w := 0; w < nworkers; w++ {
		for v := 0; v < valuesPerRadix; v++ {
			total[v] += hist[w][v]
		}
	}
	var starts [valuesPerRadix]uint64
	sum := uint64(0)
	for v := 0; v < valuesPerRadix; v++ {
		starts[v] = sum
		sum += total[v]
	}

	//per worker destination cursors, in worker order within each bucket so
	//the scatter preserves original relative order
	dest := make([][valuesPerRadix]uint64, nworkers)
	for v := 0; v < valuesPerRadix; v++ {
		off := starts[v]
		for w := 0; w < nworkers; w++ {
			dest[w][v] = off
			off += hist[w][v]
		}
	}

	scatterSched := parallel.NewStaticRange(sp.count, nworkers,
		func(workerID int, begin, end int64) error {
			d := &dest[workerID]
			pos := int(sp.start+begin) * entry
			for i := begin; i < end; i++ {
				val := src[pos+sp.offset]
				to := (int(sp.start) + int(d[val])) * entry
				copy(dst[to:to+entry], src[pos:pos+entry])
				d[val]++
				pos += entry
			}
			run.tracker.Done(run.radixNode, float64(end-begin))
			return nil
		})
	if err := run.submit(scatterSched); err != nil {
		return nil, err
	}

	swapped := !sp.swapped
	for v := 0; v < valuesPerRadix; v++ {
		cnt := int64(total[v])
		if cnt == 0 {
			continue
		}
		bStart := sp.start + int64(starts[v])
		off := sp.offset + 1
		base := int(bStart) * entry

		if off == compWidth || cnt == 1 {
			//no digits left to distribute; normalize into keys
			if swapped {
				from, to := base, base+int(cnt)*entry
				queue.Enqueue(func(workerID int) error {
					copy(run.keys[from:to], run.temp[from:to])
					run.tracker.Done(run.radixNode, float64(cnt))
					return nil
				})
			} else {
				run.tracker.Done(run.radixNode, float64(cnt))
			}
			continue
		}
		if cnt > cutoff {
			large = append(large, span{
				start:   bStart,
				count:   cnt,
				offset:  off,
				swapped: swapped,
			})
			continue
		}
		if cnt > insertionSortThreshold {
			queue.Enqueue(func(workerID int) error {
				radixSortMSD(run.keys[base:], run.temp[base:], int(cnt), entry, compWidth, off, swapped)
				run.tracker.Done(run.radixNode, float64(cnt))
				return nil
			})
		} else {
			queue.Enqueue(func(workerID int) error {
				insertionSort(run.keys[base:], run.temp[base:], int(cnt), entry, compWidth, off, swapped)
				run.tracker.Done(run.radixNode, float64(cnt))
				return nil
			})
		}
	}
	return large, nil
}
