package parallel

import (
	"sync/atomic"

	"github.com/liyue201/gostl/ds/queue"

	"github.com/rowix/rowix/pkg/util"
)

// RangeTask processes the half-open row range [begin, end).
type RangeTask func(workerID int, begin, end int64) error

// StaticScheduler pre-partitions tasks by worker index. Each worker only ever
// touches its own list, which keeps per-worker scratch state cache local.
type StaticScheduler struct {
	tasks [][]Task
	next  []int
}

func NewStaticScheduler(nworkers int) *StaticScheduler {
	return &StaticScheduler{
		tasks: make([][]Task, nworkers),
		next:  make([]int, nworkers),
	}
}

func (sched *StaticScheduler) Add(workerID int, task Task) {
	sched.tasks[workerID] = append(sched.tasks[workerID], task)
}

func (sched *StaticScheduler) NextTask(workerID int) (Task, bool) {
	pos := sched.next[workerID]
	if pos >= len(sched.tasks[workerID]) {
		return nil, false
	}
	sched.next[workerID]++
	return sched.tasks[workerID][pos], true
}

// StaticRangeBounds returns the begin offset of each worker's range in the
// static partition of [0, n). Boundaries depend only on n and nworkers,
// never on timing.
func StaticRangeBounds(n int64, nworkers int) []int64 {
	bounds := make([]int64, 0, nworkers)
	per := n / int64(nworkers)
	rem := n % int64(nworkers)
	begin := int64(0)
	for w := 0; w < nworkers; w++ {
		cnt := per
		if int64(w) < rem {
			cnt++
		}
		if cnt == 0 {
			continue
		}
		bounds = append(bounds, begin)
		begin += cnt
	}
	util.AssertFunc(begin == n)
	return bounds
}

// staticChunkRows caps the rows of a single static range task. Workers check
// for errors and cancellation between tasks, so the cap bounds how long an
// operation runs past a cancel request.
const staticChunkRows = 1 << 16

// StaticChunkBounds returns the begin offset of every task in the chunked
// static partition of [0, n): the worker range bounds plus the chunk splits
// inside each range. Like StaticRangeBounds it depends only on n and
// nworkers.
func StaticChunkBounds(n int64, nworkers int) []int64 {
	bounds := StaticRangeBounds(n, nworkers)
	chunks := make([]int64, 0, len(bounds))
	for w, begin := range bounds {
		end := n
		if w+1 < len(bounds) {
			end = bounds[w+1]
		}
		for b := begin; b < end; b += staticChunkRows {
			chunks = append(chunks, b)
		}
	}
	return chunks
}

// NewStaticRange partitions [0, n) into one contiguous range per worker,
// split into bounded chunk tasks. A worker executes its chunks in ascending
// row order, so per-worker scatter state stays valid across chunks.
func NewStaticRange(n int64, nworkers int, run RangeTask) *StaticScheduler {
	sched := NewStaticScheduler(nworkers)
	bounds := StaticRangeBounds(n, nworkers)
	for w, begin := range bounds {
		end := n
		if w+1 < len(bounds) {
			end = bounds[w+1]
		}
		for b := begin; b < end; b += staticChunkRows {
			cb, ce := b, min(b+staticChunkRows, end)
			sched.Add(w, func(workerID int) error {
				return run(workerID, cb, ce)
			})
		}
	}
	return sched
}

// DynamicScheduler hands out progressively smaller chunks of [0, n) from a
// shared atomic cursor for load balancing. The chunk floor bounds how long a
// worker runs between cancellation checks.
type DynamicScheduler struct {
	n        int64
	cursor   atomic.Int64
	nworkers int64
	minChunk int64
	run      RangeTask
}

const defaultMinChunk = 4096

func NewDynamicScheduler(n int64, nworkers int, run RangeTask) *DynamicScheduler {
	return &DynamicScheduler{
		n:        n,
		nworkers: int64(nworkers),
		minChunk: defaultMinChunk,
		run:      run,
	}
}

func (sched *DynamicScheduler) NextTask(workerID int) (Task, bool) {
	for {
		begin := sched.cursor.Load()
		if begin >= sched.n {
			return nil, false
		}
		chunk := (sched.n - begin) / (4 * sched.nworkers)
		if chunk < sched.minChunk {
			chunk = sched.minChunk
		}
		end := min(begin+chunk, sched.n)
		if !sched.cursor.CompareAndSwap(begin, end) {
			continue
		}
		return func(workerID int) error {
			return sched.run(workerID, begin, end)
		}, true
	}
}

// QueueScheduler dispenses irregular pre-enqueued tasks from a shared
// goroutine-safe queue. All tasks must be enqueued before the scheduler is
// submitted to a pool.
type QueueScheduler struct {
	tasks     *queue.Queue[Task]
	remaining atomic.Int64
}

func NewQueueScheduler() *QueueScheduler {
	return &QueueScheduler{
		tasks: queue.New[Task](queue.WithGoroutineSafe[Task]()),
	}
}

func (sched *QueueScheduler) Enqueue(task Task) {
	sched.tasks.Push(task)
	sched.remaining.Add(1)
}

func (sched *QueueScheduler) Size() int64 {
	return sched.remaining.Load()
}

func (sched *QueueScheduler) NextTask(workerID int) (Task, bool) {
	//reserve first so a concurrent Pop never hits an empty queue
	if sched.remaining.Add(-1) < 0 {
		return nil, false
	}
	return sched.tasks.Pop(), true
}
