// Copyright 2023-2024 daviszhen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sorteng

import (
	"errors"
	"fmt"
	"math"

	"github.com/huandu/go-clone"
	"github.com/tidwall/btree"

	"github.com/rowix/rowix/pkg/column"
	"github.com/rowix/rowix/pkg/parallel"
	"github.com/rowix/rowix/pkg/progress"
	"github.com/rowix/rowix/pkg/rowindex"
	"github.com/rowix/rowix/pkg/sortkey"
	"github.com/rowix/rowix/pkg/util"
)

// ErrCancelled reports that the operation was cancelled before completion.
// The status is Cancelled, not Error, and no result is produced.
var ErrCancelled = errors.New("sort cancelled")

type sortConfig struct {
	view    *rowindex.RowIndex
	groups  bool
	tracker *progress.Tracker
}

type Option func(*sortConfig)

// WithView sorts the rows selected by ri instead of the whole source. The
// returned selector is over 0..ri.Len()-1 and composes with ri.
func WithView(ri *rowindex.RowIndex) Option {
	return func(cfg *sortConfig) {
		cfg.view = ri
	}
}

// WithGroups also returns the start offsets of equal-key runs.
func WithGroups() Option {
	return func(cfg *sortConfig) {
		cfg.groups = true
	}
}

// WithTracker attaches a caller-owned tracker, created with total = the view
// row count. The caller may subscribe to it and request cancellation.
func WithTracker(t *progress.Tracker) Option {
	return func(cfg *sortConfig) {
		cfg.tracker = t
	}
}

type Sorter struct {
	pool *parallel.Pool
}

func NewSorter(pool *parallel.Pool) *Sorter {
	return &Sorter{pool: pool}
}

// Sort produces the stable ordering of the given sort columns: an array-form
// selector over 0..n-1 such that applying it to the keys yields ascending
// order, descending per column where desc is set. NA rows come first, ties
// keep original relative order, and the result is identical for any worker
// count. Any failure leaves no partial result.
func (s *Sorter) Sort(
	cols []column.Column,
	desc []bool,
	opts ...Option,
) (*rowindex.RowIndex, []int64, error) {
	cfg := sortConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	util.AssertFunc(len(cols) > 0)
	nrows := int64(cols[0].Len())
	for _, col := range cols {
		util.AssertFunc(int64(col.Len()) == nrows)
	}
	if desc == nil {
		desc = make([]bool, len(cols))
	}
	//snapshot so caller mutation cannot race the running sort
	desc = clone.Clone(desc).([]bool)

	n := nrows
	if cfg.view != nil {
		n = cfg.view.Len()
	}
	if n == 0 {
		if cfg.tracker != nil {
			cfg.tracker.SetStatus(progress.Finished)
		}
		var groups []int64
		if cfg.groups {
			groups = []int64{}
		}
		return rowindex.NewSlice(0, 0, 1), groups, nil
	}

	tracker := cfg.tracker
	if tracker == nil {
		tracker = progress.NewTracker(float64(n))
	}

	run := &sortRun{
		sorter:  s,
		cols:    cols,
		desc:    desc,
		view:    cfg.view,
		n:       n,
		tracker: tracker,
	}
	sel, groups, err := run.execute(cfg.groups)
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			tracker.SetStatus(progress.Cancelled)
		} else {
			tracker.SetStatus(progress.Error)
		}
		return nil, nil, err
	}
	tracker.SetStatus(progress.Finished)
	return sel, groups, nil
}

type sortRun struct {
	sorter *Sorter
	cols   []column.Column
	desc   []bool
	view   *rowindex.RowIndex
	n      int64

	lay        *sortkey.Layout
	keys, temp []byte

	tracker   *progress.Tracker
	encNode   progress.NodeID
	radixNode progress.NodeID
	tiesNode  progress.NodeID
	finNode   progress.NodeID
}

// srcRow maps a view-relative row number back to the source row holding its
// column values.
func (run *sortRun) srcRow(rid int64) int64 {
	if run.view == nil {
		return rid
	}
	return run.view.Get(rid)
}

func (run *sortRun) submit(sched parallel.Scheduler) error {
	if run.tracker.IsCancelled() {
		return ErrCancelled
	}
	if err := run.sorter.pool.Submit(sched, run.tracker); err != nil {
		return err
	}
	if run.tracker.IsCancelled() {
		return ErrCancelled
	}
	return nil
}

func (run *sortRun) execute(wantGroups bool) (*rowindex.RowIndex, []int64, error) {
	run.lay = sortkey.NewLayout(run.cols, run.desc, run.n)

	var err error
	run.keys, err = allocEntryBuffer(run.n, run.lay.EntrySize)
	if err != nil {
		return nil, nil, err
	}
	run.temp, err = allocEntryBuffer(run.n, run.lay.EntrySize)
	if err != nil {
		return nil, nil, err
	}

	run.addProgressNodes()

	if err = run.encodePhase(); err != nil {
		return nil, nil, err
	}
	if err = run.radixPhase(); err != nil {
		return nil, nil, err
	}
	if err = run.tiePhase(); err != nil {
		return nil, nil, err
	}
	return run.finishPhase(wantGroups)
}

func (run *sortRun) addProgressNodes() {
	total := float64(run.n)
	wTies := 0.0
	if run.lay.HasTies() {
		wTies = 0.15
	}
	wEnc, wRadix := 0.25, 0.5-wTies/3
	wFin := 1.0 - wEnc - wRadix - wTies
	run.encNode = run.tracker.AddNode(progress.RootNode, wEnc*total, total)
	run.radixNode = run.tracker.AddNode(progress.RootNode, wRadix*total, 3*total)
	if run.lay.HasTies() {
		run.tiesNode = run.tracker.AddNode(progress.RootNode, wTies*total, total)
	}
	run.finNode = run.tracker.AddNode(progress.RootNode, wFin*total, total)
}

// allocEntryBuffer turns an oversized or failed allocation into an operation
// level error instead of a crash.
func allocEntryBuffer(n int64, entrySize int) (buf []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("key buffer of %d entries x %d bytes: %v", n, entrySize, r)
		}
	}()
	total := n * int64(entrySize)
	if total/int64(entrySize) != n || total > math.MaxInt64/2 {
		return nil, fmt.Errorf("key buffer of %d entries x %d bytes overflows", n, entrySize)
	}
	buf = make([]byte, total)
	return buf, nil
}

// encodePhase builds key entries with the dynamic scheduler: each row writes
// only its own entry, so load-balanced chunking cannot affect the output.
func (run *sortRun) encodePhase() error {
	nworkers := run.sorter.pool.WorkerCount()
	sched := parallel.NewDynamicScheduler(run.n, nworkers,
		func(workerID int, begin, end int64) error {
			if err := run.lay.Encode(run.keys, run.view, begin, end); err != nil {
				return err
			}
			run.tracker.Done(run.encNode, float64(end-begin))
			return nil
		})
	return run.submit(sched)
}

func (run *sortRun) finishPhase(wantGroups bool) (*rowindex.RowIndex, []int64, error) {
	nworkers := run.sorter.pool.WorkerCount()

	var arr32 []uint32
	var arr64 []uint64
	if run.lay.RowIDWidth == 4 {
		arr32 = make([]uint32, run.n)
	} else {
		arr64 = make([]uint64, run.n)
	}

	var bounds *btree.BTreeG[int64]
	if wantGroups {
		bounds = btree.NewBTreeG[int64](func(a, b int64) bool { return a < b })
	}

	sortedPart := make([]bool, nworkers)
	util.Fill(sortedPart, nworkers, true)

	sched := parallel.NewStaticRange(run.n, nworkers,
		func(workerID int, begin, end int64) error {
			prev := int64(-1)
			for i := begin; i < end; i++ {
				rid := run.lay.RowID(run.keys, i)
				if run.lay.RowIDWidth == 4 {
					arr32[i] = uint32(rid)
				} else {
					arr64[i] = uint64(rid)
				}
				if rid < prev {
					sortedPart[workerID] = false
				}
				prev = rid
				if wantGroups {
					if i == 0 {
						bounds.Set(0)
					} else if !run.equalRows(i-1, i) {
						bounds.Set(i)
					}
				}
			}
			run.tracker.Done(run.finNode, float64(end-begin))
			return nil
		})
	if err := run.submit(sched); err != nil {
		return nil, nil, err
	}

	sorted := true
	for _, part := range sortedPart {
		sorted = sorted && part
	}
	if sorted {
		//cross chunk boundaries; the per-task scan cannot see across them
		for _, b := range parallel.StaticChunkBounds(run.n, nworkers) {
			if b == 0 {
				continue
			}
			if run.lay.RowIDWidth == 4 {
				sorted = sorted && arr32[b-1] <= arr32[b]
			} else {
				sorted = sorted && arr64[b-1] <= arr64[b]
			}
		}
	}

	var sel *rowindex.RowIndex
	if run.lay.RowIDWidth == 4 {
		sel = rowindex.NewArr32(arr32, sorted)
	} else {
		sel = rowindex.NewArr64(arr64, sorted)
	}

	var groups []int64
	if wantGroups {
		groups = make([]int64, 0, bounds.Len())
		bounds.Scan(func(pos int64) bool {
			groups = append(groups, pos)
			return true
		})
	}
	return sel, groups, nil
}

// equalRows reports whether sorted positions i and j hold fully equal keys,
// including tie columns the prefix cannot discriminate.
func (run *sortRun) equalRows(i, j int64) bool {
	entry := run.lay.EntrySize
	if run.lay.CompWidth > 0 {
		cmp := memcmpAt(run.keys, int(i)*entry, run.keys, int(j)*entry, run.lay.CompWidth)
		if cmp != 0 {
			return false
		}
	}
	if !run.lay.HasTies() {
		return true
	}
	a := run.srcRow(run.lay.RowID(run.keys, i))
	b := run.srcRow(run.lay.RowID(run.keys, j))
	return run.lay.CompareTies(a, b) == 0
}
