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

package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rowix/rowix/pkg/progress"
	"github.com/rowix/rowix/pkg/util"
)

// Task is a single-execution unit of work. It runs on exactly one worker and
// never migrates mid-execution.
type Task func(workerID int) error

// Scheduler dispenses tasks to workers by worker index. Implementations are
// installed read-only on the pool; a scheduler is never mutated by two
// installers concurrently.
type Scheduler interface {
	NextTask(workerID int) (Task, bool)
}

// operation is the per-Submit state: the installed scheduler, the progress
// tracker observed for cancellation, and the first-error slot.
type operation struct {
	sched   Scheduler
	tracker *progress.Tracker
	wg      sync.WaitGroup
	err     atomic.Pointer[taskError]
}

type taskError struct {
	err error
}

// setErr retains only the first error process-wide; later ones are discarded.
func (op *operation) setErr(err error) {
	op.err.CompareAndSwap(nil, &taskError{err: err})
}

func (op *operation) failed() bool {
	return op.err.Load() != nil
}

func (op *operation) firstErr() error {
	if e := op.err.Load(); e != nil {
		return e.err
	}
	return nil
}

// Pool is a fixed set of worker goroutines created once and reused across
// operations. Workers idle when no scheduler is installed and resume when the
// next operation arrives.
type Pool struct {
	nworkers int

	mu     sync.Mutex
	cond   *sync.Cond
	active *operation
	closed bool

	workers errgroup.Group
}

// NewPool creates a pool of nworkers workers. nworkers <= 0 selects the
// detected hardware concurrency.
func NewPool(nworkers int) *Pool {
	if nworkers <= 0 {
		nworkers = runtime.NumCPU()
	}
	p := &Pool{nworkers: nworkers}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < nworkers; i++ {
		i := i
		p.workers.Go(func() error {
			p.workerLoop(i)
			return nil
		})
	}
	return p
}

func (p *Pool) WorkerCount() int {
	return p.nworkers
}

// Submit installs the scheduler, runs it to exhaustion on all workers, joins
// them and returns the first error any task reported. tracker may be nil when
// the operation is not cancellable.
func (p *Pool) Submit(sched Scheduler, tracker *progress.Tracker) error {
	op := &operation{sched: sched, tracker: tracker}
	op.wg.Add(p.nworkers)

	p.mu.Lock()
	util.AssertFunc(!p.closed && p.active == nil)
	p.active = op
	p.cond.Broadcast()
	p.mu.Unlock()

	op.wg.Wait()

	p.mu.Lock()
	p.active = nil
	p.mu.Unlock()

	return op.firstErr()
}

// Close stops the workers after the current operation, if any, finishes.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	_ = p.workers.Wait()
}

func (p *Pool) workerLoop(workerID int) {
	util.Debug("worker started",
		zap.Int("worker", workerID),
		zap.Int64("goid", goid.Get()))
	var lastDone *operation
	for {
		op := p.awaitOperation(lastDone)
		if op == nil {
			return
		}
		p.drain(op, workerID)
		op.wg.Done()
		lastDone = op
	}
}

func (p *Pool) awaitOperation(lastDone *operation) *operation {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if p.closed {
			return nil
		}
		if p.active != nil && p.active != lastDone {
			return p.active
		}
		p.cond.Wait()
	}
}

// drain pulls tasks until the scheduler runs dry, an error is outstanding, or
// cancellation is observed. Checks happen between tasks, so an in-flight task
// always finishes.
func (p *Pool) drain(op *operation, workerID int) {
	for {
		if op.failed() {
			return
		}
		if op.tracker != nil && op.tracker.IsCancelled() {
			return
		}
		task, ok := op.sched.NextTask(workerID)
		if !ok {
			return
		}
		if err := p.runTask(task, workerID); err != nil {
			op.setErr(err)
		}
	}
}

func (p *Pool) runTask(task Task, workerID int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = util.ConvertPanicError(r)
		}
	}()
	return task(workerID)
}
