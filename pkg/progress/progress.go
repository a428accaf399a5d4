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

package progress

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xlab/treeprint"

	"github.com/rowix/rowix/pkg/util"
)

type Status int32

const (
	Running Status = iota
	Finished
	Error
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Running:
		return "RUNNING"
	case Finished:
		return "FINISHED"
	case Error:
		return "ERROR"
	case Cancelled:
		return "CANCELLED"
	default:
		panic("usp")
	}
}

type NodeID int

const RootNode NodeID = 0

// node is one accounting unit. The parent relation is stored as an index into
// the tracker's node table, so the tree carries no pointers.
type node struct {
	parent NodeID
	//units this node contributes to its parent when fully done
	share float64
	total float64
	done  float64
}

// Tracker owns the progress tree of one cancellable top-level operation. It
// is created at the start of the operation and discarded at its end.
type Tracker struct {
	mu    sync.Mutex
	nodes []node
	subs  []func(fraction float64, status Status)

	status    atomic.Int32
	cancelled atomic.Bool

	//subscriber cadence bound
	notifyEvery time.Duration
	lastNotify  time.Time
}

// NewTracker creates a tracker whose root node is sized to the operation's
// total work, typically the row count.
func NewTracker(total float64) *Tracker {
	util.AssertFunc(total > 0)
	t := &Tracker{
		notifyEvery: 50 * time.Millisecond,
	}
	t.nodes = append(t.nodes, node{parent: -1, share: total, total: total})
	return t
}

// AddNode creates a child sized to total units of its own work, worth share
// units of the parent when complete.
func (t *Tracker) AddNode(parent NodeID, share, total float64) NodeID {
	util.AssertFunc(share >= 0 && total > 0)
	t.mu.Lock()
	defer t.mu.Unlock()
	util.AssertFunc(int(parent) < len(t.nodes))
	t.nodes = append(t.nodes, node{parent: parent, share: share, total: total})
	return NodeID(len(t.nodes) - 1)
}

// Done records amount units of completed work on a node and propagates the
// weighted fraction up to the root.
func (t *Tracker) Done(id NodeID, amount float64) {
	t.mu.Lock()
	nd := &t.nodes[id]
	delta := min(amount, nd.total-nd.done)
	if delta <= 0 {
		t.mu.Unlock()
		return
	}
	nd.done += delta
	for nd.parent >= 0 {
		up := delta / nd.total * nd.share
		nd = &t.nodes[nd.parent]
		delta = min(up, nd.total-nd.done)
		if delta <= 0 {
			break
		}
		nd.done += delta
	}
	fraction := t.fractionLocked()
	notify := t.shouldNotifyLocked()
	subs := t.subs
	t.mu.Unlock()

	if notify {
		status := t.Status()
		for _, sub := range subs {
			sub(fraction, status)
		}
	}
}

func (t *Tracker) fractionLocked() float64 {
	root := &t.nodes[RootNode]
	return root.done / root.total
}

func (t *Tracker) shouldNotifyLocked() bool {
	now := time.Now()
	if now.Sub(t.lastNotify) < t.notifyEvery {
		return false
	}
	t.lastNotify = now
	return true
}

func (t *Tracker) Fraction() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fractionLocked()
}

func (t *Tracker) Status() Status {
	return Status(t.status.Load())
}

// SetStatus moves the operation to a terminal state and pushes a final update
// to all subscribers.
func (t *Tracker) SetStatus(s Status) {
	t.status.Store(int32(s))
	t.mu.Lock()
	fraction := t.fractionLocked()
	subs := t.subs
	t.mu.Unlock()
	for _, sub := range subs {
		sub(fraction, s)
	}
}

// Cancel requests cooperative cancellation. Workers observe it between tasks.
func (t *Tracker) Cancel() {
	t.cancelled.Store(true)
}

func (t *Tracker) IsCancelled() bool {
	return t.cancelled.Load()
}

// Subscribe registers a callback receiving (fractionDone, status) updates at
// a bounded cadence plus one final update per status change.
func (t *Tracker) Subscribe(fn func(fraction float64, status Status)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subs = append(t.subs, fn)
}

func (t *Tracker) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	branches := make([]treeprint.Tree, len(t.nodes))
	tree := treeprint.New()
	for i, nd := range t.nodes {
		label := fmt.Sprintf("node %d: %.0f/%.0f", i, nd.done, nd.total)
		if nd.parent < 0 {
			branches[i] = tree.AddBranch(label)
		} else {
			branches[i] = branches[nd.parent].AddBranch(label)
		}
	}
	return tree.String()
}
