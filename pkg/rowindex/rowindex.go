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

package rowindex

import (
	"math"
	"sync"

	"github.com/rowix/rowix/pkg/util"
)

type Kind int

const (
	KindSlice Kind = iota
	KindArr32
	KindArr64
)

// RowIndex describes which rows of a source frame a view selects, and in what
// order. It is immutable after construction and safe for concurrent readers.
// NA rows are never represented inside a RowIndex.
type RowIndex struct {
	kind Kind

	//slice form
	start int64
	step  int64

	//array form
	arr32 []uint32
	arr64 []uint64

	count  int64
	sorted bool

	//cached materialization of a slice form
	matOnce sync.Once
	mat     *RowIndex
}

func NewSlice(start, count, step int64) *RowIndex {
	util.AssertFunc(count >= 0)
	if count == 0 {
		return &RowIndex{kind: KindSlice, sorted: true}
	}
	util.AssertFunc(start >= 0)
	//last produced row must stay non negative
	util.AssertFunc(start+(count-1)*step >= 0)
	return &RowIndex{
		kind:   KindSlice,
		start:  start,
		step:   step,
		count:  count,
		sorted: step >= 0,
	}
}

func NewArr32(indices []uint32, sorted bool) *RowIndex {
	return &RowIndex{
		kind:   KindArr32,
		arr32:  indices,
		count:  int64(len(indices)),
		sorted: sorted,
	}
}

func NewArr64(indices []uint64, sorted bool) *RowIndex {
	return &RowIndex{
		kind:   KindArr64,
		arr64:  indices,
		count:  int64(len(indices)),
		sorted: sorted,
	}
}

// NewArray picks the narrowest array form that can hold row numbers of a
// source with nrows rows. It takes ownership of indices.
func NewArray(indices []int64, nrows int64, sorted bool) *RowIndex {
	if nrows <= math.MaxUint32 {
		arr := make([]uint32, len(indices))
		for i, idx := range indices {
			util.AssertFunc(idx >= 0 && idx < nrows)
			arr[i] = uint32(idx)
		}
		return NewArr32(arr, sorted)
	}
	arr := make([]uint64, len(indices))
	for i, idx := range indices {
		util.AssertFunc(idx >= 0 && idx < nrows)
		arr[i] = uint64(idx)
	}
	return NewArr64(arr, sorted)
}

// Identity returns the selector [0,1,...,count-1].
func Identity(count int64) *RowIndex {
	return NewSlice(0, count, 1)
}

func (ri *RowIndex) Kind() Kind {
	return ri.kind
}

func (ri *RowIndex) Len() int64 {
	return ri.count
}

func (ri *RowIndex) IsSorted() bool {
	return ri.sorted
}

func (ri *RowIndex) Get(i int64) int64 {
	switch ri.kind {
	case KindSlice:
		util.AssertFunc(i >= 0 && i < ri.count)
		return ri.start + i*ri.step
	case KindArr32:
		return int64(ri.arr32[i])
	case KindArr64:
		return int64(ri.arr64[i])
	default:
		panic("usp")
	}
}

// SliceParams returns (start, count, step) of a slice form selector.
func (ri *RowIndex) SliceParams() (int64, int64, int64) {
	util.AssertFunc(ri.kind == KindSlice)
	return ri.start, ri.count, ri.step
}

func (ri *RowIndex) Arr32() []uint32 {
	util.AssertFunc(ri.kind == KindArr32)
	return ri.arr32
}

func (ri *RowIndex) Arr64() []uint64 {
	util.AssertFunc(ri.kind == KindArr64)
	return ri.arr64
}

// ToArray returns an array form selector for the same selection. Array forms
// return themselves. A slice form materializes once and caches the result, so
// repeated calls return the identical selector.
func (ri *RowIndex) ToArray() *RowIndex {
	switch ri.kind {
	case KindArr32, KindArr64:
		return ri
	case KindSlice:
		ri.matOnce.Do(func() {
			last := ri.start
			if ri.count > 0 {
				last = ri.start + (ri.count-1)*ri.step
			}
			if max(ri.start, last) <= math.MaxUint32 {
				arr := make([]uint32, ri.count)
				for i := int64(0); i < ri.count; i++ {
					arr[i] = uint32(ri.start + i*ri.step)
				}
				ri.mat = NewArr32(arr, ri.sorted)
			} else {
				arr := make([]uint64, ri.count)
				for i := int64(0); i < ri.count; i++ {
					arr[i] = uint64(ri.start + i*ri.step)
				}
				ri.mat = NewArr64(arr, ri.sorted)
			}
		})
		return ri.mat
	default:
		panic("usp")
	}
}

// Compose returns the selector equivalent to applying inner to a view already
// restricted by outer: result.Get(i) == outer.Get(inner.Get(i)). Every row
// number produced by inner must lie in [0, outer.Len()).
func Compose(outer, inner *RowIndex) *RowIndex {
	if outer.kind == KindSlice && inner.kind == KindSlice {
		if inner.count > 0 {
			util.AssertFunc(inner.start < outer.count)
			util.AssertFunc(inner.start+(inner.count-1)*inner.step < outer.count)
		}
		return NewSlice(
			outer.start+inner.start*outer.step,
			inner.count,
			outer.step*inner.step,
		)
	}

	maxRow := int64(0)
	res := make([]int64, inner.count)
	for i := int64(0); i < inner.count; i++ {
		j := inner.Get(i)
		util.AssertFunc(j >= 0 && j < outer.count)
		res[i] = outer.Get(j)
		maxRow = max(maxRow, res[i])
	}
	sorted := true
	for i := int64(1); i < inner.count; i++ {
		if res[i] < res[i-1] {
			sorted = false
			break
		}
	}
	return NewArray(res, maxRow+1, sorted)
}
