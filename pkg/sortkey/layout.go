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

package sortkey

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/rowix/rowix/pkg/column"
	"github.com/rowix/rowix/pkg/rowindex"
	"github.com/rowix/rowix/pkg/util"
)

const (
	// MaxCompareWidth bounds the composite key prefix. Columns that do not
	// fit are resolved by the tie comparator instead.
	MaxCompareWidth = 32

	naByte    = 0
	validByte = 1
)

// TieColumn is resolved by comparison inside runs whose key prefixes are
// equal: string tails beyond the embedded prefix, types without a fixed-width
// encoding, columns overflowing MaxCompareWidth, and every column after the
// first such column. Keying stops there because a later keyed column would
// outrank the comparator-resolved one.
type TieColumn struct {
	Col  column.Column
	Desc bool
}

type keyedColumn struct {
	col    column.Column
	desc   bool
	offset int
	width  int
}

// Layout describes one composite sort key: per row, the key prefixes of all
// keyed columns packed most significant first, followed by the row number.
// Each column contributes a leading validity byte; NA encodes as the lowest
// byte so NA rows surface first under ascending order, for descending columns
// too. Value bytes of descending columns are bit inverted. The trailing row
// number is big endian, which makes a whole-entry memcmp break ties by
// original row order.
type Layout struct {
	CompWidth  int
	RowIDWidth int
	EntrySize  int

	keyed []keyedColumn
	ties  []TieColumn
}

func NewLayout(cols []column.Column, desc []bool, n int64) *Layout {
	util.AssertFunc(len(cols) > 0)
	util.AssertFunc(len(cols) == len(desc))
	lay := &Layout{}
	offset := 0
	keyable := true
	for i, col := range cols {
		width := col.DataType().KeyWidth()
		fits := keyable && width > 0 && offset+1+width <= MaxCompareWidth
		if fits {
			lay.keyed = append(lay.keyed, keyedColumn{
				col:    col,
				desc:   desc[i],
				offset: offset,
				width:  width,
			})
			offset += 1 + width
		} else {
			keyable = false
		}
		if !fits || col.DataType() == column.VARCHAR {
			lay.ties = append(lay.ties, TieColumn{Col: col, Desc: desc[i]})
		}
	}
	lay.CompWidth = offset
	if n <= math.MaxUint32 {
		lay.RowIDWidth = 4
	} else {
		lay.RowIDWidth = 8
	}
	lay.EntrySize = lay.CompWidth + lay.RowIDWidth
	return lay
}

func (lay *Layout) HasTies() bool {
	return len(lay.ties) > 0
}

func (lay *Layout) Ties() []TieColumn {
	return lay.ties
}

// Encode builds key entries for view rows [begin, end). view == nil means the
// identity view. The row number stored in each entry is view relative.
func (lay *Layout) Encode(keys []byte, view *rowindex.RowIndex, begin, end int64) error {
	base := unsafe.Pointer(unsafe.SliceData(keys))
	for i := begin; i < end; i++ {
		row := i
		if view != nil {
			row = view.Get(i)
		}
		entry := util.PointerAdd(base, int(i)*lay.EntrySize)
		for _, kc := range lay.keyed {
			if err := encodeColumn(kc, row, util.PointerAdd(entry, kc.offset)); err != nil {
				return err
			}
		}
		ridPtr := util.PointerAdd(entry, lay.CompWidth)
		if lay.RowIDWidth == 4 {
			encodeUint32(ridPtr, uint32(i))
		} else {
			encodeUint64(ridPtr, uint64(i))
		}
	}
	return nil
}

func encodeColumn(kc keyedColumn, row int64, ptr unsafe.Pointer) error {
	if kc.col.IsNull(int(row)) {
		util.Store[uint8](naByte, ptr)
		util.Memset(util.PointerAdd(ptr, 1), 0, kc.width)
		return nil
	}
	util.Store[uint8](validByte, ptr)
	valPtr := util.PointerAdd(ptr, 1)
	switch col := kc.col.(type) {
	case *column.FlatColumn[int8]:
		encodeInt8(valPtr, col.Value(int(row)))
	case *column.FlatColumn[int16]:
		encodeInt16(valPtr, col.Value(int(row)))
	case *column.FlatColumn[int32]:
		encodeInt32(valPtr, col.Value(int(row)))
	case *column.FlatColumn[int64]:
		encodeInt64(valPtr, col.Value(int(row)))
	case *column.FlatColumn[float32]:
		encodeFloat32(valPtr, col.Value(int(row)))
	case *column.FlatColumn[float64]:
		encodeFloat64(valPtr, col.Value(int(row)))
	case *column.FlatColumn[bool]:
		encodeBool(valPtr, col.Value(int(row)))
	case *column.FlatColumn[string]:
		encodeStringPrefix(valPtr, col.Value(int(row)), kc.width)
	default:
		return fmt.Errorf("no key encoding for column %T", kc.col)
	}
	//NA byte keeps its place; only value bytes flip for descending order
	if kc.desc {
		for s := 0; s < kc.width; s++ {
			util.InvertBits(valPtr, s)
		}
	}
	return nil
}

// RowID reads back the view-relative row number of entry i.
func (lay *Layout) RowID(keys []byte, i int64) int64 {
	base := unsafe.Pointer(unsafe.SliceData(keys))
	ptr := util.PointerAdd(base, int(i)*lay.EntrySize+lay.CompWidth)
	if lay.RowIDWidth == 4 {
		return int64(BSWAP32(util.Load[uint32](ptr)))
	}
	return int64(BSWAP64(util.Load[uint64](ptr)))
}

// CompareTies orders two source rows by the tie columns. NA sorts before any
// value regardless of direction, matching the keyed NA routing.
func (lay *Layout) CompareTies(a, b int64) int {
	for _, tc := range lay.ties {
		aNA := tc.Col.IsNull(int(a))
		bNA := tc.Col.IsNull(int(b))
		if aNA || bNA {
			if aNA && bNA {
				continue
			}
			if aNA {
				return -1
			}
			return 1
		}
		ret := tc.Col.Compare(int(a), int(b))
		if tc.Desc {
			ret = -ret
		}
		if ret != 0 {
			return ret
		}
	}
	return 0
}
