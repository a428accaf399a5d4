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

package column

import (
	"cmp"
	"strings"
	"unsafe"

	"github.com/govalues/decimal"

	"github.com/rowix/rowix/pkg/util"
)

type DataType int

const (
	INVALID DataType = iota
	INT8
	INT16
	INT32
	INT64
	FLOAT32
	FLOAT64
	BOOL
	VARCHAR
	DECIMAL
)

// KeyWidth is the number of key bytes a value of this type contributes to a
// composite sort key, excluding the validity byte. Zero means the type has no
// fixed-width encoding and is resolved by comparison only.
func (typ DataType) KeyWidth() int {
	switch typ {
	case INT8, BOOL:
		return 1
	case INT16:
		return 2
	case INT32, FLOAT32:
		return 4
	case INT64, FLOAT64:
		return 8
	case VARCHAR:
		return VarcharPrefixLen
	case DECIMAL:
		return 0
	default:
		panic("usp")
	}
}

// VarcharPrefixLen is the number of leading bytes of a string value that are
// embedded into the composite key. Ties beyond the prefix fall back to the
// column comparator.
const VarcharPrefixLen = 8

// Column is the read-only surface the sort engine sees. Backing data is never
// mutated by consumers of this interface.
type Column interface {
	Len() int
	DataType() DataType
	IsNull(row int) bool
	// Compare orders the values at two rows. NA handling is the caller's
	// concern; Compare must only be called on non-NA rows.
	Compare(i, j int) int
	// RawData exposes the backing storage for zero-copy inspection. It must
	// never be written through.
	RawData() unsafe.Pointer
}

type FlatColumn[T any] struct {
	typ  DataType
	data []T
	mask util.Bitmap
	cmp  func(a, b T) int
}

func newFlat[T any](typ DataType, data []T, nulls []bool, cmpFn func(a, b T) int) *FlatColumn[T] {
	col := &FlatColumn[T]{
		typ:  typ,
		data: data,
		cmp:  cmpFn,
	}
	if nulls != nil {
		util.AssertFunc(len(nulls) == len(data))
		col.mask.Init(len(data))
		for i, isNull := range nulls {
			if isNull {
				col.mask.SetInvalidUnsafe(uint64(i))
			}
		}
	}
	return col
}

func (col *FlatColumn[T]) Len() int {
	return len(col.data)
}

func (col *FlatColumn[T]) DataType() DataType {
	return col.typ
}

func (col *FlatColumn[T]) IsNull(row int) bool {
	return !col.mask.RowIsValid(uint64(row))
}

func (col *FlatColumn[T]) Value(row int) T {
	return col.data[row]
}

func (col *FlatColumn[T]) Data() []T {
	return col.data
}

func (col *FlatColumn[T]) Compare(i, j int) int {
	return col.cmp(col.data[i], col.data[j])
}

func (col *FlatColumn[T]) RawData() unsafe.Pointer {
	if len(col.data) == 0 {
		return nil
	}
	return unsafe.Pointer(unsafe.SliceData(col.data))
}

func NewInt8(data []int8, nulls []bool) *FlatColumn[int8] {
	return newFlat(INT8, data, nulls, cmp.Compare[int8])
}

func NewInt16(data []int16, nulls []bool) *FlatColumn[int16] {
	return newFlat(INT16, data, nulls, cmp.Compare[int16])
}

func NewInt32(data []int32, nulls []bool) *FlatColumn[int32] {
	return newFlat(INT32, data, nulls, cmp.Compare[int32])
}

func NewInt64(data []int64, nulls []bool) *FlatColumn[int64] {
	return newFlat(INT64, data, nulls, cmp.Compare[int64])
}

func NewFloat32(data []float32, nulls []bool) *FlatColumn[float32] {
	return newFlat(FLOAT32, data, nulls, compareFloat[float32])
}

func NewFloat64(data []float64, nulls []bool) *FlatColumn[float64] {
	return newFlat(FLOAT64, data, nulls, compareFloat[float64])
}

func NewBool(data []bool, nulls []bool) *FlatColumn[bool] {
	return newFlat(BOOL, data, nulls, compareBool)
}

func NewString(data []string, nulls []bool) *FlatColumn[string] {
	return newFlat(VARCHAR, data, nulls, strings.Compare)
}

func NewDecimal(data []decimal.Decimal, nulls []bool) *FlatColumn[decimal.Decimal] {
	return newFlat(DECIMAL, data, nulls, decimal.Decimal.Cmp)
}

func compareBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a {
		return -1
	}
	return 1
}

// compareFloat sorts NaN above every other value so it has a deterministic
// slot. cmp.Compare puts NaN first which conflicts with NA-first routing.
func compareFloat[T ~float32 | ~float64](a, b T) int {
	aNan := a != a
	bNan := b != b
	if aNan {
		if bNan {
			return 0
		}
		return 1
	}
	if bNan {
		return -1
	}
	return cmp.Compare(a, b)
}
