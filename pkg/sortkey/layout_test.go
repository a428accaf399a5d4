package sortkey

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowix/rowix/pkg/column"
	"github.com/rowix/rowix/pkg/rowindex"
)

func entryAt(lay *Layout, keys []byte, i int) []byte {
	return keys[i*lay.EntrySize : (i+1)*lay.EntrySize]
}

func compAt(lay *Layout, keys []byte, i int) []byte {
	return entryAt(lay, keys, i)[:lay.CompWidth]
}

func Test_layoutWidths(t *testing.T) {
	cols := []column.Column{
		column.NewInt32([]int32{1}, nil),
		column.NewFloat64([]float64{1}, nil),
	}
	lay := NewLayout(cols, []bool{false, false}, 1)
	//validity byte + 4, validity byte + 8
	assert.Equal(t, 14, lay.CompWidth)
	assert.Equal(t, 4, lay.RowIDWidth)
	assert.Equal(t, 18, lay.EntrySize)
	assert.False(t, lay.HasTies())
}

func Test_layoutWideRowID(t *testing.T) {
	cols := []column.Column{column.NewInt8([]int8{0}, nil)}
	lay := NewLayout(cols, []bool{false}, int64(1)<<33)
	assert.Equal(t, 8, lay.RowIDWidth)
}

func Test_layoutOverflowToTies(t *testing.T) {
	//four int64 columns: 3 fit in 32 bytes (27 used), the fourth ties
	cols := make([]column.Column, 4)
	for i := range cols {
		cols[i] = column.NewInt64([]int64{1}, nil)
	}
	lay := NewLayout(cols, make([]bool, 4), 1)
	assert.Equal(t, 27, lay.CompWidth)
	require.True(t, lay.HasTies())
	assert.Len(t, lay.Ties(), 1)
	assert.Same(t, cols[3], lay.Ties()[0].Col)
}

func Test_layoutVarcharAlwaysTies(t *testing.T) {
	cols := []column.Column{column.NewString([]string{"x"}, nil)}
	lay := NewLayout(cols, []bool{false}, 1)
	//the prefix is keyed and the full value still goes to the comparator
	assert.Equal(t, 1+column.VarcharPrefixLen, lay.CompWidth)
	require.True(t, lay.HasTies())
}

func Test_layoutComparatorColumnStopsKeying(t *testing.T) {
	//a later column must never outrank an earlier comparator-resolved one
	cols := []column.Column{
		column.NewDecimal(nil, nil),
		column.NewInt32([]int32{1}, nil),
	}
	lay := NewLayout(cols, []bool{false, false}, 1)
	assert.Equal(t, 0, lay.CompWidth)
	require.Len(t, lay.Ties(), 2)
	assert.Same(t, cols[0], lay.Ties()[0].Col)
	assert.Same(t, cols[1], lay.Ties()[1].Col)
}

func Test_layoutOverflowStopsKeying(t *testing.T) {
	//three int64 fit, the fourth overflows; the narrow int8 after it would
	//fit but has lower priority than the overflow column, so it ties too
	cols := []column.Column{
		column.NewInt64([]int64{1}, nil),
		column.NewInt64([]int64{1}, nil),
		column.NewInt64([]int64{1}, nil),
		column.NewInt64([]int64{1}, nil),
		column.NewInt8([]int8{1}, nil),
	}
	lay := NewLayout(cols, make([]bool, 5), 1)
	assert.Equal(t, 27, lay.CompWidth)
	require.Len(t, lay.Ties(), 2)
	assert.Same(t, cols[3], lay.Ties()[0].Col)
	assert.Same(t, cols[4], lay.Ties()[1].Col)
}

func Test_layoutDecimalTieOnly(t *testing.T) {
	cols := []column.Column{
		column.NewInt32([]int32{1}, nil),
		column.NewDecimal(nil, nil),
	}
	lay := NewLayout(cols, []bool{false, false}, 1)
	assert.Equal(t, 5, lay.CompWidth)
	require.True(t, lay.HasTies())
}

func encodeAll(t *testing.T, lay *Layout, view *rowindex.RowIndex, n int) []byte {
	keys := make([]byte, n*lay.EntrySize)
	require.NoError(t, lay.Encode(keys, view, 0, int64(n)))
	return keys
}

func Test_encodeOrdersValues(t *testing.T) {
	col := column.NewInt32([]int32{5, -3, 9}, nil)
	lay := NewLayout([]column.Column{col}, []bool{false}, 3)
	keys := encodeAll(t, lay, nil, 3)

	//-3 < 5 < 9
	require.Negative(t, bytes.Compare(compAt(lay, keys, 1), compAt(lay, keys, 0)))
	require.Negative(t, bytes.Compare(compAt(lay, keys, 0), compAt(lay, keys, 2)))
}

func Test_encodeNAFirst(t *testing.T) {
	col := column.NewInt32([]int32{5, 0}, []bool{false, true})
	for _, desc := range []bool{false, true} {
		lay := NewLayout([]column.Column{col}, []bool{desc}, 2)
		keys := encodeAll(t, lay, nil, 2)
		//NA sorts before any value no matter the direction
		require.Negative(t, bytes.Compare(compAt(lay, keys, 1), compAt(lay, keys, 0)))
	}
}

func Test_encodeDescInverts(t *testing.T) {
	col := column.NewInt32([]int32{1, 2}, nil)
	lay := NewLayout([]column.Column{col}, []bool{true}, 2)
	keys := encodeAll(t, lay, nil, 2)
	require.Positive(t, bytes.Compare(compAt(lay, keys, 0), compAt(lay, keys, 1)))
}

func Test_encodeRowID(t *testing.T) {
	col := column.NewInt32([]int32{7, 7, 7}, nil)
	lay := NewLayout([]column.Column{col}, []bool{false}, 3)
	keys := encodeAll(t, lay, nil, 3)
	for i := int64(0); i < 3; i++ {
		assert.Equal(t, i, lay.RowID(keys, i))
	}
	//equal values, so whole-entry order is the row order
	require.Negative(t, bytes.Compare(entryAt(lay, keys, 0), entryAt(lay, keys, 1)))
	require.Negative(t, bytes.Compare(entryAt(lay, keys, 1), entryAt(lay, keys, 2)))
}

func Test_encodeThroughView(t *testing.T) {
	col := column.NewInt32([]int32{10, 20, 30, 40}, nil)
	view := rowindex.NewArray([]int64{3, 1}, 4, false)
	lay := NewLayout([]column.Column{col}, []bool{false}, 2)
	keys := encodeAll(t, lay, view, 2)
	//entry 0 encodes source row 3 (40), entry 1 source row 1 (20)
	require.Positive(t, bytes.Compare(compAt(lay, keys, 0), compAt(lay, keys, 1)))
	assert.Equal(t, int64(0), lay.RowID(keys, 0))
	assert.Equal(t, int64(1), lay.RowID(keys, 1))
}

func Test_compareTies(t *testing.T) {
	col := column.NewString([]string{"pear", "apple", "apple"}, []bool{false, false, true})
	lay := NewLayout([]column.Column{col}, []bool{false}, 3)

	assert.Positive(t, lay.CompareTies(0, 1))
	assert.Negative(t, lay.CompareTies(1, 0))
	//NA before any value
	assert.Negative(t, lay.CompareTies(2, 0))
	assert.Positive(t, lay.CompareTies(0, 2))
	assert.Zero(t, lay.CompareTies(1, 1))
}

func Test_compareTiesDesc(t *testing.T) {
	col := column.NewString([]string{"pear", "apple", ""}, []bool{false, false, true})
	lay := NewLayout([]column.Column{col}, []bool{true}, 3)

	assert.Negative(t, lay.CompareTies(0, 1))
	//descending does not move NA
	assert.Negative(t, lay.CompareTies(2, 0))
}
