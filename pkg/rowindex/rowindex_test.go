package rowindex

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_slice(t *testing.T) {
	ri := NewSlice(2, 3, 1)
	require.Equal(t, KindSlice, ri.Kind())
	require.Equal(t, int64(3), ri.Len())
	for i := int64(0); i < 3; i++ {
		assert.Equal(t, 2+i, ri.Get(i))
	}

	start, count, step := ri.SliceParams()
	assert.Equal(t, int64(2), start)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, int64(1), step)

	//reversed progression
	rev := NewSlice(10, 4, -2)
	want := []int64{10, 8, 6, 4}
	for i, w := range want {
		assert.Equal(t, w, rev.Get(int64(i)))
	}
	assert.False(t, rev.IsSorted())
}

func Test_sliceEmpty(t *testing.T) {
	ri := NewSlice(0, 0, 1)
	assert.Equal(t, int64(0), ri.Len())
	assert.True(t, ri.IsSorted())

	//canonical empty regardless of start/step
	ri2 := NewSlice(100, 0, -3)
	assert.Equal(t, int64(0), ri2.Len())
}

func Test_sliceInvalid(t *testing.T) {
	assert.Panics(t, func() {
		NewSlice(0, -1, 1)
	})
	assert.Panics(t, func() {
		//walks below row zero
		NewSlice(2, 4, -1)
	})
}

func Test_array(t *testing.T) {
	ri := NewArr32([]uint32{5, 1, 3}, false)
	require.Equal(t, KindArr32, ri.Kind())
	require.Equal(t, int64(3), ri.Len())
	assert.Equal(t, int64(5), ri.Get(0))
	assert.Equal(t, int64(1), ri.Get(1))
	assert.Equal(t, int64(3), ri.Get(2))

	//width picked by source row count
	small := NewArray([]int64{0, 2, 1}, 10, false)
	assert.Equal(t, KindArr32, small.Kind())
	big := NewArray([]int64{0, 2, 1}, int64(1)<<40, false)
	assert.Equal(t, KindArr64, big.Kind())
}

func Test_arrayBounds(t *testing.T) {
	assert.Panics(t, func() {
		NewArray([]int64{0, 10}, 10, false)
	})
	assert.Panics(t, func() {
		NewArray([]int64{-1}, 10, false)
	})
}

func Test_toArray(t *testing.T) {
	ri := NewSlice(4, 3, 2)
	arr := ri.ToArray()
	require.Equal(t, KindArr32, arr.Kind())
	assert.Equal(t, []uint32{4, 6, 8}, arr.Arr32())

	//cached: repeated materialization returns the identical selector
	arr2 := ri.ToArray()
	assert.Same(t, arr, arr2)

	//array forms return themselves
	assert.Same(t, arr, arr.ToArray())
}

func Test_identity(t *testing.T) {
	id := Identity(4)
	for i := int64(0); i < 4; i++ {
		assert.Equal(t, i, id.Get(i))
	}
	assert.True(t, id.IsSorted())
}

func Test_composeSliceSlice(t *testing.T) {
	outer := NewSlice(10, 5, 2) //10 12 14 16 18
	inner := NewSlice(1, 2, 2)  //1 3
	ri := Compose(outer, inner)
	require.Equal(t, KindSlice, ri.Kind())
	assert.Equal(t, int64(12), ri.Get(0))
	assert.Equal(t, int64(16), ri.Get(1))
}

func Test_composeSliceArray(t *testing.T) {
	//Slice(start=2, count=3, step=1) over 10 rows composed with
	//Array[0,2,1] selects original rows [2,4,3]
	outer := NewSlice(2, 3, 1)
	inner := NewArr32([]uint32{0, 2, 1}, false)
	ri := Compose(outer, inner)
	require.Equal(t, int64(3), ri.Len())
	assert.Equal(t, int64(2), ri.Get(0))
	assert.Equal(t, int64(4), ri.Get(1))
	assert.Equal(t, int64(3), ri.Get(2))
}

func Test_composeOutOfBounds(t *testing.T) {
	outer := NewSlice(0, 3, 1)
	inner := NewArr32([]uint32{0, 3}, false)
	assert.Panics(t, func() {
		Compose(outer, inner)
	})
}

func randomSelector(rng *rand.Rand, bound int64) *RowIndex {
	if bound <= 0 {
		return NewSlice(0, 0, 1)
	}
	if rng.Intn(2) == 0 {
		start := rng.Int63n(bound)
		maxCount := bound - start
		count := rng.Int63n(maxCount + 1)
		step := int64(0)
		if count > 1 {
			step = rng.Int63n((bound-1-start)/(count-1) + 1)
		}
		return NewSlice(start, count, step)
	}
	count := rng.Int63n(bound + 1)
	arr := make([]uint32, count)
	for i := range arr {
		arr[i] = uint32(rng.Int63n(bound))
	}
	return NewArr32(arr, false)
}

func Test_composeAssociative(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		a := randomSelector(rng, 50)
		b := randomSelector(rng, a.Len())
		c := randomSelector(rng, b.Len())

		lhs := Compose(Compose(a, b), c)
		rhs := Compose(a, Compose(b, c))
		require.Equal(t, lhs.Len(), rhs.Len())
		for i := int64(0); i < lhs.Len(); i++ {
			require.Equal(t, lhs.Get(i), rhs.Get(i))
		}
	}
}

func Test_roundTrip(t *testing.T) {
	ri := NewSlice(3, 4, 3) //3 6 9 12
	arr := ri.ToArray()

	//a materialized slice re-expressed as a slice selects the same rows
	back := NewSlice(int64(arr.Arr32()[0]), arr.Len(), 3)
	for i := int64(0); i < ri.Len(); i++ {
		assert.Equal(t, ri.Get(i), back.Get(i))
	}
}
