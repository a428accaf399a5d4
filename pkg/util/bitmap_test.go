package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_entryCount(t *testing.T) {
	assert.Equal(t, 0, EntryCount(0))
	assert.Equal(t, 1, EntryCount(1))
	assert.Equal(t, 1, EntryCount(8))
	assert.Equal(t, 2, EntryCount(9))
}

func Test_emptyMaskAllValid(t *testing.T) {
	var bm Bitmap
	assert.True(t, bm.AllValid())
	assert.True(t, bm.RowIsValid(0))
	assert.True(t, bm.RowIsValid(1000))
	//no-ops on the empty mask
	bm.SetInvalid(3)
	assert.True(t, bm.RowIsValid(3))
}

func Test_setInvalid(t *testing.T) {
	var bm Bitmap
	bm.Init(20)
	assert.False(t, bm.AllValid())
	for i := uint64(0); i < 20; i++ {
		assert.True(t, bm.RowIsValid(i))
	}
	bm.SetInvalid(0)
	bm.SetInvalid(9)
	bm.SetInvalid(19)
	assert.False(t, bm.RowIsValid(0))
	assert.False(t, bm.RowIsValid(9))
	assert.False(t, bm.RowIsValid(19))
	assert.True(t, bm.RowIsValid(1))

	bm.SetValid(9)
	assert.True(t, bm.RowIsValid(9))

	bm.Set(2, false)
	bm.Set(0, true)
	assert.False(t, bm.RowIsValid(2))
	assert.True(t, bm.RowIsValid(0))
}
