package rowindex

import (
	"unsafe"

	"github.com/rowix/rowix/pkg/column"
)

// View is the narrow surface exposed to an embedding host living in the same
// process. It describes a table's current selector plus the backing storage
// of one column, for zero-copy inspection. Nothing reached through a View may
// be mutated.
type View struct {
	Kind Kind

	//valid when Kind == KindSlice
	Start int64
	Count int64
	Step  int64

	//valid for array forms
	Indices    unsafe.Pointer
	IndexWidth int

	//raw handle to the column backing storage
	ColumnData unsafe.Pointer
}

func NewView(ri *RowIndex, col column.Column) View {
	view := View{
		Kind:  ri.kind,
		Count: ri.count,
	}
	switch ri.kind {
	case KindSlice:
		view.Start = ri.start
		view.Step = ri.step
	case KindArr32:
		if len(ri.arr32) > 0 {
			view.Indices = unsafe.Pointer(unsafe.SliceData(ri.arr32))
		}
		view.IndexWidth = 4
	case KindArr64:
		if len(ri.arr64) > 0 {
			view.Indices = unsafe.Pointer(unsafe.SliceData(ri.arr64))
		}
		view.IndexWidth = 8
	default:
		panic("usp")
	}
	if col != nil {
		view.ColumnData = col.RawData()
	}
	return view
}
