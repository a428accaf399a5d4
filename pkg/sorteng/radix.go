package sorteng

import (
	"unsafe"

	"github.com/rowix/rowix/pkg/util"
)

const (
	valuesPerRadix         = 256
	msdRadixLocations      = valuesPerRadix + 1
	insertionSortThreshold = 24
)

// insertionSort stably sorts count entries of rowWidth bytes, comparing
// compWidth-offset bytes starting at offset. When swap is set the live data
// is in temp and is normalized back into orig.
func insertionSort(
	orig []byte,
	temp []byte,
	count int,
	rowWidth int,
	compWidth int,
	offset int,
	swap bool,
) {
	source, target := orig, temp
	if swap {
		source, target = temp, orig
	}

	if count > 1 {
		val := make([]byte, rowWidth)
		width := compWidth - offset
		for i := 1; i < count; i++ {
			copy(val, source[i*rowWidth:(i+1)*rowWidth])
			j := i
			for j > 0 &&
				memcmpAt(source, (j-1)*rowWidth+offset, val, offset, width) > 0 {
				copy(source[j*rowWidth:(j+1)*rowWidth], source[(j-1)*rowWidth:j*rowWidth])
				j--
			}
			copy(source[j*rowWidth:(j+1)*rowWidth], val)
		}
	}

	if swap {
		copy(target[:count*rowWidth], source[:count*rowWidth])
	}
}

func memcmpAt(a []byte, aOff int, b []byte, bOff int, width int) int {
	if width == 0 {
		return 0
	}
	return util.PointerMemcmp(
		unsafe.Pointer(&a[aOff]),
		unsafe.Pointer(&b[bOff]),
		width,
	)
}

// radixSortMSD sorts count entries by the digit at offset and recurses into
// the next digit for buckets above the insertion sort threshold. The counting
// scatter is stable. When swap is set the live data is in temp; all leaves
// normalize the result back into orig.
func radixSortMSD(
	orig []byte,
	temp []byte,
	count int,
	rowWidth int,
	compWidth int,
	offset int,
	swap bool,
) {
	source, target := orig, temp
	if swap {
		source, target = temp, orig
	}

	var locations [msdRadixLocations]uint64
	counts := locations[1:]
	pos := offset
	for i := 0; i < count; i++ {
		counts[source[pos]]++
		pos += rowWidth
	}

	maxCount := uint64(0)
	for radix := 0; radix < valuesPerRadix; radix++ {
		maxCount = max(maxCount, counts[radix])
		counts[radix] += locations[radix]
	}

	if maxCount != uint64(count) {
		rowPos := 0
		for i := 0; i < count; i++ {
			val := source[rowPos+offset]
			radixOffset := locations[val]
			locations[val]++
			copy(
				target[int(radixOffset)*rowWidth:int(radixOffset+1)*rowWidth],
				source[rowPos:rowPos+rowWidth],
			)
			rowPos += rowWidth
		}
		swap = !swap
	}

	if offset == compWidth-1 {
		if swap {
			copy(orig[:count*rowWidth], temp[:count*rowWidth])
		}
		return
	}

	if maxCount == uint64(count) {
		radixSortMSD(orig, temp, count, rowWidth, compWidth, offset+1, swap)
		return
	}

	radixCount := locations[0]
	for radix := 0; radix < valuesPerRadix; radix++ {
		loc := int(locations[radix]-radixCount) * rowWidth
		if radixCount > insertionSortThreshold {
			radixSortMSD(
				orig[loc:],
				temp[loc:],
				int(radixCount),
				rowWidth,
				compWidth,
				offset+1,
				swap,
			)
		} else if radixCount != 0 {
			insertionSort(
				orig[loc:],
				temp[loc:],
				int(radixCount),
				rowWidth,
				compWidth,
				offset+1,
				swap,
			)
		}
		radixCount = locations[radix+1] - locations[radix]
	}
}
