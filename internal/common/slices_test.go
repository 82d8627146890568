package common

import (
	"reflect"
	"testing"
)

func TestFilter(t *testing.T) {
	even := Filter([]int{1, 2, 3, 4, 5, 6}, func(i int) bool { return i%2 == 0 })
	if !reflect.DeepEqual(even, []int{2, 4, 6}) {
		t.Errorf("Filter() = %v, want %v", even, []int{2, 4, 6})
	}

	none := Filter([]int{1, 3}, func(i int) bool { return i%2 == 0 })
	if none == nil || len(none) != 0 {
		t.Errorf("Filter() = %v, want empty non-nil slice", none)
	}
}
