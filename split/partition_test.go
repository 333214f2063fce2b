package split

import "testing"

func TestPartitionSeparatesMissingAndSides(t *testing.T) {
	// rows 0..5; classify: row 0 missing, even rows go left, odd go right.
	ixArr := []int32{0, 1, 2, 3, 4, 5}
	classify := func(row int32) (missing, left bool) {
		if row == 0 {
			return true, false
		}
		return false, row%2 == 0
	}
	naEnd, splitIx := Partition(ixArr, 0, 6, classify)
	if naEnd != 1 {
		t.Fatalf("naEnd = %d, want 1", naEnd)
	}
	if ixArr[0] != 0 {
		t.Fatalf("missing row not at front: %v", ixArr)
	}
	for i := int32(0); i < naEnd; i++ {
		if m, _ := classify(ixArr[i]); !m {
			t.Errorf("row %d in NA band is not missing", ixArr[i])
		}
	}
	for i := naEnd; i < splitIx; i++ {
		if _, left := classify(ixArr[i]); !left {
			t.Errorf("row %d in left band classified right", ixArr[i])
		}
	}
	for i := splitIx; i < 6; i++ {
		if _, left := classify(ixArr[i]); left {
			t.Errorf("row %d in right band classified left", ixArr[i])
		}
	}
}

func TestPartitionNoMissing(t *testing.T) {
	ixArr := []int32{3, 1, 4, 1, 5, 9, 2, 6}
	classify := func(row int32) (missing, left bool) {
		return false, row < 4
	}
	naEnd, splitIx := Partition(ixArr, 0, int32(len(ixArr)), classify)
	if naEnd != 0 {
		t.Fatalf("naEnd = %d, want 0 (no missing rows)", naEnd)
	}
	for i := int32(0); i < splitIx; i++ {
		if ixArr[i] >= 4 {
			t.Errorf("row %d should be in left band", ixArr[i])
		}
	}
	for i := splitIx; i < int32(len(ixArr)); i++ {
		if ixArr[i] < 4 {
			t.Errorf("row %d should be in right band", ixArr[i])
		}
	}
}
