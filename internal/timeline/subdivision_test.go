package timeline

import "testing"

func TestBranchPositionsSingleParent(t *testing.T) {
	got := BranchPositions([]Property{{ID: "a"}})
	pos, ok := got["a"]
	if !ok {
		t.Fatalf("parent missing from layout")
	}
	if pos.Level != 0 || pos.YOffset != 0 || pos.TotalSiblings != 1 {
		t.Fatalf("parent position = %+v", pos)
	}
}

func TestBranchPositionsChildrenSortedByLot(t *testing.T) {
	got := BranchPositions([]Property{
		{ID: "parent"},
		{ID: "lot2", ParentPropertyID: "parent", LotNumber: "2"},
		{ID: "lot1", ParentPropertyID: "parent", LotNumber: "1"},
	})
	l1, l2 := got["lot1"], got["lot2"]
	if l1.SiblingIndex != 0 || l2.SiblingIndex != 1 {
		t.Fatalf("lot order: lot1=%d lot2=%d", l1.SiblingIndex, l2.SiblingIndex)
	}
	if l1.YOffset != parentChildVerticalGap {
		t.Fatalf("first child yOffset = %d, want %d", l1.YOffset, parentChildVerticalGap)
	}
	if l2.YOffset != parentChildVerticalGap+branchVerticalSpacing {
		t.Fatalf("second child yOffset = %d", l2.YOffset)
	}
	if l1.Level != 1 || l1.ParentID != "parent" || l1.TotalSiblings != 2 {
		t.Fatalf("child position = %+v", l1)
	}
}

func TestBranchPositionsSecondParentClearsChildren(t *testing.T) {
	got := BranchPositions([]Property{
		{ID: "p1"},
		{ID: "c1", ParentPropertyID: "p1", LotNumber: "1"},
		{ID: "c2", ParentPropertyID: "p1", LotNumber: "2"},
		{ID: "p2"},
	})
	wantY := parentChildVerticalGap + 2*branchVerticalSpacing
	if got["p2"].YOffset != wantY {
		t.Fatalf("second parent yOffset = %d, want %d", got["p2"].YOffset, wantY)
	}
}

func TestBranchPositionsParentWithoutChildrenAdvancesBySpacing(t *testing.T) {
	got := BranchPositions([]Property{{ID: "p1"}, {ID: "p2"}})
	if got["p2"].YOffset != branchVerticalSpacing {
		t.Fatalf("p2 yOffset = %d, want %d", got["p2"].YOffset, branchVerticalSpacing)
	}
}
