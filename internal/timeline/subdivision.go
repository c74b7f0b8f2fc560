package timeline

import "sort"

// Property is the slice of a timeline property the layout needs.
type Property struct {
	ID               string `json:"id"`
	ParentPropertyID string `json:"parentPropertyId,omitempty"`
	LotNumber        string `json:"lotNumber,omitempty"`
}

// BranchPosition is a property's vertical slot in the subdivision
// layout.
type BranchPosition struct {
	PropertyID    string `json:"propertyId"`
	Level         int    `json:"level"` // 0 for parent, 1 for children
	YOffset       int    `json:"yOffset"`
	ParentID      string `json:"parentId,omitempty"`
	SiblingIndex  int    `json:"siblingIndex"`
	TotalSiblings int    `json:"totalSiblings"`
}

const (
	branchVerticalSpacing  = 130 // pixels between sibling branches
	parentChildVerticalGap = 60  // pixels from parent to first child
)

// BranchPositions lays out parents and their subdivision children
// vertically. Parents keep input order; children sort by lot number and
// stack below their parent.
func BranchPositions(properties []Property) map[string]BranchPosition {
	positions := make(map[string]BranchPosition)

	childrenOf := make(map[string][]Property)
	var parents []Property
	for _, p := range properties {
		if p.ParentPropertyID == "" {
			parents = append(parents, p)
			continue
		}
		childrenOf[p.ParentPropertyID] = append(childrenOf[p.ParentPropertyID], p)
	}

	y := 0
	for _, parent := range parents {
		positions[parent.ID] = BranchPosition{
			PropertyID:    parent.ID,
			Level:         0,
			YOffset:       y,
			SiblingIndex:  0,
			TotalSiblings: 1,
		}

		children := childrenOf[parent.ID]
		if len(children) == 0 {
			y += branchVerticalSpacing
			continue
		}
		sort.SliceStable(children, func(i, j int) bool {
			if children[i].LotNumber != "" && children[j].LotNumber != "" {
				return children[i].LotNumber < children[j].LotNumber
			}
			return false
		})
		for i, child := range children {
			positions[child.ID] = BranchPosition{
				PropertyID:    child.ID,
				Level:         1,
				YOffset:       y + parentChildVerticalGap + i*branchVerticalSpacing,
				ParentID:      parent.ID,
				SiblingIndex:  i,
				TotalSiblings: len(children),
			}
		}
		y += parentChildVerticalGap + len(children)*branchVerticalSpacing
	}
	return positions
}
