package service

import (
	"fmt"

	"github.com/wladi27/biblioteca-virtual-backend/internal/models"
)

// PlacementConfig bounds the optimistic slot-claim loop.
type PlacementConfig struct {
	// ScanBatch is how many open-slot parents are fetched per scan.
	ScanBatch int
	// MaxRetries is how many full scans are attempted before giving up with
	// ErrConflict.
	MaxRetries int
}

func (c *PlacementConfig) defaults() {
	if c.ScanBatch <= 0 {
		c.ScanBatch = 50
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
}

// TreePlacement assigns members to the ternary tree. Slot claims are
// conditional store updates; when two placements race for the same slot the
// loser moves on to the next candidate parent.
type TreePlacement struct {
	members MemberStore
	cfg     PlacementConfig
}

func NewTreePlacement(members MemberStore, cfg PlacementConfig) *TreePlacement {
	cfg.defaults()
	return &TreePlacement{members: members, cfg: cfg}
}

// Placement is the outcome of PlaceNewMember.
type Placement struct {
	ParentID *uint
	Level    int
}

// PlaceNewMember attaches the member to the first parent (by creation
// order) with an open child slot. The first placed member becomes the root
// at level 1. Level is depth: one below the chosen parent.
func (e *TreePlacement) PlaceNewMember(memberID uint) (*Placement, error) {
	m, err := e.members.GetByID(memberID)
	if err != nil {
		return nil, ErrNotFound
	}
	if m.ParentID != nil || m.Level > 0 {
		return nil, ErrAlreadyPlaced
	}

	// A claim that lost its level assignment (failure between the two
	// updates) is completed here instead of claiming a second slot.
	holder, err := e.members.ParentHolding(m.ID)
	if err != nil {
		return nil, err
	}
	if holder != nil {
		level := holder.Level + 1
		if err := e.members.AssignPlacement(m.ID, &holder.ID, level); err != nil {
			return nil, err
		}
		return &Placement{ParentID: &holder.ID, Level: level}, nil
	}

	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		parents, err := e.members.FindOpenParents(e.cfg.ScanBatch)
		if err != nil {
			return nil, fmt.Errorf("scan open parents: %w", err)
		}
		if len(parents) == 0 {
			ok, err := e.members.ClaimRoot(m.ID)
			if err != nil {
				return nil, err
			}
			if ok {
				return &Placement{ParentID: nil, Level: 1}, nil
			}
			// Another member was placed between scans; scan again.
			continue
		}
		for i := range parents {
			p := &parents[i]
			if p.ID == m.ID {
				continue
			}
			slot := firstOpenSlot(p)
			if slot == 0 {
				continue
			}
			ok, err := e.members.ClaimChildSlot(p.ID, slot, m.ID)
			if err != nil {
				return nil, fmt.Errorf("claim slot %d of member %d: %w", slot, p.ID, err)
			}
			if !ok {
				// Lost the race for this slot; try the next parent.
				continue
			}
			level := p.Level + 1
			if err := e.members.AssignPlacement(m.ID, &p.ID, level); err != nil {
				return nil, err
			}
			return &Placement{ParentID: &p.ID, Level: level}, nil
		}
	}
	return nil, ErrConflict
}

func firstOpenSlot(m *models.Member) int {
	switch {
	case m.Child1ID == nil:
		return 1
	case m.Child2ID == nil:
		return 2
	case m.Child3ID == nil:
		return 3
	}
	return 0
}

// TreeNode is one node of a subtree view.
type TreeNode struct {
	ID          uint        `json:"id"`
	DisplayName string      `json:"display_name"`
	Level       int         `json:"level"`
	Children    []*TreeNode `json:"children"`
}

// BuildSubtree walks the child links from rootID down to maxDepth levels
// (maxDepth <= 0 means unbounded). The walk is an explicit queue, not
// recursion, so a large network cannot blow the stack. Each call re-reads
// from the store; callers needing repeated access should cache the result.
func (e *TreePlacement) BuildSubtree(rootID uint, maxDepth int) (*TreeNode, error) {
	root, err := e.members.GetByID(rootID)
	if err != nil {
		return nil, ErrNotFound
	}

	type item struct {
		id     uint
		depth  int
		parent *TreeNode
	}
	out := &TreeNode{ID: root.ID, DisplayName: root.FullName, Level: root.Level, Children: []*TreeNode{}}
	queue := make([]item, 0, 8)
	visited := map[uint]struct{}{root.ID: {}}
	for _, c := range root.Children() {
		queue = append(queue, item{id: c, depth: 1, parent: out})
	}
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		if maxDepth > 0 && it.depth > maxDepth {
			continue
		}
		if _, seen := visited[it.id]; seen {
			// Corrupt child links; skip instead of looping.
			continue
		}
		visited[it.id] = struct{}{}
		m, err := e.members.GetByID(it.id)
		if err != nil {
			continue
		}
		node := &TreeNode{ID: m.ID, DisplayName: m.FullName, Level: m.Level, Children: []*TreeNode{}}
		it.parent.Children = append(it.parent.Children, node)
		for _, c := range m.Children() {
			queue = append(queue, item{id: c, depth: it.depth + 1, parent: node})
		}
	}
	return out, nil
}

// HighestCompletedLevel returns the deepest level n for which all 3^(n-1)
// positions are filled, or 0 when not even the root exists.
func (e *TreePlacement) HighestCompletedLevel() (int, error) {
	counts, err := e.members.CountByLevel()
	if err != nil {
		return 0, err
	}
	level := 0
	capacity := int64(1)
	for {
		n := level + 1
		if counts[n] < capacity {
			return level, nil
		}
		level = n
		capacity *= 3
	}
}
