package table

import (
	"github.com/gorgemul/rqlite/pager"
	"github.com/gorgemul/rqlite/row"
)

const (
	// Common node header layout: kind(1) + isRoot(1) + parentPage(4) + numCells(4).
	NodeKindSize     = 1
	NodeKindOffset   = 0
	IsRootSize       = 1
	IsRootOffset     = NodeKindOffset + NodeKindSize
	ParentPageSize   = 4
	ParentPageOffset = IsRootOffset + IsRootSize
	NumCellsSize     = 4
	NumCellsOffset   = ParentPageOffset + ParentPageSize
	NodeHeaderSize   = NumCellsOffset + NumCellsSize // 10

	// Leaf node header adds next_leaf_page after the common header.
	NextLeafPageSize   = 4
	NextLeafPageOffset = NodeHeaderSize
	LeafNodeHeaderSize = NodeHeaderSize + NextLeafPageSize // 14

	// Internal node header adds right_child_page after the common header.
	RightChildPageSize     = 4
	RightChildPageOffset   = NodeHeaderSize
	InternalNodeHeaderSize = NodeHeaderSize + RightChildPageSize // 14

	// Leaf node body: key(8) + serialized row.
	LeafNodeKeySize   = 8
	LeafNodeKeyOffset = 0

	// Internal node body: child page(4) + separator key(8).
	InternalCellChildSize = 4
	InternalCellKeySize   = 8
	InternalCellSize      = InternalCellChildSize + InternalCellKeySize // 12
)

// LeafNodeCellSize is the key-plus-row width of a leaf cell (304 bytes).
func LeafNodeCellSize() uint32 {
	return LeafNodeKeySize + uint32(row.Size)
}

// LeafNodeSpaceForCells is the bytes left in a page for leaf cells after
// the leaf header (4082 bytes).
func LeafNodeSpaceForCells() uint32 {
	return pager.PageSize - LeafNodeHeaderSize
}

// LeafNodeCellMaxNum is LEAF_MAX: the maximum number of cells a leaf page
// can hold for the fixed row width (13).
func LeafNodeCellMaxNum() uint32 {
	return LeafNodeSpaceForCells() / LeafNodeCellSize()
}

// InternalNodeSpaceForCells is the bytes left in a page for internal
// entries after the internal header.
func InternalNodeSpaceForCells() uint32 {
	return pager.PageSize - InternalNodeHeaderSize
}

// InternalNodeCellMaxNum bounds how many (child, key) entries an internal
// node can hold. Overflowing it is the unimplemented internal-node split
// case: the façade surfaces TABLE_FULL rather than cascade the split.
func InternalNodeCellMaxNum() uint32 {
	return InternalNodeSpaceForCells() / InternalCellSize
}
