package table

import (
	"encoding/binary"
	"sort"

	"github.com/gorgemul/rqlite/pager"
	"github.com/gorgemul/rqlite/row"
	"github.com/pkg/errors"
)

// ErrCorruption is raised when the node layer finds an invalid kind byte
// or an out-of-range cell count while loading a page.
var ErrCorruption = errors.New("corrupt node")

// LeafCell is one (key, row) slot inside a leaf page.
type LeafCell struct {
	Key   uint64
	Value row.Row
}

// LeafNode is the in-memory, typed view over a leaf page.
type LeafNode struct {
	header       baseHeader
	nextLeafPage uint32
	cells        []LeafCell
}

func (n *LeafNode) Page() uint32    { return n.header.pageNum }
func (n *LeafNode) IsRoot() bool    { return n.header.isRoot }
func (n *LeafNode) NumCells() int   { return len(n.cells) }
func (n *LeafNode) ParentPage() uint32 { return n.header.parentPage }
func (n *LeafNode) SetParentPage(p uint32) { n.header.parentPage = p }
func (n *LeafNode) SetIsRoot(v bool)       { n.header.isRoot = v }
func (n *LeafNode) NextLeafPage() uint32       { return n.nextLeafPage }
func (n *LeafNode) SetNextLeafPage(p uint32)   { n.nextLeafPage = p }

// MaxKey returns the node's maximum key: the last cell's key, or 0 for an
// empty leaf (only the initial, empty root can be empty).
func (n *LeafNode) MaxKey() uint64 {
	if len(n.cells) == 0 {
		return 0
	}
	return n.cells[len(n.cells)-1].Key
}

// initLeaf initializes a fresh page as an empty leaf.
func initLeaf(pageNum uint32, isRoot bool) *LeafNode {
	return &LeafNode{header: baseHeader{pageNum: pageNum, isRoot: isRoot}}
}

// search returns the smallest index i such that key <= cells[i].Key (or
// len(cells) if key is greater than every cell's key).
func (n *LeafNode) search(key uint64) int {
	return sort.Search(len(n.cells), func(i int) bool { return key <= n.cells[i].Key })
}

// insertAt inserts a new cell at position i, shifting cells [i, len) right.
// Caller must ensure len(cells) < LeafNodeCellMaxNum() before calling.
func (n *LeafNode) insertAt(i int, key uint64, v row.Row) {
	n.cells = append(n.cells, LeafCell{})
	copy(n.cells[i+1:], n.cells[i:])
	n.cells[i] = LeafCell{Key: key, Value: v}
}

func (n *LeafNode) Serialize(p *pager.Page) error {
	for i := range p.Data {
		p.Data[i] = 0
	}
	n.header.numCells = uint32(len(n.cells))
	writeLeafHeader(p.Data[:LeafNodeHeaderSize], &n.header, n.nextLeafPage)

	off := int(LeafNodeHeaderSize)
	cellSize := int(LeafNodeCellSize())
	for _, c := range n.cells {
		binary.LittleEndian.PutUint64(p.Data[off:off+LeafNodeKeySize], c.Key)
		if err := row.Encode(c.Value, p.Data[off+LeafNodeKeySize:off+cellSize]); err != nil {
			return errors.Wrap(err, "leaf node: encode row")
		}
		off += cellSize
	}
	p.Dirty = true
	return nil
}

func (n *LeafNode) Load(p *pager.Page) error {
	if nodeKind(p.Data[:]) != nodeKindLeaf {
		return errors.Wrapf(ErrCorruption, "page %d: not a leaf (kind=%d)", p.PageNum, nodeKind(p.Data[:]))
	}
	n.header.pageNum = p.PageNum
	n.nextLeafPage = readLeafHeader(p.Data[:LeafNodeHeaderSize], &n.header)
	if n.header.numCells > LeafNodeCellMaxNum() {
		return errors.Wrapf(ErrCorruption, "page %d: num_cells %d exceeds max %d", p.PageNum, n.header.numCells, LeafNodeCellMaxNum())
	}

	cnt := int(n.header.numCells)
	n.cells = make([]LeafCell, cnt)
	off := int(LeafNodeHeaderSize)
	cellSize := int(LeafNodeCellSize())
	for i := 0; i < cnt; i++ {
		key := binary.LittleEndian.Uint64(p.Data[off : off+LeafNodeKeySize])
		r, err := row.Decode(p.Data[off+LeafNodeKeySize : off+cellSize])
		if err != nil {
			return errors.Wrap(err, "leaf node: decode row")
		}
		n.cells[i] = LeafCell{Key: key, Value: r}
		off += cellSize
	}
	return nil
}

// InternalCell is one (child_page, separator_key) entry inside an
// internal page.
type InternalCell struct {
	ChildPage uint32
	Key       uint64
}

// InternalNode is the in-memory, typed view over an internal page.
type InternalNode struct {
	header         baseHeader
	rightChildPage uint32
	cells          []InternalCell
}

func (n *InternalNode) Page() uint32        { return n.header.pageNum }
func (n *InternalNode) IsRoot() bool        { return n.header.isRoot }
func (n *InternalNode) NumCells() int       { return len(n.cells) }
func (n *InternalNode) ParentPage() uint32  { return n.header.parentPage }
func (n *InternalNode) SetParentPage(p uint32) { n.header.parentPage = p }
func (n *InternalNode) SetIsRoot(v bool)       { n.header.isRoot = v }
func (n *InternalNode) RightChildPage() uint32     { return n.rightChildPage }
func (n *InternalNode) SetRightChildPage(p uint32) { n.rightChildPage = p }

// MaxKey returns the node's maximum key: the last entry's key.
func (n *InternalNode) MaxKey() uint64 {
	return n.cells[len(n.cells)-1].Key
}

func initInternal(pageNum uint32, isRoot bool) *InternalNode {
	return &InternalNode{header: baseHeader{pageNum: pageNum, isRoot: isRoot}}
}

// childForKey picks the child page to descend into for key: the first
// entry whose key is >= key, or the rightmost child if key exceeds every
// entry's key.
func (n *InternalNode) childForKey(key uint64) uint32 {
	i := sort.Search(len(n.cells), func(i int) bool { return key <= n.cells[i].Key })
	if i < len(n.cells) {
		return n.cells[i].ChildPage
	}
	return n.rightChildPage
}

// insertEntry splices a new (childPage, key) entry into sorted position.
func (n *InternalNode) insertEntry(childPage uint32, key uint64) {
	i := sort.Search(len(n.cells), func(i int) bool { return key <= n.cells[i].Key })
	n.cells = append(n.cells, InternalCell{})
	copy(n.cells[i+1:], n.cells[i:])
	n.cells[i] = InternalCell{ChildPage: childPage, Key: key}
}

// updateChildKey rewrites the separator key for the entry whose child is
// childPage, used when a left child's max key changes after a split.
func (n *InternalNode) updateChildKey(childPage uint32, newKey uint64) bool {
	for i := range n.cells {
		if n.cells[i].ChildPage == childPage {
			n.cells[i].Key = newKey
			return true
		}
	}
	return false
}

func (n *InternalNode) Serialize(p *pager.Page) error {
	for i := range p.Data {
		p.Data[i] = 0
	}
	n.header.numCells = uint32(len(n.cells))
	writeInternalHeader(p.Data[:InternalNodeHeaderSize], &n.header, n.rightChildPage)

	off := int(InternalNodeHeaderSize)
	for _, c := range n.cells {
		binary.LittleEndian.PutUint32(p.Data[off:off+InternalCellChildSize], c.ChildPage)
		binary.LittleEndian.PutUint64(p.Data[off+InternalCellChildSize:off+InternalCellSize], c.Key)
		off += InternalCellSize
	}
	p.Dirty = true
	return nil
}

func (n *InternalNode) Load(p *pager.Page) error {
	if nodeKind(p.Data[:]) != nodeKindInternal {
		return errors.Wrapf(ErrCorruption, "page %d: not internal (kind=%d)", p.PageNum, nodeKind(p.Data[:]))
	}
	n.header.pageNum = p.PageNum
	n.rightChildPage = readInternalHeader(p.Data[:InternalNodeHeaderSize], &n.header)
	if n.header.numCells > InternalNodeCellMaxNum() {
		return errors.Wrapf(ErrCorruption, "page %d: num_cells %d exceeds max %d", p.PageNum, n.header.numCells, InternalNodeCellMaxNum())
	}

	cnt := int(n.header.numCells)
	n.cells = make([]InternalCell, cnt)
	off := int(InternalNodeHeaderSize)
	for i := 0; i < cnt; i++ {
		child := binary.LittleEndian.Uint32(p.Data[off : off+InternalCellChildSize])
		key := binary.LittleEndian.Uint64(p.Data[off+InternalCellChildSize : off+InternalCellSize])
		n.cells[i] = InternalCell{ChildPage: child, Key: key}
		off += InternalCellSize
	}
	return nil
}
