package table

import (
	"fmt"
	"strings"

	"github.com/gorgemul/rqlite/pager"
	"github.com/gorgemul/rqlite/row"
	"github.com/pkg/errors"
)

// rootPage is always 0: its page number never changes even after the
// root transitions from leaf to internal.
const rootPage uint32 = 0

// ErrDuplicateKey is returned by Insert when the key already exists.
var ErrDuplicateKey = errors.New("key already exists")

// ErrParentSplitUnsupported is returned when a leaf split would need to
// insert a separator into an already-full internal node. Recursive
// internal-node splitting isn't implemented; rather than risk corrupting
// the tree, the operation is refused before any page is mutated.
var ErrParentSplitUnsupported = errors.New("internal-node split not yet supported")

// BTree is the key-ordered index built on the node layer. The root page
// number is fixed at 0; everything else is reached through the pager.
type BTree struct {
	pager *pager.Pager
}

// OpenBTree opens an existing tree or, for a brand-new file, initializes
// page 0 as an empty root leaf.
func OpenBTree(p *pager.Pager) (*BTree, error) {
	t := &BTree{pager: p}
	if p.NumPages == 0 {
		pn, err := p.AllocatePage()
		if err != nil {
			return nil, errors.Wrap(err, "btree: allocate root page")
		}
		if pn != rootPage {
			return nil, errors.Errorf("btree: expected root page 0, got %d", pn)
		}
		root := initLeaf(rootPage, true)
		page, err := p.GetPage(rootPage)
		if err != nil {
			return nil, err
		}
		if err := root.Serialize(page); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *BTree) loadLeaf(pageNum uint32) (*LeafNode, error) {
	page, err := t.pager.GetPage(pageNum)
	if err != nil {
		return nil, err
	}
	n := &LeafNode{}
	if err := n.Load(page); err != nil {
		return nil, err
	}
	return n, nil
}

func (t *BTree) loadInternal(pageNum uint32) (*InternalNode, error) {
	page, err := t.pager.GetPage(pageNum)
	if err != nil {
		return nil, err
	}
	n := &InternalNode{}
	if err := n.Load(page); err != nil {
		return nil, err
	}
	return n, nil
}

func (t *BTree) isLeafPage(pageNum uint32) (bool, error) {
	page, err := t.pager.GetPage(pageNum)
	if err != nil {
		return false, err
	}
	switch nodeKind(page.Data[:]) {
	case nodeKindLeaf:
		return true, nil
	case nodeKindInternal:
		return false, nil
	default:
		return false, errors.Wrapf(ErrCorruption, "page %d: unknown kind %d", pageNum, nodeKind(page.Data[:]))
	}
}

// Cursor is a position (page_num, cell_index) into the tree, with an
// end-of-table flag for ordered traversal.
type Cursor struct {
	tree       *BTree
	PageNum    uint32
	CellIndex  int
	EndOfTable bool
}

// Find descends from the root to the leaf that would contain key and
// returns a cursor positioned at the smallest cell index whose key is
// >= key (or at num_cells, the insertion point past every existing key).
func (t *BTree) Find(key uint64) (*Cursor, error) {
	pn := rootPage
	for {
		isLeaf, err := t.isLeafPage(pn)
		if err != nil {
			return nil, err
		}
		if isLeaf {
			leaf, err := t.loadLeaf(pn)
			if err != nil {
				return nil, err
			}
			return &Cursor{tree: t, PageNum: pn, CellIndex: leaf.search(key)}, nil
		}
		in, err := t.loadInternal(pn)
		if err != nil {
			return nil, err
		}
		pn = in.childForKey(key)
	}
}

// Start returns a cursor at the leftmost leaf's first cell.
func (t *BTree) Start() (*Cursor, error) {
	pn := rootPage
	for {
		isLeaf, err := t.isLeafPage(pn)
		if err != nil {
			return nil, err
		}
		if isLeaf {
			leaf, err := t.loadLeaf(pn)
			if err != nil {
				return nil, err
			}
			return &Cursor{tree: t, PageNum: pn, CellIndex: 0, EndOfTable: leaf.NumCells() == 0}, nil
		}
		in, err := t.loadInternal(pn)
		if err != nil {
			return nil, err
		}
		if len(in.cells) > 0 {
			pn = in.cells[0].ChildPage
		} else {
			pn = in.rightChildPage
		}
	}
}

// Advance moves the cursor to the next cell in key order, crossing into
// the next leaf via next_leaf_page when the current leaf is exhausted.
func (c *Cursor) Advance() error {
	if c.EndOfTable {
		return nil
	}
	leaf, err := c.tree.loadLeaf(c.PageNum)
	if err != nil {
		return err
	}
	c.CellIndex++
	if c.CellIndex < leaf.NumCells() {
		return nil
	}
	if leaf.NextLeafPage() == 0 {
		c.EndOfTable = true
		return nil
	}
	c.PageNum = leaf.NextLeafPage()
	c.CellIndex = 0
	return nil
}

// Value decodes the row at the cursor's current position.
func (c *Cursor) Value() (row.Row, error) {
	leaf, err := c.tree.loadLeaf(c.PageNum)
	if err != nil {
		return row.Row{}, err
	}
	if c.CellIndex >= leaf.NumCells() {
		return row.Row{}, errors.Errorf("btree: cursor cell index %d out of range (num_cells=%d)", c.CellIndex, leaf.NumCells())
	}
	return leaf.cells[c.CellIndex].Value, nil
}

// Insert adds key/r to the tree, splitting the target leaf (and creating
// a new root, if the leaf was the root) as needed.
func (t *BTree) Insert(key uint64, r row.Row) error {
	cur, err := t.Find(key)
	if err != nil {
		return err
	}
	leaf, err := t.loadLeaf(cur.PageNum)
	if err != nil {
		return err
	}
	if cur.CellIndex < leaf.NumCells() && leaf.cells[cur.CellIndex].Key == key {
		return ErrDuplicateKey
	}

	if leaf.NumCells() < int(LeafNodeCellMaxNum()) {
		leaf.insertAt(cur.CellIndex, key, r)
		page, err := t.pager.GetPage(leaf.Page())
		if err != nil {
			return err
		}
		return leaf.Serialize(page)
	}

	return t.splitLeafAndInsert(leaf, cur.CellIndex, key, r)
}

// splitLeafAndInsert splits an over-full leaf: the LEAF_MAX existing
// cells plus the incoming one are distributed so the new right leaf gets
// the upper half and the old leaf keeps the lower half.
func (t *BTree) splitLeafAndInsert(leaf *LeafNode, insertIdx int, key uint64, r row.Row) error {
	combined := make([]LeafCell, 0, len(leaf.cells)+1)
	combined = append(combined, leaf.cells[:insertIdx]...)
	combined = append(combined, LeafCell{Key: key, Value: r})
	combined = append(combined, leaf.cells[insertIdx:]...)

	total := len(combined)
	rightCount := (total + 1) / 2 // ceil(total/2)
	splitAt := total - rightCount

	if !leaf.IsRoot() {
		parent, err := t.loadInternal(leaf.ParentPage())
		if err != nil {
			return err
		}
		if len(parent.cells)+1 > int(InternalNodeCellMaxNum()) {
			return ErrParentSplitUnsupported
		}
	}

	rightPageNum, err := t.pager.AllocatePage()
	if err != nil {
		return err
	}

	leftCells := combined[:splitAt]
	rightCells := combined[splitAt:]

	rightLeaf := initLeaf(rightPageNum, false)
	rightLeaf.cells = rightCells
	rightLeaf.SetNextLeafPage(leaf.NextLeafPage())

	leaf.cells = leftCells
	leaf.SetNextLeafPage(rightPageNum)

	if leaf.IsRoot() {
		return t.createNewRoot(leaf, rightLeaf)
	}
	return t.spliceIntoParent(leaf, rightLeaf)
}

// createNewRoot handles the "old leaf was the root" case: the old root's
// contents move to a freshly allocated page L, and page 0 (which never
// moves) is re-initialized in place as the internal root.
func (t *BTree) createNewRoot(oldRoot *LeafNode, rightLeaf *LeafNode) error {
	lPageNum, err := t.pager.AllocatePage()
	if err != nil {
		return err
	}

	left := initLeaf(lPageNum, false)
	left.cells = oldRoot.cells
	left.SetNextLeafPage(oldRoot.NextLeafPage())
	left.SetParentPage(rootPage)
	leftPage, err := t.pager.GetPage(lPageNum)
	if err != nil {
		return err
	}
	if err := left.Serialize(leftPage); err != nil {
		return err
	}

	rightLeaf.SetParentPage(rootPage)
	rightPage, err := t.pager.GetPage(rightLeaf.Page())
	if err != nil {
		return err
	}
	if err := rightLeaf.Serialize(rightPage); err != nil {
		return err
	}

	newRoot := initInternal(rootPage, true)
	newRoot.cells = []InternalCell{{ChildPage: lPageNum, Key: left.MaxKey()}}
	newRoot.SetRightChildPage(rightLeaf.Page())
	rootPg, err := t.pager.GetPage(rootPage)
	if err != nil {
		return err
	}
	return newRoot.Serialize(rootPg)
}

// spliceIntoParent handles the "old leaf was not the root" case. If the
// old leaf was the parent's rightmost child, a fresh entry for the old
// leaf is inserted in sorted order and the right sibling becomes the new
// rightmost child; otherwise the old leaf's separator is refreshed and a
// new entry for the right sibling is inserted in sorted order.
func (t *BTree) spliceIntoParent(leaf *LeafNode, rightLeaf *LeafNode) error {
	parent, err := t.loadInternal(leaf.ParentPage())
	if err != nil {
		return err
	}

	rightLeaf.SetParentPage(leaf.ParentPage())

	leafPage, err := t.pager.GetPage(leaf.Page())
	if err != nil {
		return err
	}
	if err := leaf.Serialize(leafPage); err != nil {
		return err
	}
	rightPage, err := t.pager.GetPage(rightLeaf.Page())
	if err != nil {
		return err
	}
	if err := rightLeaf.Serialize(rightPage); err != nil {
		return err
	}

	if parent.RightChildPage() == leaf.Page() {
		parent.insertEntry(leaf.Page(), leaf.MaxKey())
		parent.SetRightChildPage(rightLeaf.Page())
	} else {
		parent.updateChildKey(leaf.Page(), leaf.MaxKey())
		parent.insertEntry(rightLeaf.Page(), rightLeaf.MaxKey())
	}

	parentPage, err := t.pager.GetPage(parent.Page())
	if err != nil {
		return err
	}
	return parent.Serialize(parentPage)
}

// DumpTree renders the tree as a recursive pre-order listing for the
// `.tree` diagnostic command.
func (t *BTree) DumpTree() (string, error) {
	var b strings.Builder
	if err := t.dumpNode(&b, rootPage, 0); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (t *BTree) dumpNode(b *strings.Builder, pageNum uint32, indent int) error {
	pad := strings.Repeat("  ", indent)
	isLeaf, err := t.isLeafPage(pageNum)
	if err != nil {
		return err
	}
	if isLeaf {
		leaf, err := t.loadLeaf(pageNum)
		if err != nil {
			return err
		}
		fmt.Fprintf(b, "%s- leaf (size %d)\n", pad, leaf.NumCells())
		for _, c := range leaf.cells {
			fmt.Fprintf(b, "%s  - %d\n", pad, c.Key)
		}
		return nil
	}

	in, err := t.loadInternal(pageNum)
	if err != nil {
		return err
	}
	fmt.Fprintf(b, "%s- internal (size %d)\n", pad, in.NumCells())
	for _, c := range in.cells {
		if err := t.dumpNode(b, c.ChildPage, indent+1); err != nil {
			return err
		}
		fmt.Fprintf(b, "%s  - key %d\n", pad, c.Key)
	}
	return t.dumpNode(b, in.RightChildPage(), indent+1)
}
