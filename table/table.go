// Package table implements the B+-tree-backed, single-table database
// façade: Open/Insert/SelectAll/Find/Close plus the diagnostic dumps the
// external REPL uses for its `.constants` and `.tree` meta-commands.
package table

import (
	"github.com/gorgemul/rqlite/pager"
	"github.com/gorgemul/rqlite/row"
	"github.com/pkg/errors"
)

// Table owns the pager and the tree built on top of it. There is exactly
// one table per backing file.
type Table struct {
	pager *pager.Pager
	tree  *BTree
}

// Open opens path, initializing a fresh empty root leaf if the file is
// new, or attaching to the existing tree otherwise.
func Open(path string) (*Table, error) {
	p, err := pager.OpenPager(path)
	if err != nil {
		return nil, err
	}
	tree, err := OpenBTree(p)
	if err != nil {
		return nil, err
	}
	return &Table{pager: p, tree: tree}, nil
}

// Insert adds r under key r.ID. Fails with ErrDuplicateKey if the key is
// already present, or with a TABLE_FULL-class error (IsTableFull) if the
// pager has no more pages or a leaf split can't be absorbed by its parent.
func (t *Table) Insert(r row.Row) error {
	return t.tree.Insert(r.ID, r)
}

// IsTableFull reports whether err is one of the TABLE_FULL-class errors:
// the pager ran out of pages, or a leaf split needed an unsupported
// internal-node split.
func IsTableFull(err error) bool {
	return errors.Is(err, pager.ErrTableFull) || errors.Is(err, ErrParentSplitUnsupported)
}

// Find returns a cursor positioned at key's insertion point (whether or
// not key is actually present).
func (t *Table) Find(key uint64) (*Cursor, error) {
	return t.tree.Find(key)
}

// RowIterator is the lazy, ascending-key-order sequence returned by
// SelectAll.
type RowIterator struct {
	cur *Cursor
}

// Next returns the next row, or ok=false once the table is exhausted.
func (it *RowIterator) Next() (r row.Row, ok bool, err error) {
	if it.cur.EndOfTable {
		return row.Row{}, false, nil
	}
	r, err = it.cur.Value()
	if err != nil {
		return row.Row{}, false, err
	}
	if err := it.cur.Advance(); err != nil {
		return row.Row{}, false, err
	}
	return r, true, nil
}

// SelectAll returns an iterator over every row in ascending key order.
func (t *Table) SelectAll() (*RowIterator, error) {
	c, err := t.tree.Start()
	if err != nil {
		return nil, err
	}
	return &RowIterator{cur: c}, nil
}

// Constants is the set of layout constants `.constants` reports.
type Constants struct {
	RowSize               uint32
	NodeHeaderSize        uint32
	LeafNodeHeaderSize    uint32
	LeafNodeCellSize      uint32
	LeafNodeSpaceForCells uint32
	LeafNodeCellMaxNum    uint32
}

// DumpConstants exposes the layout constants for diagnostics.
func (t *Table) DumpConstants() Constants {
	return Constants{
		RowSize:               uint32(row.Size),
		NodeHeaderSize:        NodeHeaderSize,
		LeafNodeHeaderSize:    LeafNodeHeaderSize,
		LeafNodeCellSize:      LeafNodeCellSize(),
		LeafNodeSpaceForCells: LeafNodeSpaceForCells(),
		LeafNodeCellMaxNum:    LeafNodeCellMaxNum(),
	}
}

// DumpTree renders the tree's structure for the `.tree` meta-command.
func (t *Table) DumpTree() (string, error) {
	return t.tree.DumpTree()
}

// Close flushes every dirty page and closes the backing file.
func (t *Table) Close() error {
	return t.pager.Close()
}
