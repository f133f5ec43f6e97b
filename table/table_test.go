package table

import (
	"os"
	"testing"

	"github.com/gorgemul/rqlite/pager"
	"github.com/gorgemul/rqlite/row"
	"github.com/stretchr/testify/require"
)

func newTempTable(t *testing.T) (*Table, string) {
	t.Helper()
	f, err := os.CreateTemp("", "table_test-*.db")
	require.NoError(t, err)
	path := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(path) })

	tbl, err := Open(path)
	require.NoError(t, err)
	return tbl, path
}

func TestOpenCreatesEmptyTable(t *testing.T) {
	tbl, _ := newTempTable(t)
	defer tbl.Close()

	it, err := tbl.SelectAll()
	require.NoError(t, err)
	_, ok, err := it.Next()
	require.NoError(t, err)
	require.False(t, ok, "fresh table should have no rows")
}

func TestInsertAndSelectAll(t *testing.T) {
	tbl, _ := newTempTable(t)
	defer tbl.Close()

	want := []row.Row{
		{ID: 3, Name: "charlie", Description: "third"},
		{ID: 1, Name: "alice", Description: "first"},
		{ID: 2, Name: "bob", Description: "second"},
	}
	for _, r := range want {
		require.NoError(t, tbl.Insert(r))
	}

	it, err := tbl.SelectAll()
	require.NoError(t, err)

	var got []row.Row
	for {
		r, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, r)
	}

	require.Equal(t, []row.Row{
		{ID: 1, Name: "alice", Description: "first"},
		{ID: 2, Name: "bob", Description: "second"},
		{ID: 3, Name: "charlie", Description: "third"},
	}, got)
}

func TestInsertDuplicateKeyReturnsErrDuplicateKey(t *testing.T) {
	tbl, _ := newTempTable(t)
	defer tbl.Close()

	r := row.Row{ID: 1, Name: "alice", Description: "first"}
	require.NoError(t, tbl.Insert(r))

	err := tbl.Insert(r)
	require.ErrorIs(t, err, ErrDuplicateKey)
}

func TestFindLocatesInsertedRow(t *testing.T) {
	tbl, _ := newTempTable(t)
	defer tbl.Close()

	r := row.Row{ID: 42, Name: "answer", Description: "life"}
	require.NoError(t, tbl.Insert(r))

	cur, err := tbl.Find(42)
	require.NoError(t, err)
	got, err := cur.Value()
	require.NoError(t, err)
	require.Equal(t, r, got)
}

func TestDumpConstants(t *testing.T) {
	tbl, _ := newTempTable(t)
	defer tbl.Close()

	c := tbl.DumpConstants()
	require.Equal(t, uint32(row.Size), c.RowSize)
	require.Equal(t, uint32(10), c.NodeHeaderSize)
	require.Equal(t, uint32(14), c.LeafNodeHeaderSize)
	require.Equal(t, uint32(304), c.LeafNodeCellSize)
	require.Equal(t, uint32(4082), c.LeafNodeSpaceForCells)
	require.Equal(t, uint32(13), c.LeafNodeCellMaxNum)
}

// TestPersistenceAcrossReopen checks that rows survive a Close and a
// fresh Open against the same file.
func TestPersistenceAcrossReopen(t *testing.T) {
	tbl, path := newTempTable(t)

	for i := uint64(1); i <= 20; i++ {
		require.NoError(t, tbl.Insert(row.Row{ID: i, Name: "n", Description: "d"}))
	}
	require.NoError(t, tbl.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	it, err := reopened.SelectAll()
	require.NoError(t, err)
	var got []uint64
	for {
		r, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, r.ID)
	}
	want := make([]uint64, 0, 20)
	for i := uint64(1); i <= 20; i++ {
		want = append(want, i)
	}
	require.Equal(t, want, got)
}

// TestCloseFlushesPageAlignedFile checks that every allocated page is
// written out: the file length after Close is an exact multiple of
// pager.PageSize and accounts for every page the tree allocated.
func TestCloseFlushesPageAlignedFile(t *testing.T) {
	tbl, path := newTempTable(t)

	max := int(LeafNodeCellMaxNum())
	for i := 1; i <= max+1; i++ {
		require.NoError(t, tbl.Insert(row.Row{ID: uint64(i), Name: "n", Description: "d"}))
	}
	require.NoError(t, tbl.Close())

	fi, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(0), fi.Size()%pager.PageSize, "file size must be page-aligned")
	require.Equal(t, int64(3)*pager.PageSize, fi.Size(), "root + left + right leaf after one split")
}

// TestLeafChainVisitsEveryKeyOnce walks the leaf chain directly (rather
// than through Cursor.Advance) to double check next_leaf_page links are
// consistent after a split.
func TestLeafChainVisitsEveryKeyOnce(t *testing.T) {
	tbl, _ := newTempTable(t)
	defer tbl.Close()

	max := int(LeafNodeCellMaxNum())
	for i := 1; i <= max+1; i++ {
		require.NoError(t, tbl.Insert(row.Row{ID: uint64(i), Name: "n", Description: "d"}))
	}

	isLeaf, err := tbl.tree.isLeafPage(rootPage)
	require.NoError(t, err)
	require.False(t, isLeaf)

	root, err := tbl.tree.loadInternal(rootPage)
	require.NoError(t, err)

	pn := root.cells[0].ChildPage
	var seen []uint64
	for {
		leaf, err := tbl.tree.loadLeaf(pn)
		require.NoError(t, err)
		for _, c := range leaf.cells {
			seen = append(seen, c.Key)
		}
		if leaf.NextLeafPage() == 0 {
			break
		}
		pn = leaf.NextLeafPage()
	}
	require.Equal(t, sequentialKeys(1, max+1), seen)
}

func TestDumpTreeViaTable(t *testing.T) {
	tbl, _ := newTempTable(t)
	defer tbl.Close()

	require.NoError(t, tbl.Insert(row.Row{ID: 1, Name: "n", Description: "d"}))
	out, err := tbl.DumpTree()
	require.NoError(t, err)
	require.Contains(t, out, "leaf (size 1)")
}

func TestIsTableFull(t *testing.T) {
	require.True(t, IsTableFull(pager.ErrTableFull))
	require.True(t, IsTableFull(ErrParentSplitUnsupported))
	require.False(t, IsTableFull(ErrDuplicateKey))
}
