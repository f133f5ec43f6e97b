package main

import (
	"strings"

	"github.com/go-logr/logr"
	"github.com/gorgemul/rqlite/table"
)

type MetaCommandResult int

const (
	MetaCommandSuccess MetaCommandResult = iota
	MetaCommandExit
	MetaCommandUnrecognizedCommand
)

// handleMetaCommand dispatches a dot-prefixed line. Lines that aren't
// meta-commands at all are the caller's concern; this only handles the
// three meta-commands the CLI recognizes. ".exit" only closes tbl and
// reports MetaCommandExit — the process exit itself is the caller's call,
// so this function stays safe to invoke from a test.
func handleMetaCommand(line string, tbl *table.Table, out *lineWriter, log logr.Logger) MetaCommandResult {
	switch strings.TrimSpace(line) {
	case ".exit":
		if err := tbl.Close(); err != nil {
			log.Error(err, "close on exit")
		}
		return MetaCommandExit
	case ".constants":
		c := tbl.DumpConstants()
		out.Printf("ROW_SIZE: %d", c.RowSize)
		out.Printf("NODE_HEADER_SIZE: %d", c.NodeHeaderSize)
		out.Printf("LEAF_NODE_HEADER_SIZE: %d", c.LeafNodeHeaderSize)
		out.Printf("LEAF_NODE_CELL_SIZE: %d", c.LeafNodeCellSize)
		out.Printf("LEAF_NODE_SPACE_FOR_CELLS: %d", c.LeafNodeSpaceForCells)
		out.Printf("LEAF_NODE_CELL_MAX_NUM: %d", c.LeafNodeCellMaxNum)
		return MetaCommandSuccess
	case ".tree":
		dump, err := tbl.DumpTree()
		if err != nil {
			log.Error(err, "dump tree")
			out.Printf("ERROR: %s.", err)
			return MetaCommandSuccess
		}
		out.Printf("TREE:")
		out.Raw(dump)
		return MetaCommandSuccess
	}
	return MetaCommandUnrecognizedCommand
}
