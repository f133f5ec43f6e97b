package main

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/gorgemul/rqlite/row"
	"github.com/gorgemul/rqlite/table"
)

type StatementType int

const (
	StatementInsert StatementType = iota
	StatementSelect
)

type PrepareResult int

const (
	PrepareSuccess PrepareResult = iota
	PrepareUnrecognizedStatement
	PrepareSyntaxError
	PrepareNameTooLong
	PrepareDescriptionTooLong
	PrepareIDNonPositive
)

type Statement struct {
	Type        StatementType
	RowToInsert row.Row
}

// prepareStatement parses one input line into a Statement. Argument
// validation (length limits, numeric parsing) lives here, not in the
// table package: the storage core only ever sees well-formed rows.
func prepareStatement(input string, stmt *Statement) PrepareResult {
	if strings.HasPrefix(input, "insert") {
		stmt.Type = StatementInsert
		fields := strings.SplitN(input, " ", 4)
		if len(fields) < 4 {
			return PrepareSyntaxError
		}
		id, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil || id == 0 {
			return PrepareIDNonPositive
		}
		name := fields[2]
		description := fields[3]
		if len(name) > row.NameSize {
			return PrepareNameTooLong
		}
		if len(description) > row.DescriptionSize {
			return PrepareDescriptionTooLong
		}
		stmt.RowToInsert = row.Row{ID: id, Name: name, Description: description}
		return PrepareSuccess
	}
	if input == "select" {
		stmt.Type = StatementSelect
		return PrepareSuccess
	}
	return PrepareUnrecognizedStatement
}

// executeStatement runs stmt against tbl and prints its result to out.
// Every error is reported on out and the prompt continues; storage
// errors other than TABLE_FULL and duplicate key are also logged.
func executeStatement(stmt *Statement, tbl *table.Table, out *lineWriter, log logr.Logger) {
	switch stmt.Type {
	case StatementInsert:
		err := tbl.Insert(stmt.RowToInsert)
		switch {
		case err == nil:
			out.Printf("executed.")
		case table.IsTableFull(err):
			out.Printf("table reach max size")
		case errors.Is(err, table.ErrDuplicateKey):
			out.Printf("ERROR: key '%d' already exist.", stmt.RowToInsert.ID)
		default:
			log.Error(err, "insert failed")
			out.Printf("ERROR: %s.", err)
		}
	case StatementSelect:
		it, err := tbl.SelectAll()
		if err != nil {
			log.Error(err, "select failed")
			out.Printf("ERROR: %s.", err)
			return
		}
		for {
			r, ok, err := it.Next()
			if err != nil {
				log.Error(err, "select failed mid-scan")
				out.Printf("ERROR: %s.", err)
				return
			}
			if !ok {
				break
			}
			out.Printf("[%d, %s, %s]", r.ID, r.Name, r.Description)
		}
		out.Printf("executed.")
	}
}

