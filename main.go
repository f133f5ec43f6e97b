// Command rqlite is the interactive prompt in front of the table
// package's paged storage engine: a line reader, a meta-command and
// statement parser, and a row/tree formatter. It talks to the storage
// core only through its public API.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/chzyer/readline"
	"github.com/go-logr/stdr"
	"github.com/gorgemul/rqlite/table"
)

func main() {
	verbose := flag.Bool("v", false, "enable verbose startup/shutdown tracing")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: rqlite <database file>")
		os.Exit(1)
	}
	path := flag.Arg(0)

	stdLog := log.New(os.Stderr, "", log.LstdFlags)
	logger := stdr.New(stdLog)
	if *verbose {
		stdr.SetVerbosity(1)
	}

	tbl, err := table.Open(path)
	if err != nil {
		logger.Error(err, "open database", "path", path)
		os.Exit(1)
	}
	logger.V(1).Info("database opened", "path", path)

	out := &lineWriter{w: os.Stdout}
	rl, err := newLineReader()
	if err != nil {
		logger.Error(err, "init line reader")
		os.Exit(1)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			logger.V(1).Info("shutting down", "path", path)
			if cerr := tbl.Close(); cerr != nil {
				logger.Error(cerr, "close on eof")
				os.Exit(1)
			}
			return
		}
		if err != nil {
			logger.Error(err, "read line")
			continue
		}
		if line == "" {
			continue
		}

		if line[0] == '.' {
			switch handleMetaCommand(line, tbl, out, logger) {
			case MetaCommandExit:
				logger.V(1).Info("shutting down", "path", path)
				os.Exit(0)
			case MetaCommandUnrecognizedCommand:
				out.Printf("Unrecognized command '%s'.", line)
			}
			continue
		}

		var stmt Statement
		switch prepareStatement(line, &stmt) {
		case PrepareSuccess:
			executeStatement(&stmt, tbl, out, logger)
		case PrepareSyntaxError:
			out.Printf("ERROR: syntax error, expected: insert <id> <name> <description>.")
		case PrepareIDNonPositive:
			out.Printf("ERROR: id must be a positive integer.")
		case PrepareNameTooLong:
			out.Printf("ERROR: name too long.")
		case PrepareDescriptionTooLong:
			out.Printf("ERROR: description too long.")
		case PrepareUnrecognizedStatement:
			out.Printf("Unrecognized keyword at start of '%s'.", line)
		}
	}
}
