package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Upload(ctx context.Context, args []string) error
	ListTasks(ctx context.Context) error
	Cancel(ctx context.Context, args []string) error
	WaitAll(ctx context.Context) error
	History(ctx context.Context, args []string) error
}

const helpText = `Available commands:
  upload <dataset-id> <title> <file>...   start an upload (no arguments: interactive)
  (t)asks                                 list active uploads
  cancel <dataset-id>                     cancel an active upload
  wait                                    block until every upload has ended
  (h)istory [n]                           show the last n journaled uploads
  exit | quit                             cancel active uploads and leave`

// runREPL reads commands line by line from scanner and dispatches them to
// a. The prompt shows statusFn. The loop exits on scanner EOF, on "exit" or
// "quit", or when ctx is done.
//
// Errors returned by command handlers are printed and otherwise ignored, so
// one failed command does not end the session.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("dsu%s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			printlnFn(helpText)

		case "u", "upload":
			err = a.Upload(ctx, args)

		case "t", "tasks":
			err = a.ListTasks(ctx)

		case "c", "cancel":
			if len(args) != 1 {
				printlnFn("Usage: cancel <dataset-id>")
				continue
			}
			err = a.Cancel(ctx, args)

		case "wait":
			err = a.WaitAll(ctx)

		case "h", "history":
			err = a.History(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
