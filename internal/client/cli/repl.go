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
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	AddImage(ctx context.Context) error
	UpdateImage(ctx context.Context) error
	DeleteImage(ctx context.Context) error
	Browse(ctx context.Context) error
	Search(ctx context.Context) error
	CartAdd(ctx context.Context) error
	CartUpdate(ctx context.Context) error
	CartRemove(ctx context.Context) error
	CartView(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the ImageVault CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Any errors returned by command handlers are ignored here; handlers should
// print their own errors. This keeps the REPL loop resilient and focused on
// I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("iv> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: add, update, delete, browse, search, cartadd, cartupdate, cartremove, cart, logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}
		case "register":
			_ = a.Register(ctx)
		case "login":
			_ = a.Login(ctx)
		case "add":
			_ = a.AddImage(ctx)
		case "update":
			_ = a.UpdateImage(ctx)
		case "delete":
			_ = a.DeleteImage(ctx)
		case "browse":
			_ = a.Browse(ctx)
		case "search":
			_ = a.Search(ctx)
		case "cartadd":
			_ = a.CartAdd(ctx)
		case "cartupdate":
			_ = a.CartUpdate(ctx)
		case "cartremove":
			_ = a.CartRemove(ctx)
		case "cart":
			_ = a.CartView(ctx)
		case "logout":
			_ = a.Logout(ctx)
			return
		case "exit", "quit":
			return
		default:
			printlnFn("Unknown command: " + cmd)
		}
	}
}
