package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"
)

// syncWriter serializes writes from the prompt loop and the session watcher.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// lineFunc executes one parsed shell line.
type lineFunc func(ctx context.Context, args []string)

// runREPL reads lines from in until EOF, "exit" or "quit", splits each into
// arguments and hands them to exec. The prompt is rebuilt before every line
// from status.
func runREPL(ctx context.Context, in *bufio.Reader, w io.Writer, status func(context.Context) string, exec lineFunc) {
	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(w, "bazaar %s> ", status(ctx))

		line, err := in.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			fmt.Fprintln(w)
			return
		}

		args, perr := splitArgs(line)
		if perr != nil {
			fmt.Fprintln(w, "error:", perr)
			continue
		}
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		case "shell":
			fmt.Fprintln(w, "already in the shell")
		default:
			exec(ctx, args)
		}

		if err != nil {
			return
		}
	}
}

// watchSession prints a line whenever the authenticated flag changes. The
// first value received is the starting state and is not printed.
func watchSession(ctx context.Context, ch <-chan bool, w io.Writer) {
	first := true
	var last bool
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-ch:
			if !ok {
				return
			}
			if !first && v != last {
				if v {
					fmt.Fprintln(w, "\n[session] signed in")
				} else {
					fmt.Fprintln(w, "\n[session] signed out")
				}
			}
			first, last = false, v
		}
	}
}

func (a *App) status(ctx context.Context) string {
	if !a.Auth.IsAuthenticated(ctx) {
		return "(signed out)"
	}
	if p, err := a.Profile.Cached(ctx); err == nil && p != nil {
		return "(" + p.Username + ")"
	}
	return "(signed in)"
}

func (a *App) shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive prompt; type help for commands, exit to leave",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			w := &syncWriter{w: cmd.OutOrStdout()}

			var wg sync.WaitGroup
			ch := a.sessions(ctx)
			wg.Add(1)
			go func() {
				defer wg.Done()
				watchSession(ctx, ch, w)
			}()

			runREPL(ctx, a.in, w, a.status, func(ctx context.Context, args []string) {
				a.runLine(ctx, w, args)
			})

			cancel()
			wg.Wait()
			return nil
		},
	}
}

// runLine executes args against a fresh command tree. Errors are printed and
// do not end the shell.
func (a *App) runLine(ctx context.Context, w io.Writer, args []string) {
	root := a.Command()
	root.SetOut(w)
	root.SetErr(w)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		var shown *shownError
		if !errors.As(err, &shown) {
			fmt.Fprintln(w, "error:", err)
		}
		if strings.HasPrefix(err.Error(), "unknown command") {
			fmt.Fprintln(w, "type help for the list of commands")
		}
	}
}
