package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/0xcro3dile/ragqa/internal/domain/ports"
)

// StaticConfirmer always gives the same answer.
type StaticConfirmer bool

// ConfirmReindex implements ports.ReindexConfirmer.
func (c StaticConfirmer) ConfirmReindex(context.Context, int) (bool, error) {
	return bool(c), nil
}

// TerminalConfirmer asks on the terminal whether to rebuild a populated index.
type TerminalConfirmer struct {
	In  io.Reader
	Out io.Writer
}

// ConfirmReindex implements ports.ReindexConfirmer. Only "y" or "yes" rebuilds.
func (c TerminalConfirmer) ConfirmReindex(ctx context.Context, indexed int) (bool, error) {
	fmt.Fprintf(c.Out, "Found existing index with %d chunks.\n", indexed)
	fmt.Fprint(c.Out, "Reindex documents? (y/n): ")

	line, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// confirmerFor picks how a populated index is handled: --yes rebuilds,
// an interactive terminal is asked, anything else keeps the index.
func confirmerFor(cmd *cobra.Command) ports.ReindexConfirmer {
	if assumeYes {
		return StaticConfirmer(true)
	}
	if isTerminal(cmd.InOrStdin()) {
		return TerminalConfirmer{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}
	}
	return StaticConfirmer(false)
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
