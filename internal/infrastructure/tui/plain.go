package tui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// RunPlain is the line-oriented loop used when stdin is not a terminal.
// It stops at EOF, on a quit word, or when ctx is done.
func RunPlain(ctx context.Context, engine Engine, topK int, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		if ctx.Err() != nil {
			return nil
		}

		fmt.Fprint(out, "\nQuestion: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if IsQuit(question) {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}

		answer, err := engine.Ask(ctx, question, topK)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		fmt.Fprint(out, "\n"+FormatAnswer(answer))
	}
}
