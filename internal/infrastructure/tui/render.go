package tui

import (
	"fmt"
	"strings"

	"github.com/0xcro3dile/ragqa/internal/domain/entities"
)

var quitWords = map[string]struct{}{"quit": {}, "exit": {}, "q": {}}

// IsQuit reports whether input ends an interactive session.
func IsQuit(input string) bool {
	_, ok := quitWords[strings.ToLower(strings.TrimSpace(input))]
	return ok
}

// FormatSources renders one "i. <source> (chunk <seq>)" line per result.
func FormatSources(sources []entities.RetrievalResult) string {
	var sb strings.Builder
	for i, src := range sources {
		fmt.Fprintf(&sb, "%d. %s (chunk %d)\n", i+1, src.Chunk.Source, src.Chunk.Sequence)
	}
	return sb.String()
}

// FormatAnswer renders an answer followed by the sources it was grounded on.
func FormatAnswer(a *entities.Answer) string {
	var sb strings.Builder
	sb.WriteString("Answer: ")
	sb.WriteString(a.Text)
	sb.WriteString("\n")
	if len(a.Sources) > 0 {
		sb.WriteString("\nSources:\n")
		sb.WriteString(FormatSources(a.Sources))
	}
	return sb.String()
}
