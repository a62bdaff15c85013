package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/0xcro3dile/ragqa/internal/infrastructure/tui"
)

var askTopK int

var (
	questionStyle = lipgloss.NewStyle().Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question",
	Long: `Loads the corpus, makes sure the index covers it and answers one question.
The answer is followed by the sources it was grounded on.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (default retrieval.top_k)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	question := strings.Join(args, " ")

	a, err := newApp(ctx, appConfig, appOptions{withLLM: true, confirmer: confirmerFor(cmd)}, appLog)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.session.Prepare(ctx); err != nil {
		return err
	}

	answer, err := a.session.Ask(ctx, question, askTopK)
	if err != nil {
		return err
	}

	cmd.Println(questionStyle.Render("Question: " + answer.Question))
	cmd.Print(tui.FormatAnswer(answer))
	return nil
}
