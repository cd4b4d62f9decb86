package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/versecraft/internal/domain/entities"
	"github.com/0xcro3dile/versecraft/internal/domain/usecases"
)

// apiKeyEnv holds the credential for the generate command. It is never a flag
// so it stays out of shell history and process listings.
const apiKeyEnv = "VERSECRAFT_API_KEY"

var (
	genTheme  string
	genStyle  string
	genLength string
	genTrace  bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one poem in the terminal",
	Long: `Runs the pipeline once and prints the poem.

The credential is read from ` + apiKeyEnv + `.

Example:
  VERSECRAFT_API_KEY=sk-... versecraft generate --theme nature --style haiku --length short`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&genTheme, "theme", "t", "", "poem theme (required)")
	generateCmd.Flags().StringVarP(&genStyle, "style", "s", string(entities.StyleFreeVerse), "free_verse, sonnet, haiku or limerick")
	generateCmd.Flags().StringVarP(&genLength, "length", "l", string(entities.LengthShort), "short, medium or long")
	generateCmd.Flags().BoolVar(&genTrace, "trace", false, "print the state trace and inspiration to stderr")
	_ = generateCmd.MarkFlagRequired("theme")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	req := entities.NewPoemRequest(genTheme, genLength, genStyle, entities.NewCredential(os.Getenv(apiKeyEnv)))
	run := a.pipeline.Submit(cmd.Context(), req)
	if genTrace {
		printTrace(cmd.ErrOrStderr(), run)
	}
	return printRun(cmd.OutOrStdout(), run)
}

func printRun(w io.Writer, run *usecases.Run) error {
	if run.Err != nil {
		if errors.Is(run.Err, entities.ErrInvalidInput) && run.Request.Credential.Empty() {
			return fmt.Errorf("%s is not set", apiKeyEnv)
		}
		return errors.New(run.Message())
	}
	_, err := fmt.Fprintln(w, run.Poem.Text)
	return err
}

func printTrace(w io.Writer, run *usecases.Run) {
	fmt.Fprintf(w, "run %s:", run.ID)
	for _, st := range run.Trace {
		fmt.Fprintf(w, " %s", st)
	}
	fmt.Fprintln(w)
	for i, n := range run.Neighbors {
		line, _, _ := strings.Cut(n.Text, "\n")
		fmt.Fprintf(w, "  #%d (%.4f) %q\n", i+1, n.Distance, line)
	}
}

