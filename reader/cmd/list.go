package cmd

import (
	"github.com/spf13/cobra"

	"github.com/DeafMist/news-reader/internal/screen"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the latest articles for the saved search term",
	Long: `Fetch one page of articles and print them.

Examples:
  reader list            # Table output
  reader list --json     # JSON output
  reader list --yaml     # YAML output`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().Bool("json", false, "output as JSON")
	listCmd.Flags().Bool("yaml", false, "output as YAML")
	listCmd.MarkFlagsMutuallyExclusive("json", "yaml")
}

func runList(cmd *cobra.Command, args []string) error {
	app, cleanup, err := loadScreen(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	view := app.Controller.View()
	out := cmd.OutOrStdout()

	jsonOutput, _ := cmd.Flags().GetBool("json")
	yamlOutput, _ := cmd.Flags().GetBool("yaml")
	switch {
	case jsonOutput:
		if err := writeJSON(out, view); err != nil {
			return err
		}
		return checkView(view)
	case yamlOutput:
		if err := writeYAML(out, view); err != nil {
			return err
		}
		return checkView(view)
	}

	if err := checkView(view); err != nil {
		return err
	}
	if view.State == screen.StateEmpty {
		printNotice(out, "%s", view.Message)
		return nil
	}

	printHeader(out, "News for "+view.SearchTerm)
	return renderRows(out, view.Rows)
}
