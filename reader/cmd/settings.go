package cmd

import (
	"github.com/spf13/cobra"

	"github.com/DeafMist/news-reader/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change saved preferences",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the saved preferences",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var setSearchTermCmd = &cobra.Command{
	Use:   "set-search-term VALUE",
	Short: "Save the search term used by list and open",
	Long: `Save the search term. An empty value restores the default ("DEFAULT").`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSetSearchTerm,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(setSearchTermCmd)

	settingsShowCmd.Flags().Bool("json", false, "output as JSON")
	settingsShowCmd.Flags().Bool("yaml", false, "output as YAML")
	settingsShowCmd.MarkFlagsMutuallyExclusive("json", "yaml")
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	store, err := settings.Open(cfg.SettingsPath, log)
	if err != nil {
		return err
	}
	snap := store.Snapshot()
	out := cmd.OutOrStdout()

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(out, snap)
	}
	if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
		return writeYAML(out, snap)
	}

	printHeader(out, "Settings")
	return renderPairs(out, [][]string{
		{"Search term", snap.SearchTerm},
		{"File", snap.Path},
	})
}

func runSetSearchTerm(cmd *cobra.Command, args []string) error {
	store, err := settings.Open(cfg.SettingsPath, log)
	if err != nil {
		return err
	}
	if err := store.SetSearchTerm(args[0]); err != nil {
		return err
	}
	printSuccess(cmd.OutOrStdout(), "Search term set to %q", store.Summary())
	return nil
}
