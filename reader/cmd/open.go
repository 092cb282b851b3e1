package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var openCmd = &cobra.Command{
	Use:   "open INDEX",
	Short: "Open an article in the default browser",
	Long: `Load the list and open the article at INDEX, as numbered by "reader list".`,
	Args:  cobra.ExactArgs(1),
	RunE:  runOpen,
}

func init() {
	rootCmd.AddCommand(openCmd)
}

func runOpen(cmd *cobra.Command, args []string) error {
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("index must be an integer: %q", args[0])
	}

	app, cleanup, err := loadScreen(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	if err := checkView(app.Controller.View()); err != nil {
		return err
	}

	target, err := app.Controller.URL(index)
	if err != nil {
		return err
	}
	if err := app.Controller.Open(cmd.Context(), index); err != nil {
		return err
	}
	printSuccess(cmd.OutOrStdout(), "Opened %s", target)
	return nil
}
