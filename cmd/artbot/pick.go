package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"artbot/pkg/ui"
)

var pickJSON bool

// pickCmd represents the pick command
var pickCmd = &cobra.Command{
	Use:   "pick [search term]",
	Short: "Pick an artwork without downloading or posting",
	Long: `Search the collection and pick a random artwork with an image, then print its
details and the caption a post would use. Nothing is downloaded or posted and
no credentials are needed.`,
	Example: `  # Preview what a post about lions would look like
  artbot pick lion

  # Machine readable output
  artbot pick lion --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPick,
}

func init() {
	rootCmd.AddCommand(pickCmd)
	pickCmd.Flags().IntVarP(&maxAttempts, "max-attempts", "m", 0, "maximum object records to sample (default from config)")
	pickCmd.Flags().BoolVar(&pickJSON, "json", false, "print the artwork as JSON")
}

func runPick(cmd *cobra.Command, args []string) error {
	flags := map[string]interface{}{"max-attempts": maxAttempts}
	if pickJSON && logLevel == "" {
		// keep stdout parseable
		flags["log-level"] = "error"
	}
	if len(args) > 0 {
		flags["search-term"] = args[0]
	}

	cfg, log, err := loadConfig(flags)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := newMuseumClient(cfg, log, nil)
	artwork, err := newPicker(client, log).Pick(ctx, cfg.Picker.SearchTerm, cfg.Picker.MaxAttempts)
	if err != nil {
		return err
	}

	if pickJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Artwork any    `json:"artwork"`
			Caption string `json:"caption"`
		}{artwork, artwork.Caption()})
	}

	ui.NewPrinter(cmd.OutOrStdout()).Artwork(artwork)
	return nil
}

func formatBytes(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := int64(n) / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
