package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"artbot/pkg/bot"
	"artbot/pkg/config"
	"artbot/pkg/logger"
	"artbot/pkg/media"
	"artbot/pkg/publisher"
	"artbot/pkg/retry"
	"artbot/pkg/storage"
	"artbot/pkg/twitter"
	"artbot/pkg/ui"
)

var (
	// Post flags
	dryRun      bool
	maxAttempts int
	accountName string
	tempDir     string
	notify      bool
)

// postCmd represents the post command
var postCmd = &cobra.Command{
	Use:   "post [search term]",
	Short: "Pick an artwork and post it to X",
	Long: `Search the collection, pick a random artwork with an image, download it and
post it to X with the caption "{title} by {artist}. See more: {url}".

The image is staged in a temporary file that is always removed before artbot
exits. Use --dry-run to do everything except the post itself.`,
	Example: `  # Post using the configured search term
  artbot post

  # Post a random ship painting, trying up to 50 records
  artbot post ship --max-attempts 50

  # Use a stored account
  artbot post horse --account museum-bot`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPost,
}

func init() {
	rootCmd.AddCommand(postCmd)
	addPostFlags(postCmd)
}

// addPostFlags registers the post flags on cmd. The root command carries them
// too so a bare search term behaves like post.
func addPostFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "stage the image but do not post")
	cmd.Flags().IntVarP(&maxAttempts, "max-attempts", "m", 0, "maximum object records to sample (default from config)")
	cmd.Flags().StringVarP(&accountName, "account", "a", "", "stored account to post with")
	cmd.Flags().StringVar(&tempDir, "temp-dir", "", "directory for the staged image")
	cmd.Flags().BoolVar(&notify, "notify", false, "show a desktop notification with the outcome")
}

func runPost(cmd *cobra.Command, args []string) error {
	flags := map[string]interface{}{
		"max-attempts": maxAttempts,
		"temp-dir":     tempDir,
	}
	if len(args) > 0 {
		flags["search-term"] = args[0]
	}

	cfg, log, err := loadConfig(flags)
	if err != nil {
		return err
	}

	if !dryRun {
		if err := resolveCredentials(cfg, accountName, nil); err != nil {
			return err
		}
	}

	client := newMuseumClient(cfg, log, nil)

	store, err := storage.NewManager(cfg.Download.TempDir)
	if err != nil {
		return err
	}
	defer func() {
		if n := store.Outstanding(); n > 0 {
			log.WithField("files", n).Warn("Removing leftover staged files")
			if err := store.Cleanup(); err != nil {
				log.WithError(err).Error("Failed to remove staged files")
			}
		}
	}()

	pub, err := newPublisher(cfg, log)
	if err != nil {
		return err
	}

	b := bot.New(newPicker(client, log), client, store, pub, bot.Settings{
		MaxAttempts:   cfg.Picker.MaxAttempts,
		MaxImageBytes: cfg.Download.MaxImageBytes,
		Upload: media.Limits{
			MaxBytes:     cfg.Download.MaxUploadBytes,
			MaxDimension: cfg.Download.MaxDimension,
		},
	}, log.WithField("component", "bot"))

	logger.LogComponentStart(log, "bot", map[string]interface{}{
		"search_term":  cfg.Picker.SearchTerm,
		"max_attempts": cfg.Picker.MaxAttempts,
		"dry_run":      dryRun,
		"temp_dir":     store.TempDir(),
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printer := ui.NewPrinter(cmd.OutOrStdout())
	printer.Info("Search term", cfg.Picker.SearchTerm)

	var notifier *ui.Notifier
	if notify {
		notifier = ui.NewNotifier()
	}

	result, err := b.Run(ctx, cfg.Picker.SearchTerm)
	if err != nil {
		log.WithError(err).Error("Run failed")
		if notifier != nil {
			if nerr := notifier.Failed(err); nerr != nil {
				log.WithError(nerr).Warn("Desktop notification failed")
			}
		}
		return err
	}

	printer.Artwork(result.Artwork)
	printer.Dim(result.Image.Format + " image, " + formatBytes(result.Image.Size))
	if dryRun {
		printer.Warning("Dry run: nothing was posted")
	} else {
		printer.Receipt(result.Receipt)
	}

	if notifier != nil && !dryRun {
		if nerr := notifier.Posted(result.Artwork.Title, result.Receipt.URL); nerr != nil {
			log.WithError(nerr).Warn("Desktop notification failed")
		}
	}
	return nil
}

// newPublisher returns the X client, or a dry-run publisher when --dry-run is set
func newPublisher(cfg *config.Config, log logger.Logger) (publisher.Publisher, error) {
	if dryRun {
		return publisher.NewDryRun(log.WithField("component", "publisher")), nil
	}
	client, err := twitter.NewClient(cfg.Twitter,
		twitter.WithLogger(log.WithField("component", "twitter")),
		twitter.WithRetrier(retry.NewRetrier(retry.FromSettings(cfg.Retry, log))),
	)
	if err != nil {
		return nil, &configError{err}
	}
	return client, nil
}
