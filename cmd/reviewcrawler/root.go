package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/realtime-review-crawler/internal/config"
	"github.com/JakeFAU/realtime-review-crawler/internal/logging"
	"github.com/JakeFAU/realtime-review-crawler/internal/review"
)

type servicesKey struct{}

var errNoServices = errors.New("services not initialized")

// newRootCmd builds the command tree. Services are constructed once in
// PersistentPreRunE and handed to subcommands through the context.
func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "reviewcrawler",
		Short: "Acquire Google Play reviews through a fallback channel cascade.",
		Long: `reviewcrawler collects public reviews for Play Store listings. Each
acquisition tries the batchexecute RPC first, then the rendered reviews modal,
then the static listing page, merging and de-duplicating what each yields.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			svc, err := newServices(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), servicesKey{}, svc))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if svc, err := servicesFrom(cmd); err == nil {
				svc.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, JSON or TOML)")

	cmd.AddCommand(newFetchCmd())
	cmd.AddCommand(newBatchCmd())
	cmd.AddCommand(newServeCmd())
	return cmd
}

func servicesFrom(cmd *cobra.Command) (*services, error) {
	if cmd.Context() == nil {
		return nil, errNoServices
	}
	svc, ok := cmd.Context().Value(servicesKey{}).(*services)
	if !ok || svc == nil {
		return nil, errNoServices
	}
	return svc, nil
}

// requestFlags are the per-acquisition knobs shared by fetch and batch.
type requestFlags struct {
	country     string
	language    string
	limit       int
	sort        string
	minRating   float64
	maxRating   float64
	maxPages    int
	interPageMs int
}

func (f *requestFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.country, "country", "", "store country code (default from config)")
	flags.StringVar(&f.language, "lang", "", "review language (default from config)")
	flags.IntVar(&f.limit, "limit", 0, "maximum reviews to return (default from config)")
	flags.StringVar(&f.sort, "sort", "", "most_relevant, newest or rating (default from config)")
	flags.Float64Var(&f.minRating, "min-rating", 0, "drop reviews rated below this")
	flags.Float64Var(&f.maxRating, "max-rating", 0, "drop reviews rated above this; 0 disables")
	flags.IntVar(&f.maxPages, "max-pages", 0, "cap RPC pages (default from config)")
	flags.IntVar(&f.interPageMs, "inter-page-delay-ms", 0, "RPC pacing override in milliseconds")
}

func (f *requestFlags) request(cfg config.Config, appID string) (review.ExtractionRequest, error) {
	req := review.ExtractionRequest{
		AppID:          appID,
		Country:        f.country,
		Language:       f.language,
		Limit:          f.limit,
		MinRating:      f.minRating,
		MaxPages:       f.maxPages,
		InterPageDelay: time.Duration(f.interPageMs) * time.Millisecond,
	}
	if f.sort != "" {
		sort, err := review.ParseSort(f.sort)
		if err != nil {
			return review.ExtractionRequest{}, err
		}
		req.Sort = sort
	}
	if f.maxRating > 0 {
		maxRating := f.maxRating
		req.MaxRating = &maxRating
	}
	req = cfg.ApplyDefaults(req)
	if err := cfg.CheckLimit(req); err != nil {
		return review.ExtractionRequest{}, err
	}
	return req, nil
}

func withAppID(logger *zap.Logger, appID string) *zap.Logger {
	return logger.With(zap.String("app_id", appID))
}
