package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/patrickwarner/adreports/internal/config"
	"github.com/patrickwarner/adreports/internal/db"
	"github.com/patrickwarner/adreports/internal/insights"
	"github.com/patrickwarner/adreports/internal/models"
	"github.com/patrickwarner/adreports/internal/observability"
	"github.com/patrickwarner/adreports/internal/platforms"
	"github.com/patrickwarner/adreports/internal/reporting"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "campaign-report",
		Short:         "Preview ad platform reports and manage ad accounts",
		Version:       observability.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Bool("verbose", false, "Log debug output to stderr")
	root.AddCommand(newPreviewCmd(), newAddAccountCmd())
	return root
}

func cliLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	return observability.InitLoggerWithLevel(level, "campaign-report")
}

func connect(cfg config.Config) (*db.Postgres, error) {
	pg, err := db.InitPostgres(cfg.PostgresDSN, 2, 1, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pg, nil
}

func newPreviewCmd() *cobra.Command {
	var (
		accountID    string
		from, to     string
		template     string
		withInsights bool
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Fetch, normalize and aggregate an account's period without storing a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := models.ParseTemplateKind(template)
			if err != nil {
				return err
			}
			rng, err := previewRange(from, to, time.Now())
			if err != nil {
				return err
			}

			cfg := config.Load()
			logger, err := cliLogger(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			pg, err := connect(cfg)
			if err != nil {
				return err
			}
			defer pg.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.PlatformTimeout+cfg.AITimeout)
			defer cancel()

			acc, err := pg.GetAdAccount(ctx, accountID)
			if errors.Is(err, db.ErrNotFound) {
				return fmt.Errorf("ad account %s not found", accountID)
			}
			if err != nil {
				return err
			}

			metrics := observability.NewNoOpRegistry()
			fetcher := reporting.NewFetcher(platforms.NewDefaultRegistry(cfg, logger, metrics), logger)

			current, err := fetcher.FetchCampaignData(ctx, acc, rng)
			if err != nil {
				return err
			}
			previous, err := fetcher.FetchCampaignData(ctx, acc, reporting.PreviousPeriod(rng))
			if err != nil {
				logger.Warn("comparison period unavailable", zap.Error(err))
				previous = nil
			}

			var ins *insights.Insights
			if withInsights {
				if err := cfg.Validate(); err != nil {
					return err
				}
				completer, err := insights.NewCompleter(insights.ProviderConfigFrom(cfg), logger)
				if err != nil {
					return err
				}
				ins, err = insights.NewGenerator(completer, insights.OptionsFrom(cfg), logger, metrics).Generate(ctx, current, kind)
				if err != nil {
					return err
				}
			}

			printPreview(cmd.OutOrStdout(), current, previous, ins)
			return nil
		},
	}
	cmd.Flags().StringVar(&accountID, "account-id", "", "Ad account ID (required)")
	cmd.Flags().StringVar(&from, "from", "", "First day of the period, YYYY-MM-DD (default: 30 days ago)")
	cmd.Flags().StringVar(&to, "to", "", "Last day of the period, YYYY-MM-DD (default: yesterday)")
	cmd.Flags().StringVar(&template, "template", string(models.TemplateLeads), "Template: leads, sales or reach")
	cmd.Flags().BoolVar(&withInsights, "insights", false, "Also generate AI insights")
	_ = cmd.MarkFlagRequired("account-id")
	return cmd
}

// previewRange defaults to the 30 days ending yesterday.
func previewRange(from, to string, now time.Time) (models.DateRange, error) {
	yesterday := models.TruncateDate(now).AddDate(0, 0, -1)
	if to == "" {
		to = yesterday.Format(models.DateLayout)
	}
	if from == "" {
		end, err := models.ParseDate(to)
		if err != nil {
			return models.DateRange{}, err
		}
		from = end.AddDate(0, 0, -29).Format(models.DateLayout)
	}
	return models.ParseDateRange(from, to)
}

func newAddAccountCmd() *cobra.Command {
	acc := &models.AdAccount{}
	var platform string
	cmd := &cobra.Command{
		Use:   "add-account",
		Short: "Store an ad account and its access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := buildAccount(acc, platform, os.Getenv("AD_ACCESS_TOKEN")); err != nil {
				return err
			}

			cfg := config.Load()
			pg, err := connect(cfg)
			if err != nil {
				return err
			}
			defer pg.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			if err := pg.InsertAdAccount(ctx, acc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s account %s (%s)\n", acc.Platform.DisplayName(), acc.ID, acc.PlatformAccountID)
			return nil
		},
	}
	cmd.Flags().StringVar(&acc.UserID, "user-id", "", "Owner user ID (required)")
	cmd.Flags().StringVar(&platform, "platform", "", "Platform: meta or google (required)")
	cmd.Flags().StringVar(&acc.PlatformAccountID, "platform-account-id", "", "Account ID on the platform (required)")
	cmd.Flags().StringVar(&acc.AccountName, "name", "", "Display name")
	cmd.Flags().StringVar(&acc.Currency, "currency", "USD", "Account currency")
	cmd.Flags().StringVar(&acc.Timezone, "timezone", "", "Account timezone")
	cmd.Flags().StringVar(&acc.AccessToken, "access-token", "", "Platform access token (or AD_ACCESS_TOKEN)")
	cmd.Flags().StringVar(&acc.LoginCustomerID, "login-customer-id", "", "Google Ads manager account ID used to access the customer")
	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("platform")
	_ = cmd.MarkFlagRequired("platform-account-id")
	return cmd
}

func buildAccount(acc *models.AdAccount, platform, envToken string) error {
	acc.Platform = models.Platform(strings.ToLower(platform))
	if !acc.Platform.Valid() {
		return fmt.Errorf("unknown platform %q", platform)
	}
	if acc.LoginCustomerID != "" && acc.Platform != models.PlatformGoogle {
		return errors.New("--login-customer-id only applies to google accounts")
	}
	if acc.AccessToken == "" {
		acc.AccessToken = envToken
	}
	if acc.AccessToken == "" {
		return errors.New("an access token is required (--access-token or AD_ACCESS_TOKEN)")
	}
	acc.PlatformAccountID = strings.TrimPrefix(acc.PlatformAccountID, "act_")
	acc.Currency = strings.ToUpper(acc.Currency)
	if acc.AccountName == "" {
		acc.AccountName = acc.PlatformAccountID
	}
	return nil
}
