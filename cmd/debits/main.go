// Command debits reports account debits announced by bank notification mails.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nv-h/gmail-debit-client/internal/backend"
	"github.com/nv-h/gmail-debit-client/internal/cli"
	"github.com/nv-h/gmail-debit-client/internal/config"
	"github.com/nv-h/gmail-debit-client/internal/extract"
	applog "github.com/nv-h/gmail-debit-client/internal/log"
	"github.com/nv-h/gmail-debit-client/internal/report"
	"github.com/nv-h/gmail-debit-client/internal/services"
	"github.com/nv-h/gmail-debit-client/internal/snapshot"
)

var (
	configPath  string
	summaryOnly bool
	yearMode    bool
	version     = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "エラーが発生しました: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "debits",
	Short: "Gmailから口座振替情報を取得して集計します",
	Long: `debits searches the mailbox for account debit notifications, extracts the
payee and amount of each, caches them in a dated CSV snapshot and prints the
result.

Examples:
  # Debits of the current month
  debits

  # Debits of the trailing year, total only
  debits -y -s`,
	Version:       version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runFetch,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&summaryOnly, "summary-only", "s", false, "合計金額のみを表示（詳細な情報を省略）")
	rootCmd.Flags().BoolVarP(&yearMode, "year", "y", false, "過去1年分のメールを取得して集計")
	rootCmd.AddCommand(analyzeCmd)
}

// app holds what every subcommand needs.
type app struct {
	cfg    *config.Config
	logger *applog.Logger
	store  *snapshot.Store
}

func setup() (*app, error) {
	cli.LoadEnvFile()
	cfg, err := cli.LoadAndValidateConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := cli.SetupLogger(cfg.LogLevel)
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	store, err := snapshot.Open(cfg.CacheDir, cfg.FilePrefix,
		snapshot.WithLocation(loc),
		snapshot.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, store: store}, nil
}

func runFetch(cmd *cobra.Command, _ []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := cli.SignalContext()
	defer cancel()

	res, err := a.fetch(ctx)
	if err != nil {
		return err
	}
	return a.render(cmd.OutOrStdout(), res)
}

func (a *app) fetch(ctx context.Context) (*services.Result, error) {
	loc, err := a.cfg.Location()
	if err != nil {
		return nil, err
	}

	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	box, err := backend.NewFactory(a.logger).CreateMailbox(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	if box.Cleanup != nil {
		defer func() {
			if err := box.Cleanup(); err != nil {
				a.logger.Warn("Mailbox cleanup failed", applog.FieldError, err)
			}
		}()
	}

	ledger, closeLedger := cli.InitLedger(a.logger, a.cfg)
	defer closeLedger()
	publisher, closePublisher := cli.InitPublisher(a.logger, a.cfg)
	defer closePublisher()

	extractor := extract.New(extract.Config{
		TrustedSenders: a.cfg.ValidSenders,
		Location:       loc,
	}, nil, a.logger)

	svc := services.NewFetchService(box.Mailbox, extractor, a.store, ledger, publisher, services.FetchConfig{
		SearchSubject: a.cfg.SearchSubject,
		Floor:         a.cfg.Floor(),
		WindowDays:    a.cfg.WindowDays,
		Location:      loc,
	}, a.logger)

	if yearMode {
		return svc.RunYearly(ctx)
	}
	return svc.RunMonthly(ctx)
}

func (a *app) render(w io.Writer, res *services.Result) error {
	for reason, n := range res.Skipped {
		a.logger.Info("Skipped messages", applog.FieldSkipReason, string(reason), applog.FieldCount, n)
	}
	source := ""
	if res.Source != "" {
		source = a.store.Path(res.Source)
	}
	return report.Render(w, res.Cached, res.New, report.Options{
		SummaryOnly: summaryOnly,
		Yearly:      res.Yearly,
		FromCache:   res.FromCache,
		Source:      source,
	})
}
