package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nv-h/gmail-debit-client/internal/report"
)

// analyzeCmd summarizes the latest snapshot without touching the mailbox
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "最新の結果ファイルを集計して表示します",
	Long: `Summarize the latest snapshot by month and by payee.

Examples:
  # Full summary
  debits analyze

  # Grand total only
  debits analyze -s`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	if a.store.Current() == "" {
		return fmt.Errorf("%sファイルが見つかりません", filepath.Join(a.cfg.CacheDir, a.cfg.FilePrefix+"*.csv"))
	}
	snap := a.store.LoadLatest()
	return report.RenderSummary(cmd.OutOrStdout(), report.Summarize(snap.Rows), a.store.Path(a.store.Current()), summaryOnly)
}
