package report

import (
	"bytes"
	"testing"

	"github.com/nv-h/gmail-debit-client/internal/core"
)

func TestSummarize(t *testing.T) {
	s := Summarize([]core.Transaction{
		tx("2025-02", "電力", "8000"),
		tx("2025-01", "ガス", "3000"),
		tx("2025-01", "電力", "7000"),
		tx("2025-03", "ゼロ", "0"),
	})
	if s.Total.String() != "18000" || s.Count != 3 {
		t.Fatalf("total=%s count=%d", s.Total, s.Count)
	}
	if s.First != "2025-01" || s.Last != "2025-02" || s.MonthCount != 2 {
		t.Fatalf("range %s..%s months=%d", s.First, s.Last, s.MonthCount)
	}
	if s.PayeeCount != 2 || s.Payees[0].Key != "電力" || s.Payees[0].Count != 2 {
		t.Fatalf("payees = %+v", s.Payees)
	}
	if s.Months[0].Total.String() != "10000" || s.Months[0].Count != 2 {
		t.Fatalf("january = %+v", s.Months[0])
	}
}

func TestRenderSummary(t *testing.T) {
	s := Summarize([]core.Transaction{
		tx("2025-01", "ガス", "3000"),
		tx("2025-02", "電力", "8000"),
	})
	var buf bytes.Buffer
	if err := RenderSummary(&buf, s, "outputs/result_debit_20250301.csv", false); err != nil {
		t.Fatal(err)
	}
	want := lines(
		"=== 口座振替データ サマリ ===",
		"データソース: outputs/result_debit_20250301.csv",
		"期間: 2025-01 ~ 2025-02",
		"総振替金額: ¥11,000",
		"振替件数: 2件",
		"対象月数: 2ヶ月",
		"振替先数: 2社",
		"",
		"=== 月別サマリ ===",
		"2025-01: ¥3,000 (1件)",
		"2025-02: ¥8,000 (1件)",
		"",
		"=== 振替先別サマリ ===",
		"電力: ¥8,000 (1件)",
		"ガス: ¥3,000 (1件)",
	)
	if buf.String() != want {
		t.Fatalf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestRenderSummaryOnly(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSummary(&buf, Summarize(nil), "", true); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "¥0\n" {
		t.Fatalf("got %q", buf.String())
	}
}
