package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/nv-h/gmail-debit-client/internal/core"
)

func tx(period, payee, amount string) core.Transaction {
	return core.NewTransaction(core.Period(period), payee, core.NormalizeAmount(amount))
}

func render(t *testing.T, cached, fresh []core.Transaction, opts Options) string {
	t.Helper()
	var buf bytes.Buffer
	if err := Render(&buf, cached, fresh, opts); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func lines(s ...string) string {
	return strings.Join(s, "\n") + "\n"
}

func TestSummaryOnlyEmpty(t *testing.T) {
	if got := render(t, nil, nil, Options{SummaryOnly: true, Yearly: true}); got != "¥0\n" {
		t.Fatalf("got %q", got)
	}
}

func TestSummaryOnlySumsBothAndDropsZero(t *testing.T) {
	cached := []core.Transaction{tx("2025-01", "A", "1000"), tx("2025-01", "Z", "0")}
	fresh := []core.Transaction{tx("2025-02", "B", "2500")}
	if got := render(t, cached, fresh, Options{SummaryOnly: true}); got != "¥3,500\n" {
		t.Fatalf("got %q", got)
	}
}

func TestMonthlyFromCache(t *testing.T) {
	cached := []core.Transaction{tx("2025-03", "電力", "8000"), tx("2025-03", "ガス", "4000")}
	got := render(t, cached, nil, Options{FromCache: true, Source: "outputs/result_debit_20250310.csv"})
	want := lines(
		"結果(outputs/result_debit_20250310.csv)から取得:",
		"2025-03 電力 ¥8,000",
		"2025-03 ガス ¥4,000",
		"今月の口座振替合計：¥12,000",
	)
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestYearlyFromCache(t *testing.T) {
	cached := []core.Transaction{
		tx("2025-02", "B", "200"),
		tx("2025-01", "A", "100"),
		tx("2025-01", "C", "50"),
	}
	got := render(t, cached, nil, Options{FromCache: true, Yearly: true, Source: "x.csv"})
	want := lines(
		"結果(x.csv)から取得:",
		"",
		"2025-01 (¥150)",
		"  A ¥100",
		"  C ¥50",
		"",
		"2025-02 (¥200)",
		"  B ¥200",
		"",
		"過去1年分の口座振替合計：¥350",
	)
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestYearlyMergedMarksSource(t *testing.T) {
	cached := []core.Transaction{tx("2025-01", "A", "1000")}
	fresh := []core.Transaction{tx("2025-02", "B", "2000"), tx("2025-03", "Z", "0")}
	got := render(t, cached, fresh, Options{Yearly: true})
	want := lines(
		"過去1年分の口座振替情報:",
		"",
		"2025-01 (¥1,000) (キャッシュ)",
		"  A ¥1,000",
		"",
		"2025-02 (¥2,000) (新規取得)",
		"  B ¥2,000",
		"",
		"過去1年分の口座振替合計：¥3,000",
		"新規取得分：¥2,000",
	)
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestYearlyMergedWithoutNewRows(t *testing.T) {
	cached := []core.Transaction{tx("2025-01", "A", "1000")}
	got := render(t, cached, []core.Transaction{tx("2025-02", "Z", "0")}, Options{Yearly: true})
	if strings.Contains(got, "新規取得分") {
		t.Fatalf("unexpected new-rows line:\n%s", got)
	}
	if !strings.HasSuffix(got, "過去1年分の口座振替合計：¥1,000\n") {
		t.Fatalf("got:\n%s", got)
	}
}

func TestMonthlyNew(t *testing.T) {
	got := render(t, nil, []core.Transaction{tx("2025-03", "水道", "3210")}, Options{})
	want := lines(
		"新規取得した口座振替情報:",
		"2025-03 水道 ¥3,210",
		"今月の新規口座振替合計：¥3,210",
	)
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestYearlyNewOnly(t *testing.T) {
	got := render(t, nil, []core.Transaction{tx("2025-02", "B", "10")}, Options{Yearly: true})
	want := lines(
		"過去1年分の口座振替情報:",
		"",
		"2025-02 (¥10)",
		"  B ¥10",
		"",
		"過去1年分の口座振替合計：¥10",
	)
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestNothingFound(t *testing.T) {
	cases := []struct {
		name string
		opts Options
		want string
	}{
		{"monthly", Options{}, "新しい口座振替情報は見つかりませんでした\n"},
		{"yearly", Options{Yearly: true}, "過去1年分の口座振替情報は見つかりませんでした\n"},
		{"monthly cache", Options{FromCache: true}, "新しい口座振替情報は見つかりませんでした\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			zero := []core.Transaction{tx("2025-01", "Z", "0")}
			if got := render(t, nil, zero, tc.opts); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

type failingWriter struct{ n int }

func (w *failingWriter) Write(p []byte) (int, error) {
	w.n++
	return 0, errors.New("closed")
}

func TestRenderReportsFirstWriteError(t *testing.T) {
	w := &failingWriter{}
	err := Render(w, nil, []core.Transaction{tx("2025-01", "A", "1"), tx("2025-01", "B", "2")}, Options{})
	if err == nil {
		t.Fatal("expected write error")
	}
	if w.n != 1 {
		t.Fatalf("writes after failure: %d", w.n)
	}
}
