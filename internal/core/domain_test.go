package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNewTransactionNormalizes(t *testing.T) {
	tx := NewTransaction("2025-03", "  ", decimal.NewFromInt(-10))
	if tx.Payee != UnknownPayee {
		t.Fatalf("payee = %q", tx.Payee)
	}
	if !tx.Amount.IsZero() {
		t.Fatalf("amount = %s", tx.Amount)
	}
	if !tx.IsNoise() {
		t.Fatal("zero amount should be noise")
	}
}

func TestFilterNonZero(t *testing.T) {
	rows := []Transaction{
		NewTransaction("2025-01", "A", NormalizeAmount("1000")),
		NewTransaction("2025-01", "B", NormalizeAmount("0")),
		NewTransaction("2025-01", "C", NormalizeAmount("abc")),
	}
	kept, dropped := FilterNonZero(rows)
	if len(kept) != 1 || dropped != 2 {
		t.Fatalf("kept=%d dropped=%d", len(kept), dropped)
	}
	if got := Total(kept).String(); got != "1000" {
		t.Fatalf("total = %s", got)
	}
	if len(rows) != 3 {
		t.Fatal("input must not be modified")
	}
}

func TestParsePeriod(t *testing.T) {
	if _, err := ParsePeriod("2025-03"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, bad := range []string{"2025-13", "2025/03", "", "march"} {
		if _, err := ParsePeriod(bad); err == nil {
			t.Errorf("%q should be invalid", bad)
		}
	}
}

func TestPeriodBounds(t *testing.T) {
	p := Period("2024-02")
	last, err := p.LastDay(time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if last.Day() != 29 {
		t.Fatalf("leap february last day = %d", last.Day())
	}
	dec, _ := Period("2025-12").LastDay(time.UTC)
	if dec.Format("2006-01-02") != "2025-12-31" {
		t.Fatalf("december last day = %s", dec.Format("2006-01-02"))
	}
}

func TestSortedPeriods(t *testing.T) {
	set := PeriodSet([]Transaction{
		{Period: "2025-03"}, {Period: "2024-12"}, {Period: "2025-01"}, {Period: "2025-03"},
	})
	got := SortedPeriods(set)
	want := []Period{"2024-12", "2025-01", "2025-03"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
