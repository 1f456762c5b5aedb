package decode

import (
	"strings"
	"testing"

	"golang.org/x/text/encoding/japanese"
)

const body = "いつも住信SBIネット銀行をご利用いただきありがとうございます。\n" +
	"以下の口座振替のお手続きが完了しましたのでお知らせいたします。\n" +
	"口座振替先：テスト株式会社\n" +
	"お申込先：テスト株式会社\n" +
	"引落金額：¥10,000円\n" +
	"今後とも住信SBIネット銀行をよろしくお願いいたします。\n"

func TestDecodeUTF8(t *testing.T) {
	d := New(nil)
	if got := d.Decode([]byte(body)); got != body {
		t.Fatalf("utf-8 round trip failed: %q", got)
	}
}

func TestDecodeJapaneseEncodings(t *testing.T) {
	d := New(nil)
	cases := map[string]func(string) (string, error){
		"shift_jis":   japanese.ShiftJIS.NewEncoder().String,
		"euc-jp":      japanese.EUCJP.NewEncoder().String,
		"iso-2022-jp": japanese.ISO2022JP.NewEncoder().String,
	}
	for name, encode := range cases {
		t.Run(name, func(t *testing.T) {
			raw, err := encode(body)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			got := d.Decode([]byte(raw))
			if !strings.Contains(got, "テスト株式会社") || !strings.Contains(got, "引落金額") {
				t.Fatalf("decoded text lost content: %q", got)
			}
		})
	}
}

func TestDecodeEmptyAndGarbage(t *testing.T) {
	d := New(nil)
	if got := d.Decode(nil); got != "" {
		t.Fatalf("empty input: %q", got)
	}
	got := d.Decode([]byte{'o', 'k', ' ', 0xc3, 0x28})
	if !strings.Contains(got, "ok") {
		t.Fatalf("garbage input should keep valid bytes, got %q", got)
	}
}
