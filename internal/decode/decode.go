// Package decode turns raw mail body bytes into text without knowing the
// charset in advance.
package decode

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"

	applog "github.com/nv-h/gmail-debit-client/internal/log"
)

// DefaultMinConfidence is the chardet confidence (0-100) above which the
// detected charset is trusted.
const DefaultMinConfidence = 70

// Decoder returns best-effort text for raw bytes. It never fails.
type Decoder interface {
	Decode(raw []byte) string
}

type fallback struct {
	name string
	enc  encoding.Encoding
}

// Detector implements Decoder with statistical detection followed by a fixed
// list of Japanese encodings.
type Detector struct {
	detector      *chardet.Detector
	minConfidence int
	fallbacks     []fallback
	logger        *applog.Logger
}

var _ Decoder = (*Detector)(nil)

func New(logger *applog.Logger) *Detector {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Detector{
		detector:      chardet.NewTextDetector(),
		minConfidence: DefaultMinConfidence,
		fallbacks: []fallback{
			{name: "utf-8"},
			{name: "iso-2022-jp", enc: japanese.ISO2022JP},
			{name: "shift_jis", enc: japanese.ShiftJIS},
			{name: "euc-jp", enc: japanese.EUCJP},
		},
		logger: logger.WithComponent(applog.ComponentDecode),
	}
}

func (d *Detector) Decode(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}

	// JIS escape sequences are 7-bit and would otherwise pass as UTF-8.
	if looksLikeISO2022JP(raw) {
		if text, ok := decodeWith(japanese.ISO2022JP, raw); ok {
			return text
		}
	}

	// Shift_JIS and EUC-JP multibyte sequences are never valid UTF-8.
	if utf8.Valid(raw) {
		return string(raw)
	}

	res, err := d.detector.DetectBest(raw)
	switch {
	case err != nil:
		d.logger.Debug("charset detection failed", applog.FieldError, err)
	case res.Confidence > d.minConfidence:
		if text, ok := decodeLabel(res.Charset, raw); ok {
			return text
		}
		d.logger.Debug("detected charset did not decode", applog.FieldCharset, res.Charset, applog.FieldConfidence, res.Confidence)
	}

	for _, fb := range d.fallbacks {
		var (
			text string
			ok   bool
		)
		if fb.enc == nil {
			text, ok = string(raw), utf8.Valid(raw)
		} else {
			text, ok = decodeWith(fb.enc, raw)
		}
		if ok {
			return text
		}
	}

	d.logger.Warn("no charset decoded cleanly, dropping invalid bytes", applog.FieldSize, len(raw))
	return strings.ToValidUTF8(string(raw), "")
}

func decodeLabel(label string, raw []byte) (string, bool) {
	if strings.EqualFold(label, "utf-8") {
		return string(raw), utf8.Valid(raw)
	}
	enc, _ := charset.Lookup(label)
	if enc == nil {
		return "", false
	}
	return decodeWith(enc, raw)
}

func decodeWith(enc encoding.Encoding, raw []byte) (string, bool) {
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil || bytes.ContainsRune(out, utf8.RuneError) {
		return "", false
	}
	return string(out), true
}

func looksLikeISO2022JP(raw []byte) bool {
	return bytes.Contains(raw, []byte("\x1b$B")) || bytes.Contains(raw, []byte("\x1b$@"))
}
