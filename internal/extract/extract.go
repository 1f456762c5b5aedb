// Package extract turns one debit notification mail into a transaction record.
package extract

import (
	"html"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/width"

	"github.com/nv-h/gmail-debit-client/internal/core"
	"github.com/nv-h/gmail-debit-client/internal/decode"
	applog "github.com/nv-h/gmail-debit-client/internal/log"
	"github.com/nv-h/gmail-debit-client/internal/mail"
)

// DefaultTrustedSenders are matched as case-insensitive substrings of From.
var DefaultTrustedSenders = []string{
	"post_master@netbk.co.jp",
	"@netbk.co.jp",
}

var (
	// Payee follows the transfer destination label and ends at a newline or
	// the application label that comes next in the mail.
	payeePattern = regexp.MustCompile(`口座振替先[:：][\s\p{Zs}]*([\w\W]+?)(?:\n|お申込先)`)
	// Amount follows the debit amount label and precedes the yen unit.
	amountPattern = regexp.MustCompile(`引落金額[\s\p{Zs}]*[:：][\s\p{Zs}]*([¥￥\d０-９,，]+)円`)
)

type Config struct {
	TrustedSenders []string
	// Location is used to derive a period from a delivery timestamp.
	Location *time.Location
}

type Extractor struct {
	senders []string
	loc     *time.Location
	decoder decode.Decoder
	logger  *applog.Logger
}

func New(cfg Config, decoder decode.Decoder, logger *applog.Logger) *Extractor {
	if logger == nil {
		logger = applog.Discard()
	}
	senders := cfg.TrustedSenders
	if len(senders) == 0 {
		senders = DefaultTrustedSenders
	}
	lowered := make([]string, 0, len(senders))
	for _, s := range senders {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			lowered = append(lowered, s)
		}
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	if decoder == nil {
		decoder = decode.New(logger)
	}
	return &Extractor{
		senders: lowered,
		loc:     loc,
		decoder: decoder,
		logger:  logger.WithComponent(applog.ComponentExtract),
	}
}

// Trusted reports whether any From header contains an allow-listed sender.
func (e *Extractor) Trusted(headers []mail.Header) bool {
	for _, h := range headers {
		if !strings.EqualFold(h.Name, "from") {
			continue
		}
		from := strings.ToLower(h.Value)
		for _, s := range e.senders {
			if strings.Contains(from, s) {
				return true
			}
		}
	}
	return false
}

// Extract parses decoded message text. Missing fields fall back to the
// unknown payee and a zero amount; only an untrusted sender yields a skip.
func (e *Extractor) Extract(text string, period core.Period, headers []mail.Header) Outcome {
	if !e.Trusted(headers) {
		return Skipped(SkipUntrustedSender, nil)
	}

	payee := core.UnknownPayee
	if m := payeePattern.FindStringSubmatch(text); m != nil {
		if p := strings.TrimSpace(m[1]); p != "" {
			payee = p
		}
	}

	amount := "0"
	if m := amountPattern.FindStringSubmatch(text); m != nil {
		amount = core.CleanYenAmount(width.Narrow.String(m[1]))
	}

	return Accepted(core.NewTransaction(period, payee, core.NormalizeAmount(amount)))
}

// FromMessage extracts a record from a fetched message. When byDelivery is
// set the period is the month the message was delivered in, not the one it
// was queried for.
func (e *Extractor) FromMessage(msg *mail.Message, period core.Period, byDelivery bool) Outcome {
	if !e.Trusted(msg.Headers) {
		e.logger.Debug("skipping message from untrusted sender", applog.FieldMessageID, msg.ID)
		return Skipped(SkipUntrustedSender, nil)
	}

	if byDelivery && !msg.DeliveredAt.IsZero() {
		period = core.PeriodOf(msg.DeliveredAt.In(e.loc))
	}

	text := e.decoder.Decode(body(msg))
	if strings.TrimSpace(text) == "" {
		text = html.UnescapeString(msg.Snippet)
	}

	out := e.Extract(text, period, msg.Headers)
	if out.OK() {
		out.Record = out.Record.WithMessageID(msg.ID)
		e.logger.Debug("extracted debit",
			applog.FieldMessageID, msg.ID,
			applog.FieldPeriod, out.Record.Period,
			applog.FieldPayee, out.Record.Payee,
			applog.FieldAmount, out.Record.Amount.String())
	}
	return out
}

// body prefers the first text/plain leaf, then any non-empty leaf.
func body(msg *mail.Message) []byte {
	for _, p := range msg.Parts {
		if len(p.Data) > 0 && strings.HasPrefix(strings.ToLower(p.MimeType), "text/plain") {
			return p.Data
		}
	}
	for _, p := range msg.Parts {
		if len(p.Data) > 0 {
			return p.Data
		}
	}
	return nil
}
