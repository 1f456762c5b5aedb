package memory

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	netmail "net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/nv-h/gmail-debit-client/internal/mail"
)

var wordDecoder = &mime.WordDecoder{CharsetReader: charset.NewReaderLabel}

// NewFromDir loads every *.eml file in dir. The file name without extension
// becomes the message id.
func NewFromDir(dir string, loc *time.Location) (*Mailbox, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.eml"))
	if err != nil {
		return nil, fmt.Errorf("glob mail dir: %w", err)
	}
	box := New(loc)
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", p, err)
		}
		id := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		msg, err := ParseEML(id, f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}
		box.Add(msg)
	}
	return box, nil
}

// ParseEML reads an RFC 5322 message. Body parts keep their original charset;
// only the transfer encoding is undone.
func ParseEML(id string, r io.Reader) (*mail.Message, error) {
	m, err := netmail.ReadMessage(r)
	if err != nil {
		return nil, fmt.Errorf("read message: %w", err)
	}

	msg := &mail.Message{ID: id}
	for name, values := range m.Header {
		for _, v := range values {
			if dec, err := wordDecoder.DecodeHeader(v); err == nil {
				v = dec
			}
			msg.Headers = append(msg.Headers, mail.Header{Name: name, Value: v})
		}
	}
	if d, err := m.Header.Date(); err == nil {
		msg.DeliveredAt = d
	}

	parts, err := readParts(m.Header.Get("Content-Type"), m.Header.Get("Content-Transfer-Encoding"), m.Body)
	if err != nil {
		return nil, err
	}
	msg.Parts = parts
	return msg, nil
}

// readParts flattens a possibly nested multipart body into leaf parts.
func readParts(contentType, transferEncoding string, body io.Reader) ([]mail.Part, error) {
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(body, params["boundary"])
		var out []mail.Part
		for {
			p, err := mr.NextRawPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("read multipart: %w", err)
			}
			leaves, err := readParts(p.Header.Get("Content-Type"), p.Header.Get("Content-Transfer-Encoding"), p)
			if err != nil {
				return nil, err
			}
			out = append(out, leaves...)
		}
		return out, nil
	}

	data, err := io.ReadAll(transferDecoder(transferEncoding, body))
	if err != nil {
		return nil, fmt.Errorf("decode %s body: %w", mediaType, err)
	}
	return []mail.Part{{MimeType: mediaType, Data: data}}, nil
}

func transferDecoder(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}
