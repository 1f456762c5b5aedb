package gmail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
)

// Scope is the only permission the client asks for.
const Scope = gmailapi.GmailReadonlyScope

var ErrNoToken = errors.New("no OAuth token; run oauth-init first")

// Credentials locate the installed-app client secret and the user token.
// Inline JSON wins over a file path.
type Credentials struct {
	ClientJSON string
	ClientFile string
	TokenJSON  string
	TokenFile  string
}

// OAuthConfig builds the OAuth2 config from the client secret.
func (c Credentials) OAuthConfig() (*oauth2.Config, error) {
	var (
		b   []byte
		err error
	)
	switch {
	case strings.TrimSpace(c.ClientJSON) != "":
		b = []byte(c.ClientJSON)
	case c.ClientFile != "":
		b, err = os.ReadFile(c.ClientFile)
		if err != nil {
			return nil, fmt.Errorf("read client file: %w", err)
		}
	default:
		return nil, errors.New("missing OAuth client credentials (set oauth_client_json or oauth_client_file)")
	}
	cfg, err := google.ConfigFromJSON(b, Scope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

// Token loads the stored user token.
func (c Credentials) Token() (*oauth2.Token, error) {
	var b []byte
	switch {
	case strings.TrimSpace(c.TokenJSON) != "":
		b = []byte(c.TokenJSON)
	case c.TokenFile != "":
		var err error
		b, err = os.ReadFile(c.TokenFile)
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoToken
		}
		if err != nil {
			return nil, fmt.Errorf("read token file: %w", err)
		}
	default:
		return nil, ErrNoToken
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(b, tok); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return tok, nil
}

// SaveToken writes tok to path readable only by the owner.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// TokenSource returns a refreshing token source. Refreshed tokens are written
// back to TokenFile when one is configured.
func (c Credentials) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	cfg, err := c.OAuthConfig()
	if err != nil {
		return nil, err
	}
	tok, err := c.Token()
	if err != nil {
		return nil, err
	}
	base := cfg.TokenSource(ctx, tok)
	if c.TokenFile == "" || strings.TrimSpace(c.TokenJSON) != "" {
		return base, nil
	}
	return oauth2.ReuseTokenSource(tok, &persistingSource{
		src:  base,
		path: c.TokenFile,
		last: tok.AccessToken,
	}), nil
}

type persistingSource struct {
	mu   sync.Mutex
	src  oauth2.TokenSource
	path string
	last string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		// A failed save only costs a refresh on the next run.
		_ = SaveToken(p.path, tok)
		p.last = tok.AccessToken
	}
	return tok, nil
}
