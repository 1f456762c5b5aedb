// Command oauth-init runs the installed-app consent flow once and stores the
// Gmail read-only token where debits expects it.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"

	"github.com/nv-h/gmail-debit-client/internal/cli"
	"github.com/nv-h/gmail-debit-client/internal/config"
	applog "github.com/nv-h/gmail-debit-client/internal/log"
	"github.com/nv-h/gmail-debit-client/internal/mail/gmail"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	port := flag.String("port", "8085", "local port for the OAuth redirect")
	flag.Parse()

	cli.LoadEnvFile()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel)

	if err := run(logger, cfg, *port); err != nil {
		logger.Error("Authorization failed", applog.FieldError, err)
		os.Exit(1)
	}
}

func run(logger *applog.Logger, cfg *config.Config, port string) error {
	creds := gmail.Credentials{ClientJSON: cfg.OAuthClientJSON, ClientFile: cfg.OAuthClientFile}
	oauthCfg, err := creds.OAuthConfig()
	if err != nil {
		return err
	}

	// The OAuth client must list http://localhost:<port>/callback as an
	// authorized redirect URI.
	oauthCfg.RedirectURL = "http://localhost:" + port + "/callback"

	state, err := newState()
	if err != nil {
		return err
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	mux := http.NewServeMux()
	srv := &http.Server{Addr: "localhost:" + port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if errStr := q.Get("error"); errStr != "" {
			http.Error(w, "OAuth error: "+errStr, http.StatusBadRequest)
			errCh <- fmt.Errorf("oauth error: %s", errStr)
			return
		}
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		select {
		case codeCh <- q.Get("code"):
		default:
		}
	})
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	defer srv.Close()

	fmt.Printf("Open this URL to authorize:\n%s\n", oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	ctx, cancel := cli.SignalContext()
	defer cancel()

	select {
	case code := <-codeCh:
		exchangeCtx, cancelExchange := context.WithTimeout(ctx, 30*time.Second)
		defer cancelExchange()
		tok, err := oauthCfg.Exchange(exchangeCtx, code)
		if err != nil {
			return fmt.Errorf("token exchange: %w", err)
		}
		if err := gmail.SaveToken(cfg.OAuthTokenFile, tok); err != nil {
			return err
		}
		logger.Info("Saved token", applog.FieldPath, cfg.OAuthTokenFile)
		fmt.Printf("Saved token to %s\n", cfg.OAuthTokenFile)
		return nil
	case err := <-errCh:
		return err
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("authorization timed out")
	case <-ctx.Done():
		return fmt.Errorf("interrupted")
	}
}

func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
