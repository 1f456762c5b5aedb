package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	gmailapi "google.golang.org/api/gmail/v1"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	svc, err := gmailapi.NewService(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return NewWithService(svc, nil)
}

func TestListFollowsPages(t *testing.T) {
	var queries []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/users/me/messages") {
			http.NotFound(w, r)
			return
		}
		queries = append(queries, r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("pageToken") == "" {
			json.NewEncoder(w).Encode(map[string]any{
				"messages":      []map[string]string{{"id": "a"}, {"id": "b"}},
				"nextPageToken": "p2",
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"messages": []map[string]string{{"id": "c"}},
		})
	})

	handles, err := c.List(context.Background(), "after:2025/03/01 subject:(口座振替)")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(handles) != 3 || handles[2].ID != "c" {
		t.Fatalf("handles = %v", handles)
	}
	if len(queries) != 2 || queries[0] != "after:2025/03/01 subject:(口座振替)" {
		t.Fatalf("queries = %v", queries)
	}
}

func TestGetConvertsMessage(t *testing.T) {
	plain := base64.URLEncoding.EncodeToString([]byte("口座振替先：テスト株式会社\n"))
	html := base64.RawURLEncoding.EncodeToString([]byte("<p>x</p>"))
	delivered := time.Date(2025, 3, 10, 0, 30, 0, 0, time.UTC)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/users/me/messages/m1") {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("format") != "full" {
			http.Error(w, "format", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":           "m1",
			"snippet":      "口座振替先",
			"internalDate": strconv.FormatInt(delivered.UnixMilli(), 10),
			"payload": map[string]any{
				"mimeType": "multipart/mixed",
				"headers": []map[string]string{
					{"name": "From", "value": "post_master@netbk.co.jp"},
					{"name": "Subject", "value": "口座振替のお知らせ"},
				},
				"parts": []map[string]any{
					{
						"mimeType": "multipart/alternative",
						"parts": []map[string]any{
							{"mimeType": "text/plain", "body": map[string]any{"data": plain}},
							{"mimeType": "text/html", "body": map[string]any{"data": html}},
						},
					},
					{"mimeType": "application/pdf", "body": map[string]any{"attachmentId": "att"}},
				},
			},
		})
	})

	msg, err := c.Get(context.Background(), "m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(msg.Headers) != 2 || msg.HeaderValues("from")[0] != "post_master@netbk.co.jp" {
		t.Fatalf("headers = %v", msg.Headers)
	}
	if len(msg.Parts) != 2 {
		t.Fatalf("parts = %d", len(msg.Parts))
	}
	if string(msg.Parts[0].Data) != "口座振替先：テスト株式会社\n" || string(msg.Parts[1].Data) != "<p>x</p>" {
		t.Fatalf("parts = %q / %q", msg.Parts[0].Data, msg.Parts[1].Data)
	}
	if !msg.DeliveredAt.Equal(delivered) {
		t.Fatalf("delivered = %s", msg.DeliveredAt)
	}
}

func TestGetPropagatesErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})
	if _, err := c.Get(context.Background(), "m1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestCredentialsToken(t *testing.T) {
	if _, err := (Credentials{}).Token(); err != ErrNoToken {
		t.Fatalf("err = %v", err)
	}
	missing := Credentials{TokenFile: filepath.Join(t.TempDir(), "token.json")}
	if _, err := missing.Token(); err != ErrNoToken {
		t.Fatalf("err = %v", err)
	}

	path := filepath.Join(t.TempDir(), "token.json")
	if err := SaveToken(path, &oauth2.Token{AccessToken: "abc", RefreshToken: "def"}); err != nil {
		t.Fatal(err)
	}
	tok, err := (Credentials{TokenFile: path}).Token()
	if err != nil {
		t.Fatal(err)
	}
	if tok.AccessToken != "abc" || tok.RefreshToken != "def" {
		t.Fatalf("token = %+v", tok)
	}
}

func TestOAuthConfigRequiresClient(t *testing.T) {
	if _, err := (Credentials{}).OAuthConfig(); err == nil {
		t.Fatal("expected error")
	}
	client := `{"installed":{"client_id":"id","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`
	cfg, err := (Credentials{ClientJSON: client}).OAuthConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ClientID != "id" || len(cfg.Scopes) != 1 || cfg.Scopes[0] != Scope {
		t.Fatalf("config = %+v", cfg)
	}
}
