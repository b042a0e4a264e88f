package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// WordPress replaces the content of one page through the REST API.
type WordPress struct {
	URL      string
	User     string
	Password string // application password
	PageID   string
	Client   *http.Client
	Logger   zerolog.Logger
}

// NewWordPress creates a WordPress publisher.
func NewWordPress(url, user, password, pageID string, log zerolog.Logger) *WordPress {
	return &WordPress{
		URL:      url,
		User:     user,
		Password: password,
		PageID:   pageID,
		Client:   &http.Client{Timeout: 60 * time.Second},
		Logger:   log,
	}
}

func (w *WordPress) endpoint() string {
	return fmt.Sprintf("%s/wp-json/wp/v2/pages/%s", strings.TrimRight(w.URL, "/"), w.PageID)
}

// Publish overwrites the page content with html.
func (w *WordPress) Publish(ctx context.Context, html string) error {
	if w.URL == "" || w.User == "" || w.Password == "" || w.PageID == "" {
		return fmt.Errorf("wordpress: incomplete configuration")
	}
	body, err := json.Marshal(map[string]string{"content": html})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(w.User, w.Password)
	req.Header.Set("Content-Type", "application/json")

	w.Logger.Info().Str("url", w.endpoint()).Int("bytes", len(html)).Msg("publishing to wordpress")
	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("wordpress post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("wordpress API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
