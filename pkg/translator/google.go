package translator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/campusdesk/campusdesk/pkg/models"
	"github.com/campusdesk/campusdesk/pkg/upstream"
)

// DefaultGoogleURL is the public web translation endpoint.
const DefaultGoogleURL = "https://translate.googleapis.com"

// maxGoogleChars is the longest text the web endpoint accepts.
const maxGoogleChars = 5000

// Google translates through the keyless Google web translation endpoint.
type Google struct {
	baseURL string
	client  *http.Client
}

// NewGoogle creates a Google backend. An empty baseURL uses DefaultGoogleURL
// and a nil client uses http.DefaultClient.
func NewGoogle(baseURL string, client *http.Client) *Google {
	if baseURL == "" {
		baseURL = DefaultGoogleURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Google{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (g *Google) Name() string { return "google" }

// Translate auto-detects the source language and translates text to target.
func (g *Google) Translate(ctx context.Context, text string, target models.Language) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	if len([]rune(text)) > maxGoogleChars {
		return "", upstream.Generic(g.Name(), fmt.Errorf("text longer than %d characters", maxGoogleChars))
	}

	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", "auto")
	q.Set("tl", string(target))
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/translate_a/single?"+q.Encode(), nil)
	if err != nil {
		return "", upstream.Generic(g.Name(), err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", upstream.Generic(g.Name(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", upstream.Generic(g.Name(), fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", upstream.Quota(g.Name(), fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return "", upstream.Generic(g.Name(), fmt.Errorf("status %d", resp.StatusCode))
	}

	return parseGoogle(body)
}

// parseGoogle joins the translated segments of a gtx response, which looks
// like [[["seg one","src",...],["seg two","src",...]],null,"en",...].
func parseGoogle(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", upstream.Generic("google", errors.New("malformed response"))
	}
	segments := gjson.GetBytes(body, "0.#.0")
	if !segments.Exists() || len(segments.Array()) == 0 {
		return "", upstream.Generic("google", errors.New("no translation in response"))
	}

	var b strings.Builder
	for _, s := range segments.Array() {
		b.WriteString(s.String())
	}
	return b.String(), nil
}
