package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"

	"github.com/dukerupert/convocation/internal/model"
)

const postmarkURL = "https://api.postmarkapp.com/email"

// ErrNotConfigured is returned when no server token is set.
var ErrNotConfigured = errors.New("email client not configured: missing server token")

// Client sends transactional mail through Postmark.
type Client struct {
	serverToken string
	fromEmail   string
	apiURL      string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithAPIURL points the client at a different endpoint, for tests.
func WithAPIURL(u string) Option {
	return func(cl *Client) {
		cl.apiURL = u
	}
}

func NewClient(serverToken, fromEmail string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		apiURL:      postmarkURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token and sender are set.
func (c *Client) Configured() bool {
	return c.serverToken != "" && c.fromEmail != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
	Tag      string `json:"Tag,omitempty"`
}

type postmarkError struct {
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
}

// SendFeedbackReply mails a staff reply to the person who submitted the
// feedback, quoting their original message.
func (c *Client) SendFeedbackReply(ctx context.Context, fb *model.Feedback) error {
	if fb.Email == "" {
		return fmt.Errorf("feedback %d has no email address", fb.ID)
	}

	name := fb.Name
	if name == "" {
		name = "there"
	}
	textBody := fmt.Sprintf("Hi %s,\n\n%s\n\nYou wrote:\n%s\n", name, fb.Reply, quote(fb.Message))
	htmlBody := fmt.Sprintf(
		`<p>Hi %s,</p><p>%s</p><p>You wrote:</p><blockquote>%s</blockquote>`,
		html.EscapeString(name),
		strings.ReplaceAll(html.EscapeString(fb.Reply), "\n", "<br>"),
		strings.ReplaceAll(html.EscapeString(fb.Message), "\n", "<br>"),
	)

	return c.send(ctx, postmarkEmail{
		From:     c.fromEmail,
		To:       fb.Email,
		Subject:  "Re: your convocation enquiry",
		HtmlBody: htmlBody,
		TextBody: textBody,
		Tag:      "feedback-reply",
	})
}

func (c *Client) send(ctx context.Context, payload postmarkEmail) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var pe postmarkError
		if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&pe); err == nil && pe.Message != "" {
			return fmt.Errorf("postmark API error: status %d: %s (code %d)", resp.StatusCode, pe.Message, pe.ErrorCode)
		}
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}

func quote(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n")
}
