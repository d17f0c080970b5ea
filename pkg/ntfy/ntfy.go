package ntfy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/nezhahq/sysmon/model"
)

const maxResponseBody = 64 << 10

type Message struct {
	Title    string
	Body     string
	Priority string
	Tags     []string
}

// Sender delivers one notification. Implementations must return within a
// bounded time; failures are *model.NotificationError.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Client struct {
	cfg    model.NtfyConfig
	url    string
	http   *http.Client
	logger *slog.Logger
}

func New(cfg model.NtfyConfig, logger *slog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		url:    strings.TrimRight(cfg.ServerURL, "/") + "/" + cfg.Topic,
		http:   &http.Client{},
		logger: logger.With("component", "ntfy"),
	}
}

func (c *Client) Enabled() bool {
	return c.cfg.Enabled
}

// Send posts msg to the configured topic. A disabled client drops the
// message and reports success.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if !c.cfg.Enabled {
		c.logger.Debug("notifications disabled, skipping", "title", msg.Title)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(msg.Body))
	if err != nil {
		return &model.NotificationError{Err: err}
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Title", mime.QEncoding.Encode("utf-8", msg.Title))
	priority := msg.Priority
	if priority == "" {
		priority = c.cfg.Priority
	}
	if priority != "" {
		req.Header.Set("Priority", priority)
	}
	if len(msg.Tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.Tags, ","))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("notification failed", "title", msg.Title, "error", err)
		return &model.NotificationError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return &model.NotificationError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reason := gjson.GetBytes(body, "error").String()
		if reason == "" {
			reason = strings.TrimSpace(string(body))
		}
		c.logger.Error("notification rejected", "title", msg.Title, "status", resp.StatusCode, "reason", reason)
		return &model.NotificationError{StatusCode: resp.StatusCode, Err: errors.New(reason)}
	}

	c.logger.Info("notification sent", "title", msg.Title, "id", gjson.GetBytes(body, "id").String())
	return nil
}
