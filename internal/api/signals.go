package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rickgao/signalhub/internal/signal"
)

// SubmitRequest is the JSON body for a channel. Structured channels read
// Cmd, Symbol and ID; text channels read Text, Who, Room, Symbol and ID.
type SubmitRequest struct {
	Cmd    string `json:"cmd,omitempty"`
	Symbol string `json:"symbol,omitempty"`
	ID     string `json:"id,omitempty"`
	Text   string `json:"text,omitempty"`
	Who    string `json:"who,omitempty"`
	Room   string `json:"room,omitempty"`
}

// TextMeta is the out-of-band metadata for a plain-text submission.
type TextMeta struct {
	Who    string
	Room   string
	Symbol string
	ID     string
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	body, err := c.doWithRetry(ctx, request{method: http.MethodGet, path: "/health"})
	if err != nil {
		return err
	}

	var resp struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if !resp.OK {
		return errors.New("server reported not ok")
	}
	return nil
}

// Submit posts a JSON submission to channel. A rejected verdict is returned
// as a Result, not an error.
func (c *Client) Submit(ctx context.Context, channel string, req SubmitRequest) (signal.Result, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return signal.Result{}, fmt.Errorf("marshal request: %w", err)
	}
	return c.submit(ctx, request{
		method:      http.MethodPost,
		path:        "/signal/" + url.PathEscape(channel),
		body:        data,
		contentType: "application/json",
	})
}

// SubmitText posts raw chat text to a text channel's plain route.
func (c *Client) SubmitText(ctx context.Context, channel, text string, meta TextMeta) (signal.Result, error) {
	query := url.Values{}
	for k, v := range map[string]string{"who": meta.Who, "room": meta.Room, "symbol": meta.Symbol, "id": meta.ID} {
		if v != "" {
			query.Set(k, v)
		}
	}
	return c.submit(ctx, request{
		method:      http.MethodPost,
		path:        "/signal/" + url.PathEscape(channel) + "_plain",
		query:       query,
		body:        []byte(text),
		contentType: "text/plain; charset=utf-8",
	})
}

func (c *Client) submit(ctx context.Context, r request) (signal.Result, error) {
	body, err := c.doWithRetry(ctx, r)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
			if ack, ok := decodeAck(apiErr.Body); ok && ack.Error != "" {
				return ack.Result(), nil
			}
		}
		return signal.Result{}, err
	}

	ack, ok := decodeAck(body)
	if !ok {
		return signal.Result{}, fmt.Errorf("unmarshal response: %s", body)
	}
	return ack.Result(), nil
}

func decodeAck(body []byte) (signal.Ack, bool) {
	var ack signal.Ack
	if err := json.Unmarshal(body, &ack); err != nil {
		return signal.Ack{}, false
	}
	return ack, true
}

// TakeNext removes and returns the oldest pending signal of channel.
func (c *Client) TakeNext(ctx context.Context, channel string) (signal.Signal, bool, error) {
	body, err := c.doWithRetry(ctx, request{
		method: http.MethodGet,
		path:   "/last/" + url.PathEscape(channel),
	})
	if err != nil {
		return signal.Signal{}, false, err
	}

	// An empty queue answers {"signal":null}, which decodes to a zero Wire.
	var w signal.Wire
	if err := json.Unmarshal(body, &w); err != nil {
		return signal.Signal{}, false, fmt.Errorf("unmarshal response: %w", err)
	}
	if w.Cmd == "" {
		return signal.Signal{}, false, nil
	}

	sig, err := w.Signal()
	if err != nil {
		return signal.Signal{}, false, fmt.Errorf("decode signal: %w", err)
	}
	return sig, true, nil
}
