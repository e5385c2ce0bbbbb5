// Package rest implements store.MessageStore over the document store's REST surface.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/dmview/internal/proto"
	"github.com/vovakirdan/dmview/internal/store"
)

// maxErrorBody bounds how much of an error response is kept in a StatusError.
const maxErrorBody = 512

// Client talks to a REST document store rooted at BaseURL.
type Client struct {
	baseURL    string
	collection string
	http       *http.Client
	log        *zerolog.Logger
}

// NewClient creates a client for the messages collection. A zero timeout
// leaves requests unbounded.
func NewClient(baseURL string, timeout time.Duration, logger *zerolog.Logger) *Client {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: store.MessagesCollection,
		http:       &http.Client{Timeout: timeout},
		log:        logger,
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// ListMessages fetches the whole collection and returns it in document order.
// Entries that are not message objects are skipped.
func (c *Client) ListMessages(ctx context.Context) ([]store.Message, error) {
	resp, err := c.do(ctx, http.MethodGet, c.collectionURL(), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	entries, err := proto.DecodeCollection(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	messages := make([]store.Message, 0, len(entries))
	for _, e := range entries {
		var rec proto.Record
		if err := json.Unmarshal(e.Value, &rec); err != nil {
			c.log.Debug().Err(err).Str("message_id", e.Key).Msg("skipping malformed record")
			continue
		}
		messages = append(messages, store.Message{
			ID:        e.Key,
			Sender:    rec.Sender,
			Recipient: rec.Recipient,
			Message:   rec.Message,
		})
	}

	return messages, nil
}

// CreateMessage posts a new record and returns the key assigned by the store.
func (c *Client) CreateMessage(ctx context.Context, msg store.Message) (string, error) {
	body, err := json.Marshal(toRecord(msg))
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.collectionURL(), body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var push proto.PushResponse
	if err := json.NewDecoder(resp.Body).Decode(&push); err != nil {
		return "", fmt.Errorf("decode push response: %w", err)
	}
	return push.Name, nil
}

// UpdateMessage merges the message fields into the record at id.
func (c *Client) UpdateMessage(ctx context.Context, id string, msg store.Message) error {
	body, err := json.Marshal(toRecord(msg))
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPatch, c.documentURL(id), body)
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

// DeleteMessage removes the record at id.
func (c *Client) DeleteMessage(ctx context.Context, id string) error {
	resp, err := c.do(ctx, http.MethodDelete, c.documentURL(id), nil)
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

func (c *Client) collectionURL() string {
	return c.baseURL + "/" + c.collection + ".json"
}

func (c *Client) documentURL(id string) string {
	return c.baseURL + "/" + c.collection + "/" + url.PathEscape(id) + ".json"
}

// do sends a request and returns the response for 2xx statuses.
func (c *Client) do(ctx context.Context, method, target string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}

	c.log.Debug().Str("method", method).Str("path", req.URL.Path).Int("status", resp.StatusCode).Msg("store request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := &store.StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
		var er proto.ErrorResponse
		if json.Unmarshal(data, &er) == nil && er.Error != "" {
			statusErr.Body = er.Error
		}
		return nil, statusErr
	}

	return resp, nil
}

func toRecord(msg store.Message) proto.Record {
	return proto.Record{
		Sender:    msg.Sender,
		Recipient: msg.Recipient,
		Message:   msg.Message,
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

var _ store.MessageStore = (*Client)(nil)
