package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// MessagesCollection is the collection that holds chat messages.
const MessagesCollection = "messages"

// Message is a chat record as seen by the client. ID is the store-assigned key
// and is never part of the stored body.
type Message struct {
	ID        string `json:"-"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

// Document is a schema-less record held by a DocumentStore.
type Document struct {
	Key  string
	Body json.RawMessage
}

// ErrNotFound is returned when a document key does not exist.
var ErrNotFound = errors.New("document not found")

// ErrInvalidDocument is returned when a body is not a JSON object where one is required.
var ErrInvalidDocument = errors.New("document body must be a json object")

// StatusError is returned by remote stores for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("store responded with status %d", e.StatusCode)
	}
	return fmt.Sprintf("store responded with status %d: %s", e.StatusCode, e.Body)
}

// MessageStore is the client view of the Message Store.
type MessageStore interface {
	// ListMessages returns every message in the collection, in store order.
	ListMessages(ctx context.Context) ([]Message, error)

	// CreateMessage stores a new message and returns its assigned key.
	CreateMessage(ctx context.Context, msg Message) (string, error)

	// UpdateMessage merges the message fields into the record at id.
	UpdateMessage(ctx context.Context, id string, msg Message) error

	// DeleteMessage removes the record at id. Missing ids are not an error.
	DeleteMessage(ctx context.Context, id string) error
}

// DocumentStore persists schema-less documents grouped by collection.
type DocumentStore interface {
	// ListDocuments returns all documents of a collection in insertion order.
	ListDocuments(ctx context.Context, collection string) ([]Document, error)

	// GetDocument returns a single document or ErrNotFound.
	GetDocument(ctx context.Context, collection, key string) (*Document, error)

	// PushDocument stores body under a newly generated key.
	PushDocument(ctx context.Context, collection string, body json.RawMessage) (string, error)

	// PutDocument replaces (or creates) the document at key.
	PutDocument(ctx context.Context, collection, key string, body json.RawMessage) error

	// PatchDocument merges the top-level fields of patch into the document at key
	// and returns the merged body. A missing document is created from the patch.
	PatchDocument(ctx context.Context, collection, key string, patch json.RawMessage) (json.RawMessage, error)

	// DeleteDocument removes the document at key. Missing keys are not an error.
	DeleteDocument(ctx context.Context, collection, key string) error

	// Close closes the underlying database connection.
	Close() error
}
