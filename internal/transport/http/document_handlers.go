package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/dmview/internal/metrics"
	"github.com/vovakirdan/dmview/internal/proto"
	"github.com/vovakirdan/dmview/internal/store"
)

const jsonContentType = "application/json; charset=utf-8"

// DocumentHandlers serves one collection of a DocumentStore.
type DocumentHandlers struct {
	store      store.DocumentStore
	collection string
	log        *zerolog.Logger
}

// NewDocumentHandlers creates handlers bound to a collection.
func NewDocumentHandlers(st store.DocumentStore, collection string, logger *zerolog.Logger) *DocumentHandlers {
	return &DocumentHandlers{
		store:      st,
		collection: collection,
		log:        logger,
	}
}

// List returns the whole collection as a keyed object, or null when empty.
// GET /messages.json
func (h *DocumentHandlers) List(c *gin.Context) {
	docs, err := h.store.ListDocuments(c.Request.Context(), h.collection)
	if err != nil {
		h.internalError(c, err, "failed to list documents")
		return
	}

	entries := make([]proto.Entry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, proto.Entry{Key: d.Key, Value: d.Body})
	}

	var buf bytes.Buffer
	if err := proto.EncodeCollection(&buf, entries); err != nil {
		h.internalError(c, err, "failed to encode documents")
		return
	}

	h.log.Debug().Str("collection", h.collection).Int("count", len(docs)).Msg("documents listed")
	c.Data(http.StatusOK, jsonContentType, buf.Bytes())
}

// Push stores the request body under a generated key.
// POST /messages.json
func (h *DocumentHandlers) Push(c *gin.Context) {
	body, ok := h.readBody(c)
	if !ok {
		return
	}

	key, err := h.store.PushDocument(c.Request.Context(), h.collection, body)
	if err != nil {
		if errors.Is(err, store.ErrInvalidDocument) {
			c.JSON(http.StatusBadRequest, proto.ErrorResponse{Error: "invalid data"})
			return
		}
		h.internalError(c, err, "failed to push document")
		return
	}

	h.log.Info().Str("collection", h.collection).Str("message_id", key).Msg("document created")
	metrics.DocumentWrites.WithLabelValues(h.collection, "push").Inc()
	c.JSON(http.StatusOK, proto.PushResponse{Name: key})
}

// Get returns a single document, or null when absent.
// GET /messages/{key}.json
func (h *DocumentHandlers) Get(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}

	doc, err := h.store.GetDocument(c.Request.Context(), h.collection, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.Data(http.StatusOK, jsonContentType, []byte("null"))
			return
		}
		h.internalError(c, err, "failed to get document")
		return
	}

	c.Data(http.StatusOK, jsonContentType, doc.Body)
}

// Put replaces the document at key and echoes the written body.
// PUT /messages/{key}.json
func (h *DocumentHandlers) Put(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}
	body, ok := h.readBody(c)
	if !ok {
		return
	}

	if err := h.store.PutDocument(c.Request.Context(), h.collection, key, body); err != nil {
		if errors.Is(err, store.ErrInvalidDocument) {
			c.JSON(http.StatusBadRequest, proto.ErrorResponse{Error: "invalid data"})
			return
		}
		h.internalError(c, err, "failed to put document")
		return
	}

	h.log.Info().Str("collection", h.collection).Str("message_id", key).Msg("document replaced")
	metrics.DocumentWrites.WithLabelValues(h.collection, "put").Inc()
	c.Data(http.StatusOK, jsonContentType, body)
}

// Patch merges the request body into the document at key and echoes the updated fields.
// PATCH /messages/{key}.json
func (h *DocumentHandlers) Patch(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}
	body, ok := h.readBody(c)
	if !ok {
		return
	}

	if _, err := h.store.PatchDocument(c.Request.Context(), h.collection, key, body); err != nil {
		if errors.Is(err, store.ErrInvalidDocument) {
			c.JSON(http.StatusBadRequest, proto.ErrorResponse{Error: "invalid data; patch must be an object"})
			return
		}
		h.internalError(c, err, "failed to patch document")
		return
	}

	h.log.Info().Str("collection", h.collection).Str("message_id", key).Msg("document updated")
	metrics.DocumentWrites.WithLabelValues(h.collection, "patch").Inc()
	c.Data(http.StatusOK, jsonContentType, body)
}

// Delete removes the document at key. Deleting a missing key succeeds.
// DELETE /messages/{key}.json
func (h *DocumentHandlers) Delete(c *gin.Context) {
	key, ok := h.key(c)
	if !ok {
		return
	}

	if err := h.store.DeleteDocument(c.Request.Context(), h.collection, key); err != nil {
		h.internalError(c, err, "failed to delete document")
		return
	}

	h.log.Info().Str("collection", h.collection).Str("message_id", key).Msg("document deleted")
	metrics.DocumentWrites.WithLabelValues(h.collection, "delete").Inc()
	c.Data(http.StatusOK, jsonContentType, []byte("null"))
}

// key extracts the document key from a "{key}.json" path segment.
func (h *DocumentHandlers) key(c *gin.Context) (string, bool) {
	segment := c.Param("key")
	key, found := strings.CutSuffix(segment, ".json")
	if !found || key == "" {
		c.JSON(http.StatusNotFound, proto.ErrorResponse{Error: "not found"})
		return "", false
	}
	return key, true
}

func (h *DocumentHandlers) readBody(c *gin.Context) (json.RawMessage, bool) {
	data, err := c.GetRawData()
	if err != nil {
		h.log.Debug().Err(err).Msg("failed to read request body")
		c.JSON(http.StatusBadRequest, proto.ErrorResponse{Error: "invalid request body"})
		return nil, false
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || !json.Valid(data) {
		c.JSON(http.StatusBadRequest, proto.ErrorResponse{Error: "invalid data; couldn't parse JSON object"})
		return nil, false
	}
	return json.RawMessage(data), true
}

func (h *DocumentHandlers) internalError(c *gin.Context, err error, msg string) {
	h.log.Error().Err(err).Str("collection", h.collection).Msg(msg)
	c.JSON(http.StatusInternalServerError, proto.ErrorResponse{Error: "internal server error"})
}
