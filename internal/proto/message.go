package proto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Record is the body of a message document as stored in the Message Store.
type Record struct {
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

// PushResponse is returned by a create (POST) on a collection.
type PushResponse struct {
	Name string `json:"name"`
}

// ErrorResponse is the body the store sends with non-2xx statuses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Entry is one key/value pair of a collection listing, in document order.
type Entry struct {
	Key   string
	Value json.RawMessage
}

// ErrNotObject is returned when a collection body is neither an object nor null.
var ErrNotObject = errors.New("collection is not a json object")

// DecodeCollection reads a keyed collection object and returns its entries in the
// order they appear in the document. A null body decodes to no entries.
func DecodeCollection(r io.Reader) ([]Entry, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read collection: %w", err)
	}
	if tok == nil {
		return nil, nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, ErrNotObject
	}

	var entries []Entry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key token %v", keyTok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("read value for %q: %w", key, err)
		}
		entries = append(entries, Entry{Key: key, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("read collection end: %w", err)
	}
	return entries, nil
}

// EncodeCollection writes entries as a keyed object, preserving their order.
func EncodeCollection(w io.Writer, entries []Entry) error {
	if len(entries) == 0 {
		_, err := io.WriteString(w, "null")
		return err
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if len(e.Value) == 0 {
			buf.WriteString("null")
		} else {
			buf.Write(e.Value)
		}
	}
	buf.WriteByte('}')

	_, err := w.Write(buf.Bytes())
	return err
}
