package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

var (
	// ErrDocumentNotFound is returned by Get and Update when no document has the id.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrConflict is returned by Modify when the document kept changing underneath it.
	ErrConflict = errors.New("document changed concurrently")
)

// maxModifyAttempts bounds the retries of one Modify call.
const maxModifyAttempts = 16

// ModifyFunc receives the stored document, empty when absent, and returns the
// document to write. It may run more than once and must only touch its result.
type ModifyFunc func(current Document, exists bool) (Document, error)

// Document is a schemaless JSON document.
type Document map[string]any

// Snapshot is a stored document together with its id.
type Snapshot struct {
	ID        string
	Data      Document
	CreatedAt time.Time
}

// DocumentRepository is the document-collection API the grading bridge is
// written against. Field paths in QueryEquals are dot separated
// ("request.result_sourced_id").
type DocumentRepository interface {
	Get(ctx context.Context, collection, id string) (*Snapshot, error)
	// QueryEquals returns at most limit documents whose field equals value,
	// in scan order. limit <= 0 means no limit.
	QueryEquals(ctx context.Context, collection, field string, value any, limit int) ([]Snapshot, error)
	// Insert stores data under a freshly generated id and returns the id.
	Insert(ctx context.Context, collection string, data Document) (string, error)
	// Set creates or replaces the document with the given id.
	Set(ctx context.Context, collection, id string, data Document) error
	// Update replaces an existing document as a whole.
	Update(ctx context.Context, collection, id string, data Document) error
	// Modify reads, changes and writes one document as a unit, creating it
	// when absent. A concurrent Modify or Update makes it start over with the
	// newer document. Errors returned by fn are passed through unchanged.
	Modify(ctx context.Context, collection, id string, fn ModifyFunc) error
	List(ctx context.Context, collection string) ([]Snapshot, error)
	Close() error
}

// Encode converts a typed value into a Document.
func Encode(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	doc := Document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return doc, nil
}

// Decode fills v from a Document.
func Decode(doc Document, v any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// lookup resolves a dotted field path inside doc.
func lookup(doc map[string]any, field string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(field, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// valuesEqual compares two values by their canonical JSON encoding, so 9 and
// 9.0 compare equal while "9" and 9 do not.
func valuesEqual(a, b any) bool {
	ca, errA := canonicalJSON(a)
	cb, errB := canonicalJSON(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ca, cb)
}

func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	return json.Marshal(decoded)
}
