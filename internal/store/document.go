package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Document is the persisted form of the store: the whole collection plus the id counter.
type Document struct {
	Products []Product `json:"products"`
	NextID   Counter   `json:"nextId"`
}

// UnmarshalJSON decodes a stored document. A top-level value that is not an object, or a
// products value that is not an array, decodes as a document with no products so Open reseeds it.
func (d *Document) UnmarshalJSON(data []byte) error {
	*d = Document{}
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	var stored struct {
		Products json.RawMessage `json:"products"`
		NextID   Counter         `json:"nextId"`
	}
	if err := json.Unmarshal(raw, &stored); err != nil {
		return err
	}
	d.NextID = stored.NextID
	products := bytes.TrimSpace(stored.Products)
	if len(products) == 0 || products[0] != '[' {
		return nil
	}
	return json.Unmarshal(products, &d.Products)
}

// Counter is the persisted nextId. Absent, null, non-numeric or negative values
// decode as an unusable counter instead of failing the whole document.
// A positive fraction is rounded up and marked so that Open rewrites it.
type Counter struct {
	Value   int64
	Valid   bool
	rounded bool
}

// NewCounter returns a usable counter holding v.
func NewCounter(v int64) Counter {
	return Counter{Value: v, Valid: true}
}

func (c Counter) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, c.Value, 10), nil
}

func (c *Counter) UnmarshalJSON(data []byte) error {
	*c = Counter{}
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var s string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
	} else {
		s = string(raw)
	}
	if v, ok := parseNumericID(s); ok {
		if v >= 0 {
			*c = NewCounter(v)
		}
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err == nil && f > 0 && f < math.MaxInt64 {
		*c = Counter{Value: int64(math.Ceil(f)), Valid: true, rounded: true}
	}
	return nil
}

// Exact reports whether the counter holds its stored value unchanged.
func (c Counter) Exact() bool {
	return c.Valid && !c.rounded
}

// productID decodes a stored product id. Numbers and booleans are kept in their
// canonical text form, so 35 and 35.0 both become "35".
type productID string

func (id *productID) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		*id = ""
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*id = productID(s)
	case bytes.Equal(raw, []byte("true")) || bytes.Equal(raw, []byte("false")):
		*id = productID(raw)
	default:
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return fmt.Errorf("product id %s is not a string or number", raw)
		}
		*id = productID(strconv.FormatFloat(f, 'f', -1, 64))
	}
	return nil
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := &Document{NextID: d.NextID}
	if d.Products != nil {
		out.Products = make([]Product, len(d.Products))
		copy(out.Products, d.Products)
	}
	return out
}

// MarshalDocument encodes a document the way every backend stores it.
func MarshalDocument(d *Document) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// UnmarshalDocument decodes a stored document.
func UnmarshalDocument(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// parseNumericID reports the value of s if it is a base-10 integer.
func parseNumericID(s string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
