package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

const (
	fieldID   = "id"
	fieldCode = "code"
)

// Fields is a caller-supplied product payload. Values are kept as raw JSON so
// prices and other numbers survive a load/persist cycle byte for byte.
type Fields map[string]json.RawMessage

// NewFields encodes each value of m as JSON.
func NewFields(m map[string]any) (Fields, error) {
	f := make(Fields, len(m))
	for k, v := range m {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		f[k] = raw
	}
	return f, nil
}

type Product struct {
	ID    int64
	Code  string
	Attrs Fields
}

// Attr decodes the attribute key into dst. It reports false when the product
// has no such attribute.
func (p Product) Attr(key string, dst any) (bool, error) {
	raw, ok := p.Attrs[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (p Product) clone() Product {
	p.Attrs = maps.Clone(p.Attrs)
	return p
}

// MarshalJSON writes id and code first, then the attributes in key order.
func (p Product) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"id":`)
	fmt.Fprintf(&buf, "%d", p.ID)

	code, err := json.Marshal(p.Code)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`,"code":`)
	buf.Write(code)

	for _, k := range slices.Sorted(maps.Keys(p.Attrs)) {
		if k == fieldID || k == fieldCode {
			continue
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(p.Attrs[k])
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

var errMissingID = errors.New("product id missing")

func (p *Product) UnmarshalJSON(b []byte) error {
	var f Fields
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	if f == nil {
		return errors.New("product must be a json object")
	}

	rawID, ok := f[fieldID]
	if !ok {
		return errMissingID
	}
	var id int64
	if err := json.Unmarshal(rawID, &id); err != nil {
		return fmt.Errorf("product id: %w", err)
	}

	code, err := codeOf(f)
	if err != nil {
		return err
	}

	delete(f, fieldID)
	delete(f, fieldCode)
	attrs, err := compactFields(f)
	if err != nil {
		return err
	}
	*p = Product{ID: id, Code: code, Attrs: attrs}
	return nil
}

// compactFields strips insignificant whitespace from every value, so a value
// compares equal whether it came from a caller or an indented file.
func compactFields(f Fields) (Fields, error) {
	out := make(Fields, len(f))
	for k, v := range f {
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = buf.Bytes()
	}
	return out, nil
}

// codeOf extracts and checks the code field of a payload.
func codeOf(f Fields) (string, error) {
	raw, ok := f[fieldCode]
	if !ok {
		return "", ErrCodeRequired
	}
	var code string
	if err := json.Unmarshal(raw, &code); err != nil {
		return "", ErrInvalidCode
	}
	if strings.TrimSpace(code) == "" {
		return "", ErrCodeRequired
	}
	return code, nil
}

// newProduct validates an add payload and builds the record to store.
func newProduct(id int64, f Fields) (Product, error) {
	if _, ok := f[fieldID]; ok {
		return Product{}, ErrIDImmutable
	}
	code, err := codeOf(f)
	if err != nil {
		return Product{}, err
	}

	attrs, err := compactFields(f)
	if err != nil {
		return Product{}, err
	}
	delete(attrs, fieldCode)
	return Product{ID: id, Code: code, Attrs: attrs}, nil
}

// checkPatch rejects an update payload that touches the id and returns it
// compacted, along with the new code when the payload carries one.
func checkPatch(patch Fields) (out Fields, code string, hasCode bool, err error) {
	if _, ok := patch[fieldID]; ok {
		return nil, "", false, ErrIDImmutable
	}
	out, err = compactFields(patch)
	if err != nil {
		return nil, "", false, err
	}
	if _, ok := out[fieldCode]; !ok {
		return out, "", false, nil
	}
	code, err = codeOf(out)
	if err != nil {
		return nil, "", false, err
	}
	return out, code, true, nil
}

// merge applies patch on top of p. Keys in patch override, everything else is
// left untouched.
func merge(p Product, patch Fields) Product {
	out := p.clone()
	if out.Attrs == nil {
		out.Attrs = make(Fields, len(patch))
	}
	for k, v := range patch {
		switch k {
		case fieldID:
		case fieldCode:
			var code string
			if json.Unmarshal(v, &code) == nil {
				out.Code = code
			}
		default:
			out.Attrs[k] = v
		}
	}
	return out
}
