package contract

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type variantKind int

const (
	unitVariant variantKind = iota
	taggedVariant
	untaggedVariant
)

// Variant binds one alternative of a union to the field holding it.
// Generated union types list their variants in declaration order and pass
// them to EncodeUnion and DecodeUnion.
type Variant struct {
	kind   variantKind
	tag    string
	isSet  func() bool
	value  func() any
	decode func(data []byte) error
}

// Unit is a variant without payload, encoded as the bare string tag.
func Unit(tag string, field *bool) Variant {
	return Variant{
		kind:  unitVariant,
		tag:   tag,
		isSet: func() bool { return *field },
		value: func() any { return tag },
		decode: func([]byte) error {
			*field = true
			return nil
		},
	}
}

// Tagged is a variant encoded as {"tag": payload}.
func Tagged[T any](tag string, field **T) Variant {
	return Variant{
		kind:   taggedVariant,
		tag:    tag,
		isSet:  func() bool { return *field != nil },
		value:  func() any { return map[string]any{tag: *field} },
		decode: decodeInto(field),
	}
}

// Untagged is a variant encoded as its payload alone. Untagged variants are
// tried in order when decoding; the first one that decodes strictly wins.
func Untagged[T any](field **T) Variant {
	return Variant{
		kind:   untaggedVariant,
		isSet:  func() bool { return *field != nil },
		value:  func() any { return *field },
		decode: decodeInto(field),
	}
}

func decodeInto[T any](field **T) func([]byte) error {
	return func(data []byte) error {
		v := new(T)
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			return err
		}
		if dec.More() {
			return fmt.Errorf("trailing data after value")
		}
		*field = v
		return nil
	}
}

// EncodeUnion encodes the single variant that is set. Setting none or more
// than one is an error.
func EncodeUnion(name string, variants ...Variant) ([]byte, error) {
	var chosen *Variant
	for i := range variants {
		if !variants[i].isSet() {
			continue
		}
		if chosen != nil {
			return nil, fmt.Errorf("%s: more than one variant set", name)
		}
		chosen = &variants[i]
	}
	if chosen == nil {
		return nil, fmt.Errorf("%s: no variant set", name)
	}
	return json.Marshal(chosen.value())
}

// DecodeUnion sets the variant data encodes. A JSON string is matched
// against unit tags and a single-member object against tagged variants;
// anything else, or an unmatched tag, is tried against the untagged
// variants in order.
func DecodeUnion(data []byte, name string, variants ...Variant) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) > 0 && data[0] == '"':
		var tag string
		if err := json.Unmarshal(data, &tag); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		for _, v := range variants {
			if v.kind == unitVariant && v.tag == tag {
				return v.decode(nil)
			}
		}
	case len(data) > 0 && data[0] == '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if len(obj) == 1 {
			for _, v := range variants {
				payload, ok := obj[v.tag]
				if v.kind != taggedVariant || !ok {
					continue
				}
				if err := v.decode(payload); err != nil {
					return fmt.Errorf("%s: variant %q: %w", name, v.tag, err)
				}
				return nil
			}
		}
	}
	for _, v := range variants {
		if v.kind != untaggedVariant {
			continue
		}
		if err := v.decode(data); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%s: no variant matches %s", name, abbreviate(data))
}

func abbreviate(data []byte) string {
	const limit = 64
	if len(data) <= limit {
		return string(data)
	}
	return string(data[:limit]) + "..."
}
