package freqmap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"google.golang.org/protobuf/encoding/protowire"
	"gopkg.in/yaml.v3"
)

// Binary shard layout, one length-delimited entry per key in iteration order:
//
//	message Shard { repeated Entry entries = 1; }
//	message Entry { string key = 1; int64 count = 2; }
const (
	fieldEntries protowire.Number = 1
	fieldKey     protowire.Number = 1
	fieldCount   protowire.Number = 2
)

var errMalformed = errors.New("malformed shard")

// MarshalBinary encodes the map in the binary shard format.
func (fm *FreqMap) MarshalBinary() ([]byte, error) {
	var out []byte
	var entry []byte
	for k, v := range fm.Entries() {
		entry = entry[:0]
		entry = protowire.AppendTag(entry, fieldKey, protowire.BytesType)
		entry = protowire.AppendString(entry, k)
		entry = protowire.AppendTag(entry, fieldCount, protowire.VarintType)
		entry = protowire.AppendVarint(entry, uint64(v))

		out = protowire.AppendTag(out, fieldEntries, protowire.BytesType)
		out = protowire.AppendBytes(out, entry)
	}
	return out, nil
}

// UnmarshalBinary replaces the map contents with a decoded shard.
// Unknown fields are skipped. Repeated keys are summed, saturating at
// math.MaxInt64.
func (fm *FreqMap) UnmarshalBinary(data []byte) error {
	decoded := New(0)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("%w: %v", errMalformed, protowire.ParseError(n))
		}
		data = data[n:]

		if num != fieldEntries || typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("%w: %v", errMalformed, protowire.ParseError(n))
			}
			data = data[n:]
			continue
		}

		raw, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return fmt.Errorf("%w: %v", errMalformed, protowire.ParseError(n))
		}
		data = data[n:]

		key, count, err := decodeEntry(raw)
		if err != nil {
			return err
		}
		decoded.Add(key, count)
	}

	*fm = *decoded
	return nil
}

func decodeEntry(raw []byte) (string, int64, error) {
	var key string
	var count int64
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		if n < 0 {
			return "", 0, fmt.Errorf("%w: %v", errMalformed, protowire.ParseError(n))
		}
		raw = raw[n:]

		switch {
		case num == fieldKey && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(raw)
			if n < 0 {
				return "", 0, fmt.Errorf("%w: %v", errMalformed, protowire.ParseError(n))
			}
			key = v
			raw = raw[n:]
		case num == fieldCount && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(raw)
			if n < 0 {
				return "", 0, fmt.Errorf("%w: %v", errMalformed, protowire.ParseError(n))
			}
			count = int64(v)
			raw = raw[n:]
		default:
			n = protowire.ConsumeFieldValue(num, typ, raw)
			if n < 0 {
				return "", 0, fmt.Errorf("%w: %v", errMalformed, protowire.ParseError(n))
			}
			raw = raw[n:]
		}
	}
	if count < 0 {
		return "", 0, fmt.Errorf("%w for key %q", ErrNegativeCount, key)
	}
	return key, count, nil
}

// MarshalJSON encodes the map as a JSON object in iteration order.
func (fm *FreqMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	i := 0
	for k, v := range fm.Entries() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatInt(v, 10))
		i++
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the document's key order.
// Repeated keys are summed, as in UnmarshalBinary. Anything after the closing
// brace is an error.
func (fm *FreqMap) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*fm = FreqMap{}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("freqmap: expected JSON object, got %v", tok)
	}

	decoded := New(0)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("freqmap: expected string key, got %v", tok)
		}
		var count int64
		if err := dec.Decode(&count); err != nil {
			return fmt.Errorf("freqmap: invalid count for key %q: %w", key, err)
		}
		if count < 0 {
			return fmt.Errorf("%w for key %q", ErrNegativeCount, key)
		}
		decoded.Add(key, count)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("freqmap: unexpected data after JSON object")
	}

	*fm = *decoded
	return nil
}

// MarshalYAML encodes the map as a YAML mapping in iteration order.
func (fm *FreqMap) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for k, v := range fm.Entries() {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(v, 10)},
		)
	}
	return node, nil
}

// UnmarshalYAML decodes a YAML mapping, keeping the document's key order.
// Repeated keys are summed.
func (fm *FreqMap) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("freqmap: expected YAML mapping at line %d", value.Line)
	}

	decoded := New(len(value.Content) / 2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key := value.Content[i].Value
		var count int64
		if err := value.Content[i+1].Decode(&count); err != nil {
			return fmt.Errorf("freqmap: invalid count for key %q: %w", key, err)
		}
		if count < 0 {
			return fmt.Errorf("%w for key %q", ErrNegativeCount, key)
		}
		decoded.Add(key, count)
	}

	*fm = *decoded
	return nil
}
