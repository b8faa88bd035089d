package encoding

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// The Content-Encoding wire form is polymorphic: a bare integer for a single
// well-known entry, a bare string for a single parameterized entry, and an
// array of integers/strings otherwise. chunk(n) entries are session-local
// bookkeeping and never serialized.

// MarshalCBOR encodes the list in its smallest wire form.
func (l List) MarshalCBOR() ([]byte, error) {
	wire := make(List, 0, len(l))
	for _, e := range l {
		if e.Kind == KindChunk {
			continue
		}
		wire = append(wire, e)
	}

	if len(wire) == 1 {
		return marshalEntry(wire[0])
	}

	items := make([]cbor.RawMessage, len(wire))
	for i, e := range wire {
		raw, err := marshalEntry(e)
		if err != nil {
			return nil, err
		}
		items[i] = raw
	}
	return cbor.Marshal(items)
}

// UnmarshalCBOR accepts the integer, string, and array wire forms.
func (l *List) UnmarshalCBOR(data []byte) error {
	var v any
	if err := cbor.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case uint64:
		*l = List{FromCode(int8(val))}
	case int64:
		*l = List{FromCode(int8(val))}
	case string:
		*l = List{ParseToken(val)}
	case []any:
		out := make(List, 0, len(val))
		for _, item := range val {
			switch entry := item.(type) {
			case uint64:
				out = append(out, FromCode(int8(entry)))
			case int64:
				out = append(out, FromCode(int8(entry)))
			case string:
				out = append(out, ParseToken(entry))
			default:
				return fmt.Errorf("unsupported encoding list entry type %T", item)
			}
		}
		*l = out
	default:
		return fmt.Errorf("unsupported encoding list wire type %T", v)
	}
	return nil
}

func marshalEntry(e Encoding) ([]byte, error) {
	if code, ok := e.ShortCode(); ok {
		return cbor.Marshal(code)
	}
	return cbor.Marshal(e.Token())
}
