package gedcomx

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrInvalidPayload is returned when a payload is neither a record, a list of
// records nor a {"records": [...]} wrapper.
var ErrInvalidPayload = errors.New("invalid gedcomx payload")

// PayloadKind tells which of the accepted shapes a payload arrived in.
type PayloadKind int

const (
	PayloadSingle PayloadKind = iota + 1
	PayloadList
	PayloadWrapped
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadSingle:
		return "single"
	case PayloadList:
		return "list"
	case PayloadWrapped:
		return "wrapped"
	default:
		return "unknown"
	}
}

// Payload is a list of records together with the shape it was decoded from.
// The shape is resolved once, when decoding, so consumers only ever iterate
// Records.
type Payload[T any] struct {
	Kind    PayloadKind
	Records []T
}

// RawPayload holds extraction output.
type RawPayload = Payload[RawRecord]

// RecordPayload holds normalized records.
type RecordPayload = Payload[Record]

// ListPayload wraps records in the list shape, the only shape the normalizer
// emits.
func ListPayload[T any](records []T) Payload[T] {
	return Payload[T]{Kind: PayloadList, Records: orEmpty(records)}
}

// DecodePayload detects the shape of data and decodes its records.
func DecodePayload[T any](data []byte) (Payload[T], error) {
	if !gjson.ValidBytes(data) {
		return Payload[T]{}, fmt.Errorf("%w: malformed JSON", ErrInvalidPayload)
	}

	doc := gjson.ParseBytes(data)
	switch {
	case doc.IsArray():
		var records []T
		if err := json.Unmarshal(data, &records); err != nil {
			return Payload[T]{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return Payload[T]{Kind: PayloadList, Records: orEmpty(records)}, nil

	case doc.IsObject() && isNonEmptyArray(doc.Get("records")):
		var wrapper struct {
			Records []T `json:"records"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return Payload[T]{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return Payload[T]{Kind: PayloadWrapped, Records: wrapper.Records}, nil

	case doc.IsObject():
		var record T
		if err := json.Unmarshal(data, &record); err != nil {
			return Payload[T]{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return Payload[T]{Kind: PayloadSingle, Records: []T{record}}, nil

	default:
		return Payload[T]{}, fmt.Errorf("%w: expected an object or an array, got %s", ErrInvalidPayload, doc.Type)
	}
}

// DecodeRawPayload decodes extraction output in any accepted shape.
func DecodeRawPayload(data []byte) (RawPayload, error) {
	return DecodePayload[RawRecord](data)
}

// MarshalJSON writes the payload back in its original shape.
func (p Payload[T]) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PayloadSingle:
		if len(p.Records) == 0 {
			return []byte("null"), nil
		}
		return json.Marshal(p.Records[0])
	case PayloadWrapped:
		return json.Marshal(struct {
			Records []T `json:"records"`
		}{Records: orEmpty(p.Records)})
	default:
		return json.Marshal(orEmpty(p.Records))
	}
}

// UnmarshalJSON detects the shape of data like DecodePayload. null decodes to
// an empty single payload.
func (p *Payload[T]) UnmarshalJSON(data []byte) error {
	if gjson.ParseBytes(data).Type == gjson.Null {
		*p = Payload[T]{Kind: PayloadSingle}
		return nil
	}
	decoded, err := DecodePayload[T](data)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}

func isNonEmptyArray(value gjson.Result) bool {
	return value.IsArray() && len(value.Array()) > 0
}
