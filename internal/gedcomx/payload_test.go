package gedcomx

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRawPayload(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind PayloadKind
		wantLen  int
	}{
		{"single object", `{"persons": [{"id": "p1"}]}`, PayloadSingle, 1},
		{"list", `[{"persons": []}, {"persons": [{"id": "p1"}]}]`, PayloadList, 2},
		{"empty list", `[]`, PayloadList, 0},
		{"wrapped", `{"records": [{"persons": [{"id": "p1"}]}]}`, PayloadWrapped, 1},
		{"empty wrapper is a single record", `{"records": []}`, PayloadSingle, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := DecodeRawPayload([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, payload.Kind)
			assert.Len(t, payload.Records, tt.wantLen)
		})
	}
}

func TestDecodeRawPayload_Invalid(t *testing.T) {
	for _, input := range []string{`{"persons": [`, `"text"`, `42`, ``} {
		_, err := DecodeRawPayload([]byte(input))
		assert.ErrorIs(t, err, ErrInvalidPayload, "input %q", input)
	}
}

func TestPayload_MarshalJSON(t *testing.T) {
	records := Normalize([]RawRecord{{Persons: []RawPerson{{ID: "p1"}}}})

	list, err := json.Marshal(ListPayload(records))
	require.NoError(t, err)
	assert.True(t, json.Valid(list))
	assert.Equal(t, byte('['), list[0])

	empty, err := json.Marshal(ListPayload[Record](nil))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(empty))

	wrapped, err := json.Marshal(RecordPayload{Kind: PayloadWrapped, Records: records})
	require.NoError(t, err)
	assert.Contains(t, string(wrapped), `"records":[`)
}

func TestDecodePayload_NormalizedRoundTrip(t *testing.T) {
	records := NewNormalizer(WithIDGenerator(sequentialIDs())).Normalize(scenario())
	data, err := json.Marshal(ListPayload(records))
	require.NoError(t, err)

	payload, err := DecodePayload[Record](data)
	require.NoError(t, err)
	assert.Equal(t, PayloadList, payload.Kind)
	assert.Equal(t, records, payload.Records)
}

func TestPayload_UnmarshalJSON(t *testing.T) {
	records := Normalize([]RawRecord{{Persons: []RawPerson{{ID: "p1"}}}})

	for _, kind := range []PayloadKind{PayloadSingle, PayloadList, PayloadWrapped} {
		t.Run(kind.String(), func(t *testing.T) {
			data, err := json.Marshal(RecordPayload{Kind: kind, Records: records})
			require.NoError(t, err)

			var decoded struct {
				Records RecordPayload `json:"records"`
			}
			require.NoError(t, json.Unmarshal([]byte(`{"records": `+string(data)+`}`), &decoded))
			assert.Equal(t, kind, decoded.Records.Kind)
			assert.Equal(t, records, decoded.Records.Records)
		})
	}

	var empty RecordPayload
	require.NoError(t, json.Unmarshal([]byte(`null`), &empty))
	assert.Empty(t, empty.Records)

	var invalid RecordPayload
	assert.ErrorIs(t, json.Unmarshal([]byte(`"text"`), &invalid), ErrInvalidPayload)
}
