package firestore

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeValue_WireFormat(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name  string
		input any
		want  string
	}{
		{name: "字符串", input: "hello", want: `{"stringValue":"hello"}`},
		{name: "整数按字符串编码", input: 42, want: `{"integerValue":"42"}`},
		{name: "int64", input: int64(-7), want: `{"integerValue":"-7"}`},
		{name: "浮点", input: 3.5, want: `{"doubleValue":3.5}`},
		{name: "布尔", input: true, want: `{"booleanValue":true}`},
		{name: "空值", input: nil, want: `{"nullValue":null}`},
		{
			name:  "时间戳",
			input: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			want:  `{"timestampValue":"2025-06-01T12:00:00Z"}`,
		},
		{
			name:  "数组",
			input: []any{"a", 1},
			want:  `{"arrayValue":{"values":[{"stringValue":"a"},{"integerValue":"1"}]}}`,
		},
		{
			name:  "嵌套对象",
			input: map[string]any{"city": "Lagos"},
			want:  `{"mapValue":{"fields":{"city":{"stringValue":"Lagos"}}}}`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			data, err := json.Marshal(EncodeValue(tc.input))
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(data))
		})
	}
}

func TestDecodeValue_RoundTrip(t *testing.T) {
	t.Parallel()
	ts := time.Date(2025, 6, 1, 12, 30, 45, 0, time.UTC)
	original := map[string]any{
		"name":    "order-1",
		"amount":  int64(2500),
		"fee":     12.5,
		"gift":    false,
		"note":    nil,
		"created": ts,
		"items":   []any{"rice", int64(2)},
		"address": map[string]any{
			"city":     "Lagos",
			"lat":      6.5244,
			"verified": true,
		},
	}

	encoded := EncodeFields(original)
	raw, err := json.Marshal(encoded)
	require.NoError(t, err)

	var decoded map[string]Value
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, original, DecodeFields(decoded))
}

func TestDecodeValue_IntegerStaysInteger(t *testing.T) {
	t.Parallel()
	got := DecodeValue(EncodeValue(7))
	assert.IsType(t, int64(0), got)
	assert.EqualValues(t, 7, got)
}

func TestDecodeValue_NullRoundTrip(t *testing.T) {
	t.Parallel()
	raw, err := json.Marshal(EncodeValue(nil))
	require.NoError(t, err)

	var v Value
	require.NoError(t, json.Unmarshal(raw, &v))
	assert.Nil(t, DecodeValue(v))
}
