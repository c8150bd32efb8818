package firestore

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Value Firestore REST 协议里的类型化取值。
// 每个 Value 只会设置其中一个字段。
type Value struct {
	StringValue    *string         `json:"stringValue,omitempty"`
	IntegerValue   *string         `json:"integerValue,omitempty"`
	DoubleValue    *float64        `json:"doubleValue,omitempty"`
	BooleanValue   *bool           `json:"booleanValue,omitempty"`
	NullValue      json.RawMessage `json:"nullValue,omitempty"`
	TimestampValue *string         `json:"timestampValue,omitempty"`
	ArrayValue     *ArrayValue     `json:"arrayValue,omitempty"`
	MapValue       *MapValue       `json:"mapValue,omitempty"`
}

type ArrayValue struct {
	Values []Value `json:"values,omitempty"`
}

type MapValue struct {
	Fields map[string]Value `json:"fields,omitempty"`
}

// EncodeFields 把一个普通 map 编码成 Firestore fields
func EncodeFields(data map[string]any) map[string]Value {
	fields := make(map[string]Value, len(data))
	for k, v := range data {
		fields[k] = EncodeValue(v)
	}
	return fields
}

// EncodeValue 按 Go 类型映射到协议类型。
// 整数统一走 integerValue（十进制字符串），浮点走 doubleValue，
// time.Time 编码成 RFC3339 的 timestampValue，未知类型退化成字符串。
func EncodeValue(v any) Value {
	switch val := v.(type) {
	case nil:
		return Value{NullValue: json.RawMessage("null")}
	case string:
		return Value{StringValue: &val}
	case bool:
		return Value{BooleanValue: &val}
	case int:
		return encodeInt(int64(val))
	case int8:
		return encodeInt(int64(val))
	case int16:
		return encodeInt(int64(val))
	case int32:
		return encodeInt(int64(val))
	case int64:
		return encodeInt(val)
	case uint:
		return encodeInt(int64(val))
	case uint32:
		return encodeInt(int64(val))
	case uint64:
		return encodeInt(int64(val))
	case float32:
		f := float64(val)
		return Value{DoubleValue: &f}
	case float64:
		return Value{DoubleValue: &val}
	case time.Time:
		ts := val.UTC().Format(time.RFC3339Nano)
		return Value{TimestampValue: &ts}
	case []any:
		values := make([]Value, 0, len(val))
		for _, item := range val {
			values = append(values, EncodeValue(item))
		}
		return Value{ArrayValue: &ArrayValue{Values: values}}
	case []string:
		values := make([]Value, 0, len(val))
		for _, item := range val {
			values = append(values, EncodeValue(item))
		}
		return Value{ArrayValue: &ArrayValue{Values: values}}
	case map[string]any:
		return Value{MapValue: &MapValue{Fields: EncodeFields(val)}}
	case map[string]string:
		fields := make(map[string]Value, len(val))
		for k, item := range val {
			fields[k] = EncodeValue(item)
		}
		return Value{MapValue: &MapValue{Fields: fields}}
	default:
		s := fmt.Sprintf("%v", val)
		return Value{StringValue: &s}
	}
}

func encodeInt(v int64) Value {
	s := strconv.FormatInt(v, 10)
	return Value{IntegerValue: &s}
}

// DecodeFields EncodeFields 的逆操作
func DecodeFields(fields map[string]Value) map[string]any {
	data := make(map[string]any, len(fields))
	for k, v := range fields {
		data[k] = DecodeValue(v)
	}
	return data
}

// DecodeValue 解回 Go 类型：integerValue 解成 int64，timestampValue 解成 time.Time
func DecodeValue(v Value) any {
	switch {
	case v.StringValue != nil:
		return *v.StringValue
	case v.IntegerValue != nil:
		n, err := strconv.ParseInt(*v.IntegerValue, 10, 64)
		if err != nil {
			return *v.IntegerValue
		}
		return n
	case v.DoubleValue != nil:
		return *v.DoubleValue
	case v.BooleanValue != nil:
		return *v.BooleanValue
	case v.TimestampValue != nil:
		ts, err := time.Parse(time.RFC3339Nano, *v.TimestampValue)
		if err != nil {
			return *v.TimestampValue
		}
		return ts
	case v.ArrayValue != nil:
		items := make([]any, 0, len(v.ArrayValue.Values))
		for _, item := range v.ArrayValue.Values {
			items = append(items, DecodeValue(item))
		}
		return items
	case v.MapValue != nil:
		return DecodeFields(v.MapValue.Fields)
	default:
		return nil
	}
}
