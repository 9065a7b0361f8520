// If you are AI: This file tests AMF0 encoding, especially command encoding.
package amf0

import (
	"bytes"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
)

// TestEncodeCommand_NoStrictArray verifies command bodies are a plain value sequence.
// The body must start with the string marker of the command name.
func TestEncodeCommand_NoStrictArray(t *testing.T) {
	cmd := &Command{
		Name:          "_result",
		TransactionID: 1,
		Object: Object{
			{Key: "fmsVer", Value: String("FMS/3,0,1,123")},
			{Key: "capabilities", Value: Number(31)},
		},
		Args: []Value{Status("status", "NetConnection.Connect.Success", "Connection succeeded.")},
	}

	body, err := cmd.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if body[0] == TypeStrictArray {
		t.Fatalf("command must not be wrapped in a strict array")
	}
	if body[0] != TypeString {
		t.Fatalf("first byte should be 0x02, got 0x%02x", body[0])
	}
	if got := string(body[3:10]); got != "_result" {
		t.Errorf("expected _result, got %q", got)
	}
}

func TestRoundTripVariants(t *testing.T) {
	values := []Value{
		Number(0),
		Number(-1.5),
		Number(math.MaxFloat64),
		Boolean(true),
		Boolean(false),
		String(""),
		String("live"),
		String(strings.Repeat("x", 70000)),
		Null{},
		Undefined{},
		Object{},
		Object{{Key: "b", Value: Number(2)}, {Key: "a", Value: String("1")}},
		ECMAArray{{Key: "duration", Value: Number(0)}, {Key: "width", Value: Number(1280)}},
		StrictArray{Number(1), String("two"), Null{}, Object{{Key: "k", Value: Boolean(true)}}},
		Object{{Key: "nested", Value: Object{{Key: "deep", Value: StrictArray{}}}}},
	}
	for _, v := range values {
		var buf bytes.Buffer
		if err := Encode(&buf, v); err != nil {
			t.Fatalf("Encode(%T): %v", v, err)
		}
		got, err := NewDecoder(buf.Bytes()).Decode()
		if err != nil {
			t.Fatalf("Decode(%T): %v", v, err)
		}
		if !reflect.DeepEqual(got, normalize(v)) {
			t.Errorf("round trip mismatch for %T: got %#v", v, got)
		}
	}
}

// normalize maps empty containers to the shape the decoder produces.
func normalize(v Value) Value {
	switch t := v.(type) {
	case Object:
		if len(t) == 0 {
			return Object(nil)
		}
		out := make(Object, len(t))
		for i, p := range t {
			out[i] = Property{Key: p.Key, Value: normalize(p.Value)}
		}
		return out
	case StrictArray:
		out := make(StrictArray, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	}
	return v
}

func TestDecodeCommand(t *testing.T) {
	body, err := EncodeValues(
		String("publish"),
		Number(5),
		Null{},
		String("stream1?token=abc"),
		String("live"),
	)
	if err != nil {
		t.Fatal(err)
	}
	cmd, err := DecodeCommand(body)
	if err != nil {
		t.Fatalf("DecodeCommand: %v", err)
	}
	if cmd.Name != "publish" || cmd.TransactionID != 5 {
		t.Errorf("got name=%q txn=%v", cmd.Name, cmd.TransactionID)
	}
	if _, ok := cmd.Object.(Null); !ok {
		t.Errorf("expected null command object, got %T", cmd.Object)
	}
	if name, ok := cmd.StringArg(0); !ok || name != "stream1?token=abc" {
		t.Errorf("arg 0 = %q", name)
	}
	if _, ok := cmd.StringArg(5); ok {
		t.Error("out of range argument should not be found")
	}
}

func TestDecodeCommandConnectObject(t *testing.T) {
	cmd := &Command{Name: "connect", TransactionID: 1, Object: Object{
		{Key: "app", Value: String("live")},
		{Key: "tcUrl", Value: String("rtmp://localhost/live")},
		{Key: "objectEncoding", Value: Number(0)},
	}}
	body, err := cmd.Encode()
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeCommand(body)
	if err != nil {
		t.Fatal(err)
	}
	if app, ok := got.Properties().String("app"); !ok || app != "live" {
		t.Errorf("app = %q, %v", app, ok)
	}
	if _, ok := got.Properties().Number("objectEncoding"); !ok {
		t.Error("objectEncoding should decode as a number")
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		body []byte
		want error
	}{
		{"empty", nil, nil},
		{"truncated number", []byte{TypeNumber, 0, 0}, nil},
		{"unknown marker", []byte{0x0D}, ErrUnexpectedType},
		{"name not string", []byte{TypeNull}, ErrUnexpectedType},
		{"bad object end", []byte{TypeString, 0, 1, 'x', TypeNumber, 0, 0, 0, 0, 0, 0, 0, 0, TypeObject, 0, 0, 0x07}, ErrInvalidData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCommand(tt.body)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDecodeAllDataMessage(t *testing.T) {
	body, err := EncodeValues(
		String("@setDataFrame"),
		String("onMetaData"),
		ECMAArray{{Key: "videocodecid", Value: Number(7)}},
	)
	if err != nil {
		t.Fatal(err)
	}
	values, err := DecodeAll(body)
	if err != nil {
		t.Fatal(err)
	}
	if len(values) != 3 {
		t.Fatalf("expected 3 values, got %d", len(values))
	}
	meta, ok := values[2].(ECMAArray)
	if !ok {
		t.Fatalf("expected ECMA array, got %T", values[2])
	}
	if n, _ := AsNumber(meta.Get("videocodecid")); n != 7 {
		t.Errorf("videocodecid = %v", n)
	}
	native, ok := ToNative(meta).(map[string]any)
	if !ok || native["videocodecid"] != float64(7) {
		t.Errorf("ToNative = %#v", native)
	}
}
