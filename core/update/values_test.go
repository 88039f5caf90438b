package update

import (
	"bytes"
	"testing"
)

func writeValue(t *testing.T, v Value) string {
	t.Helper()
	var buf bytes.Buffer
	vw := NewValueWriter(NewByteSink(&buf))
	if err := vw.write(v); err != nil {
		t.Fatalf("write(%+v) error = %v", v, err)
	}
	return buf.String()
}

func TestValueWriterScalars(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want string
	}{
		{"boolean true", Value{Kind: KindBoolean, Bool: true}, "true"},
		{"boolean false", Value{Kind: KindBoolean, Bool: false}, "false"},
		{"null", Value{Kind: KindNull}, "null"},
		{"integer", intValue(42), "42"},
		{"negative integer", intValue(-7), "-7"},
		{"zero", intValue(0), "0"},
		{"real with fraction", Value{Kind: KindReal, Real: 3.14}, "3.14"},
		{"real whole", Value{Kind: KindReal, Real: 1}, "1.0"},
		{"real negative", Value{Kind: KindReal, Real: -0.5}, "-0.5"},
		{"reference", refValue(Reference{Num: 5, Gen: 0}), "5 0 R"},
		{"name", nameValue("Type"), "/Type"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := writeValue(t, c.v); got != c.want {
				t.Errorf("got %q, want %q", got, c.want)
			}
		})
	}
}

func TestValueWriterRealNoExponent(t *testing.T) {
	got := writeValue(t, Value{Kind: KindReal, Real: 0.0000001})
	if bytes.ContainsAny([]byte(got), "eE") {
		t.Errorf("formatted real %q uses exponent notation", got)
	}
}

func TestValueWriterLiteralString(t *testing.T) {
	got := writeValue(t, Value{Kind: KindLiteralString, Bytes: []byte("a(b)c\\d")})
	want := `(a\(b\)c\\d)`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestValueWriterHexString(t *testing.T) {
	got := writeValue(t, Value{Kind: KindHexString, Bytes: []byte{0xDE, 0xAD, 0xBE, 0xEF}})
	want := "<DEADBEEF>"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestValueWriterArray(t *testing.T) {
	got := writeValue(t, arrayValue([]Value{intValue(0), intValue(0), intValue(100), intValue(100)}))
	want := "[0 0 100 100]"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestValueWriterAffineTransform(t *testing.T) {
	v := Value{Kind: KindAffineTransform, Items: []Value{
		intValue(1), intValue(0), intValue(0),
		intValue(1), intValue(0), intValue(0),
	}}
	got := writeValue(t, v)
	want := "[1 0 0 1 0 0]"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestValueWriterAffineTransformWrongArity(t *testing.T) {
	var buf bytes.Buffer
	vw := NewValueWriter(NewByteSink(&buf))
	v := Value{Kind: KindAffineTransform, Items: []Value{intValue(1)}}
	if err := vw.write(v); err == nil {
		t.Fatal("expected an error for a 1-element AffineTransform")
	}
}

func TestValueWriterDictionary(t *testing.T) {
	d := NewDict()
	d.Set("Type", nameValue("Annot"))
	d.Set("Rect", arrayValue([]Value{intValue(0), intValue(0), intValue(100), intValue(100)}))

	got := writeValue(t, Value{Kind: KindDictionary, Dict: d})
	want := "<</Type /Annot /Rect [0 0 100 100] >>"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestValueWriterDictionaryStableOrder(t *testing.T) {
	d := NewDict()
	d.Set("Z", intValue(1))
	d.Set("A", intValue(2))
	d.Set("M", intValue(3))

	first := writeValue(t, Value{Kind: KindDictionary, Dict: d})
	second := writeValue(t, Value{Kind: KindDictionary, Dict: d})
	if first != second {
		t.Fatalf("dictionary emission not stable across runs: %q vs %q", first, second)
	}
	if keys := d.Keys(); keys[0] != "Z" || keys[1] != "A" || keys[2] != "M" {
		t.Fatalf("Keys() = %v, want insertion order [Z A M]", keys)
	}
}

func TestValueWriterUnsupportedKind(t *testing.T) {
	var buf bytes.Buffer
	vw := NewValueWriter(NewByteSink(&buf))
	err := vw.write(Value{Kind: Kind(999)})
	if err == nil {
		t.Fatal("expected UnsupportedValueKind error")
	}
	ue, ok := err.(*UpdateError)
	if !ok || ue.Kind != ErrUnsupportedValue {
		t.Fatalf("error = %v, want ErrUnsupportedValue", err)
	}
}

func TestValueWriterTopLevelDictionaryObject(t *testing.T) {
	var buf bytes.Buffer
	vw := NewValueWriter(NewByteSink(&buf))

	d := NewDict()
	d.Set("Type", nameValue("Annot"))
	d.Set("Rect", arrayValue([]Value{intValue(0), intValue(0), intValue(100), intValue(100)}))

	ref := Reference{Num: 5, Gen: 0}
	if err := vw.WriteTopLevelObject(ref, Value{Kind: KindDictionary, Dict: d}); err != nil {
		t.Fatalf("WriteTopLevelObject() error = %v", err)
	}

	got := buf.String()
	want := "5 0 obj\r\n<</Type /Annot /Rect [0 0 100 100] >>\r\nendobj\r\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestValueWriterTopLevelStreamObject(t *testing.T) {
	var buf bytes.Buffer
	vw := NewValueWriter(NewByteSink(&buf))

	d := NewDict()
	d.Set("Length", intValue(5))

	ref := Reference{Num: 12, Gen: 0}
	v := Value{Kind: KindStream, Dict: d, Stream: []byte("hello")}
	if err := vw.WriteTopLevelObject(ref, v); err != nil {
		t.Fatalf("WriteTopLevelObject() error = %v", err)
	}

	got := buf.String()
	want := "12 0 obj\r\n<</Length 5 >>\r\nstream\r\nhello\r\nendstream\r\nendobj\r\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
