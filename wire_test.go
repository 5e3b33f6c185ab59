package parbreak

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	id := NewJobID()

	cases := []struct {
		name    string
		encode  func() ([]byte, error)
		variant Variant
	}{
		{"assignment", func() ([]byte, error) { return EncodeAssignment(id, "echo hi") }, VariantAssignment},
		{"success", func() ([]byte, error) { return EncodeSuccess(id, "out", "") }, VariantSuccess},
		{"failed", func() ([]byte, error) { return EncodeFailed(id, "", "boom") }, VariantFailed},
	}
	for _, c := range cases {
		data, err := c.encode()
		if err != nil {
			t.Fatalf("%s: encode: %v", c.name, err)
		}
		msg, err := Decode(data)
		if err != nil {
			t.Fatalf("%s: decode: %v", c.name, err)
		}
		if msg.Variant != c.variant {
			t.Errorf("%s: variant = %v, want %v", c.name, msg.Variant, c.variant)
		}
	}
}

func TestDecodeUnrecognizedIsVariantNone(t *testing.T) {
	msg, err := Decode([]byte(`{"ping": {}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Variant != VariantNone {
		t.Fatalf("variant = %v, want VariantNone", msg.Variant)
	}
}

func TestDecodeMalformedJSONIsError(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	if err == nil {
		t.Fatalf("expected an error for malformed JSON")
	}
}

func TestAssignmentPayloadFields(t *testing.T) {
	id := NewJobID()
	data, err := EncodeAssignment(id, "echo hi")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	msg, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Assignment.ID != string(id) {
		t.Errorf("id = %q, want %q", msg.Assignment.ID, id)
	}
	if msg.Assignment.Command != "echo hi" {
		t.Errorf("command = %q, want %q", msg.Assignment.Command, "echo hi")
	}
}
