package parbreak

import "testing"

func TestNewJobIDIsBracedAndValid(t *testing.T) {
	id := NewJobID()
	s := id.String()
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		t.Fatalf("expected braced uuid, got %q", s)
	}
	if !id.Valid() {
		t.Fatalf("fresh id should be valid")
	}
}

func TestJobIDZeroValueInvalid(t *testing.T) {
	var id JobID
	if id.Valid() {
		t.Fatalf("zero value should be invalid")
	}
}

func TestParseJobID(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"well formed", string(NewJobID()), false},
		{"missing braces", "6ba7b810-9dad-11d1-80b4-00c04fd430c8", true},
		{"not a uuid", "{not-a-uuid}", true},
		{"empty", "", true},
	}
	for _, c := range cases {
		_, err := parseJobID(c.in)
		if (err != nil) != c.wantErr {
			t.Errorf("%s: got err=%v, wantErr=%v", c.name, err, c.wantErr)
		}
	}
}
