package mood

import "testing"

func TestParseRoundTrip(t *testing.T) {
	for _, m := range All() {
		got, err := Parse(m.String())
		if err != nil {
			t.Fatalf("parse %q: %v", m.String(), err)
		}
		if got != m {
			t.Fatalf("round trip lost mood: %v != %v", got, m)
		}
	}
}

func TestParseUnknown(t *testing.T) {
	if _, err := Parse("euphoric"); err == nil {
		t.Fatalf("expected error for unknown mood")
	}
}

func TestEveryMoodHasARoom(t *testing.T) {
	for _, m := range All() {
		room := m.Room()
		if room.Title == "" || room.Greeting == "" {
			t.Fatalf("mood %v has an incomplete room: %+v", m, room)
		}
	}
}
