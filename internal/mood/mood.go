// Package mood models the fixed set of mood identifiers and the themed
// chat room each one opens.
package mood

import "fmt"

type Mood int

const (
	Sleepless Mood = iota
	Work
	Mad
	Stressed
	Missing
	Overthinking
	Crying
)

// All lists every mood in menu order.
func All() []Mood {
	return []Mood{Sleepless, Work, Mad, Stressed, Missing, Overthinking, Crying}
}

func (m Mood) String() string {
	switch m {
	case Sleepless:
		return "sleepless"
	case Work:
		return "work"
	case Mad:
		return "mad"
	case Stressed:
		return "stressed"
	case Missing:
		return "missing"
	case Overthinking:
		return "overthinking"
	case Crying:
		return "crying"
	}
	return "unknown"
}

// Parse maps a stored identifier back to its mood.
func Parse(s string) (Mood, error) {
	for _, m := range All() {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown mood %q", s)
}

// Room describes the decorative chat surface themed for a mood.
type Room struct {
	Title    string
	Greeting string
}

// Room resolves the themed chat surface for a mood.
func (m Mood) Room() Room {
	switch m {
	case Sleepless:
		return Room{Title: "Sleepless Room", Greeting: "can't sleep either?"}
	case Work:
		return Room{Title: "Work Room", Greeting: "deep breath, one task at a time"}
	case Mad:
		return Room{Title: "Mad Room", Greeting: "let it out, I'm listening"}
	case Stressed:
		return Room{Title: "Stressed Room", Greeting: "you've handled worse"}
	case Missing:
		return Room{Title: "Missing Room", Greeting: "thinking of you too"}
	case Overthinking:
		return Room{Title: "Overthinking Room", Greeting: "one thought at a time"}
	case Crying:
		return Room{Title: "Crying Room", Greeting: "it's okay to not be okay"}
	}
	return Room{Title: "Chat", Greeting: "hi"}
}
