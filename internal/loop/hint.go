package loop

import (
	"fmt"
	"strings"
)

// TemporalState classifies a hint relative to the player's knowledge.
type TemporalState uint8

const (
	Past TemporalState = iota
	Present
	Future
)

var temporalNames = [...]string{"Past", "Present", "Future"}

func (s TemporalState) String() string {
	if int(s) >= len(temporalNames) {
		return fmt.Sprintf("TemporalState(%d)", uint8(s))
	}
	return temporalNames[s]
}

// Visible reports whether the player can see hints in this state.
func (s TemporalState) Visible() bool { return s == Past || s == Present }

func ParseTemporalState(s string) (TemporalState, error) {
	for i, name := range temporalNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return TemporalState(i), nil
		}
	}
	return 0, fmt.Errorf("unknown temporal state %q", s)
}

func (s TemporalState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *TemporalState) UnmarshalText(b []byte) error {
	v, err := ParseTemporalState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// HintRecord is one narrative hint.
type HintRecord struct {
	ID           string        `json:"id"`
	Text         string        `json:"text"`
	Persistent   bool          `json:"persistent"`
	State        TemporalState `json:"state"`
	LoopToUnlock int           `json:"loopToUnlock"`
}
