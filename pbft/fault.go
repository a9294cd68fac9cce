package pbft

import (
	"fmt"
	"strings"
)

// Fault is the simulated behaviour of a node.
type Fault int32

const (
	FaultNone Fault = iota
	// FaultByzantine rejects in prepare and commit.
	FaultByzantine
	// FaultWithhold approves prepare and refuses to commit.
	FaultWithhold
	// FaultEquivocate approves everything and signs its prepare vote with a rogue key.
	FaultEquivocate
	// FaultSilent never reports a vote.
	FaultSilent
	// FaultCrash panics while voting.
	FaultCrash
	// FaultForge is primary only: it signs the digest with a rogue identity.
	FaultForge
	// FaultCorrupt is primary only: it signs a different digest.
	FaultCorrupt
)

var faultNames = map[Fault]string{
	FaultNone:       "honest",
	FaultByzantine:  "byzantine",
	FaultWithhold:   "withhold",
	FaultEquivocate: "equivocate",
	FaultSilent:     "silent",
	FaultCrash:      "crash",
	FaultForge:      "forge",
	FaultCorrupt:    "corrupt",
}

func (f Fault) String() string {
	if name, ok := faultNames[f]; ok {
		return name
	}
	return fmt.Sprintf("fault(%d)", int32(f))
}

// primaryOnly reports whether the fault only affects the pre-prepare signature.
func (f Fault) primaryOnly() bool {
	return f == FaultForge || f == FaultCorrupt
}

// ParseFault parses a fault kind from the configuration.
func ParseFault(s string) (Fault, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "none" {
		return FaultNone, nil
	}
	for f, name := range faultNames {
		if name == s {
			return f, nil
		}
	}
	return FaultNone, fmt.Errorf("unknown fault kind %q", s)
}
