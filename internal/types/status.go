package types

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// TrainStatus is the operational state of a train.
type TrainStatus int

const (
	StatusUnknown TrainStatus = iota
	Operational
	Delayed
	Broken
)

var trainStatusNames = map[TrainStatus]string{
	Operational: "OPERATIONAL",
	Delayed:     "DELAYED",
	Broken:      "BROKEN",
}

func (s TrainStatus) String() string {
	if name, ok := trainStatusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Valid reports whether s is one of the defined states.
func (s TrainStatus) Valid() bool {
	_, ok := trainStatusNames[s]
	return ok
}

// ParseTrainStatus parses a status name, case-insensitively.
func ParseTrainStatus(name string) (TrainStatus, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for status, n := range trainStatusNames {
		if n == upper {
			return status, nil
		}
	}
	return StatusUnknown, ValidationError("Invalid train status %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s TrainStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid train status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *TrainStatus) UnmarshalText(text []byte) error {
	status, err := ParseTrainStatus(string(text))
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// Value stores the status by name.
func (s TrainStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid train status %d", int(s))
	}
	return s.String(), nil
}

// Scan reads a status name stored by Value.
func (s *TrainStatus) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		return s.UnmarshalText([]byte(v))
	case []byte:
		return s.UnmarshalText(v)
	case nil:
		*s = StatusUnknown
		return nil
	}
	return fmt.Errorf("cannot scan %T into TrainStatus", value)
}
