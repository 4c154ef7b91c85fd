package types

import "strings"

// SortingCriteria selects the primary ordering of journey search results.
type SortingCriteria int

const (
	OverallTravelTime SortingCriteria = iota
	NumberOfHops
)

func (c SortingCriteria) String() string {
	switch c {
	case OverallTravelTime:
		return "OVERALL_TRAVEL_TIME"
	case NumberOfHops:
		return "NUMBER_OF_HOPS"
	}
	return "UNKNOWN"
}

// ParseSortingCriteria accepts the criteria names; an empty name selects OverallTravelTime.
func ParseSortingCriteria(name string) (SortingCriteria, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "OVERALL_TRAVEL_TIME", "TRAVEL_TIME":
		return OverallTravelTime, nil
	case "NUMBER_OF_HOPS", "HOPS":
		return NumberOfHops, nil
	}
	return OverallTravelTime, ValidationError("Invalid sorting criteria %q", name)
}
