package models

import (
	"bytes"
	"strconv"
	"strings"
)

// FlexCount is an integer count that tolerates the loose JSON the follower
// forms produce: numbers, numeric strings, blank strings and null all decode,
// with anything non-numeric counting as 0.
type FlexCount int

func (f *FlexCount) UnmarshalJSON(data []byte) error {
	s := string(bytes.TrimSpace(data))
	if s == "null" {
		*f = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			*f = 0
			return nil
		}
		s = strings.TrimSpace(unquoted)
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexCount(n)
	return nil
}

func (f FlexCount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(f))), nil
}

// Int returns the count as a plain int.
func (f FlexCount) Int() int { return int(f) }

// MonthlyFollowerDelta holds the gained/lost follower counts for one
// calendar month, per platform. Maps of these are keyed by "YYYY-MM".
type MonthlyFollowerDelta struct {
	FBGained FlexCount `json:"fbGained"`
	FBLost   FlexCount `json:"fbLost"`
	IGGained FlexCount `json:"igGained"`
	IGLost   FlexCount `json:"igLost"`
}

// BaseFollowerData anchors follower reconciliation at time-zero, before the
// first month with recorded deltas.
type BaseFollowerData struct {
	FBBase FlexCount `json:"fbBase"`
	IGBase FlexCount `json:"igBase"`
}
