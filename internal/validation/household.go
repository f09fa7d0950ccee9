package validation

import (
	"bytes"
	"encoding/json"
	"errors"
)

// HouseholdID is a household reference that clients send either as a string
// ("hh-3") or as a bare number (3). Numbers keep their literal text.
type HouseholdID string

var errHouseholdID = errors.New("householdId must be a string or a number")

func (h *HouseholdID) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch t := v.(type) {
	case string:
		*h = HouseholdID(t)
	case json.Number:
		*h = HouseholdID(t.String())
	default:
		return errHouseholdID
	}
	return nil
}

// Ptr returns the id as a *string, nil when h is nil.
func (h *HouseholdID) Ptr() *string {
	if h == nil {
		return nil
	}
	s := string(*h)
	return &s
}
