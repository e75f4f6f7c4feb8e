package models

import (
	"encoding/json"
	"errors"
	"strings"
)

// Notice is the site-wide announcement banner. Only id and active are
// interpreted; any other fields are kept verbatim for the frontend.
type Notice struct {
	ID     string
	Active bool
	Extra  map[string]json.RawMessage
}

var errInvalidNotice = errors.New("notice requires a non-empty id and a boolean active flag")

// UnmarshalJSON accepts any JSON object carrying a string id and a boolean active.
func (n *Notice) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var id string
	if v, ok := raw["id"]; !ok || json.Unmarshal(v, &id) != nil || strings.TrimSpace(id) == "" {
		return errInvalidNotice
	}
	var active bool
	if v, ok := raw["active"]; !ok || json.Unmarshal(v, &active) != nil {
		return errInvalidNotice
	}

	delete(raw, "id")
	delete(raw, "active")
	n.ID = id
	n.Active = active
	n.Extra = raw
	return nil
}

// MarshalJSON flattens Extra back alongside id and active.
func (n Notice) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(n.Extra)+2)
	for k, v := range n.Extra {
		out[k] = v
	}
	out["id"] = n.ID
	out["active"] = n.Active
	return json.Marshal(out)
}

// IsInvalidNotice reports whether err came from a notice failing validation.
func IsInvalidNotice(err error) bool {
	return errors.Is(err, errInvalidNotice)
}
