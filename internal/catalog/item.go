package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Item is one recommendable catalogue entry. Fields beyond the three
// required ones are collected into Metadata; the offline pipeline passes
// arbitrary extra columns through the catalogue file.
type Item struct {
	ItemID   string
	Title    string
	Text     string
	Metadata map[string]string
}

// MarshalJSON renders the item with its canonical field names plus any
// metadata keys at the top level, mirroring the catalogue file format.
func (it Item) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(it.Metadata)+3)
	for k, v := range it.Metadata {
		out[k] = v
	}
	out["item_id"] = it.ItemID
	out["title"] = it.Title
	out["text"] = it.Text
	return json.Marshal(out)
}

// UnmarshalJSON decodes a catalogue record, coercing item_id to a string
// (upstream files sometimes carry numeric ids) and folding unknown keys into
// Metadata.
func (it *Item) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	for k, v := range raw {
		switch k {
		case "item_id":
			it.ItemID = coerceString(v)
		case "title":
			it.Title = coerceString(v)
		case "text":
			it.Text = coerceString(v)
		default:
			if it.Metadata == nil {
				it.Metadata = make(map[string]string)
			}
			it.Metadata[k] = coerceString(v)
		}
	}
	return nil
}

func coerceString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
