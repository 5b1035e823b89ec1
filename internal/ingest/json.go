package ingest

import (
	"bytes"
	"encoding/json"
	"strings"

	"offerlens/internal/normalize"
)

func ParseJSONBytes(data []byte) (*normalize.TranscriptFields, error) {
	var obj map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	return ParseJSONMap(obj), nil
}

// ParseJSONMap reads both the nested layout, where offer id, amount and
// reward live in a "value" object, and an already flattened one.
func ParseJSONMap(obj map[string]interface{}) *normalize.TranscriptFields {
	fields := &normalize.TranscriptFields{Extras: map[string]string{}}
	for key, val := range obj {
		if nested, ok := val.(map[string]interface{}); ok {
			for k, v := range nested {
				fields.Extras[normalizeKey(k)] = normalize.Stringify(v)
			}
			continue
		}
		fields.Extras[normalizeKey(key)] = normalize.Stringify(val)
	}
	fields.Person = firstNonEmpty(fields.Extras, "person", "customer_id", "customer")
	fields.Event = firstNonEmpty(fields.Extras, "event", "event_kind", "kind")
	fields.OfferID = firstNonEmpty(fields.Extras, "offer_id", "offerid")
	fields.Amount = firstNonEmpty(fields.Extras, "amount")
	fields.Reward = firstNonEmpty(fields.Extras, "reward")
	fields.Time = firstNonEmpty(fields.Extras, "time", "hours")
	return fields
}

func normalizeKey(k string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(k)), " ", "_")
}
