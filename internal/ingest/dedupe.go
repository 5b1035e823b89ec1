package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"offerlens/internal/model"
)

// DropDuplicates removes records identical in every field but the global
// index. The first occurrence and its global index are kept, so indices may
// have gaps afterwards.
func DropDuplicates(events []model.Event) ([]model.Event, int) {
	seen := make(map[string]struct{}, len(events))
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		key := hashEvent(ev)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ev)
	}
	return out, len(events) - len(out)
}

func hashEvent(ev model.Event) string {
	parts := []string{
		ev.CustomerID,
		string(ev.Kind),
		ev.OfferID,
		optional(ev.Amount),
		optional(ev.Reward),
		strconv.Itoa(ev.Time),
	}
	h := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h[:])
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
