package engine

import (
	"offerlens/internal/config"
	"offerlens/internal/model"
)

// AttributionLink ties a completed offer to the view right before it and,
// when present, to the receipt right before that view.
type AttributionLink struct {
	Completed TimelineEntry
	Viewed    TimelineEntry
	Received  *TimelineEntry
}

// MatchCompletions scans a customer's offer events in order. A completion
// matches only when the immediately preceding offer event is a view of the
// same offer; a receipt must sit immediately before that view.
func MatchCompletions(offers []TimelineEntry, boundary string) []AttributionLink {
	var links []AttributionLink
	for i, cur := range offers {
		if cur.Event.Kind != model.KindCompleted {
			continue
		}
		v := i - 1
		if v < 0 {
			continue
		}
		view := offers[v]
		if view.Event.Kind != model.KindViewed || view.Event.OfferID != cur.Event.OfferID {
			continue
		}
		link := AttributionLink{Completed: cur, Viewed: view}
		if r, ok := lookback(len(offers), v-1, boundary); ok {
			rec := offers[r]
			if rec.Event.Kind == model.KindReceived && rec.Event.OfferID == cur.Event.OfferID {
				link.Received = &rec
			}
		}
		links = append(links, link)
	}
	return links
}

// lookback resolves a position before the view. With the wraparound policy a
// position of -1 addresses the tail of the sequence, as negative indexing
// did in the reference pipeline.
func lookback(n, pos int, boundary string) (int, bool) {
	if pos >= 0 {
		return pos, true
	}
	if boundary == config.BoundaryWraparound && pos == -1 && n > 0 {
		return n - 1, true
	}
	return 0, false
}
