package engine

import (
	"strings"

	"offerlens/internal/model"
)

// TimelineEntry is an event plus its row in the input slice. Rows address the
// pre-sized output, global indices drive matching and windowing.
type TimelineEntry struct {
	Row   int
	Event model.Event
}

// CustomerTimeline is the per-customer view of the log: offer events and
// transactions in two parallel, independently ordered sequences.
type CustomerTimeline struct {
	CustomerID   string
	Offers       []TimelineEntry
	Transactions []TimelineEntry
	Err          error

	lastIndex int
}

type Partition struct {
	Order     []string
	Timelines map[string]*CustomerTimeline
}

func (p *Partition) Len() int {
	return len(p.Order)
}

// BuildTimelines groups the log by customer without reordering. A non-nil
// known set restricts the accepted customers. Data errors are kept on the
// offending customer's timeline so one bad customer never hides the rest.
func BuildTimelines(events []model.Event, known map[string]struct{}) *Partition {
	p := &Partition{Timelines: make(map[string]*CustomerTimeline)}
	seen := make(map[int]struct{}, len(events))
	for row, ev := range events {
		id := strings.TrimSpace(ev.CustomerID)
		tl, ok := p.Timelines[id]
		if !ok {
			tl = &CustomerTimeline{CustomerID: id, lastIndex: -1}
			p.Timelines[id] = tl
			p.Order = append(p.Order, id)
		}
		if _, dup := seen[ev.GlobalIndex]; dup {
			tl.fail(malformed(ev, "duplicate global index"))
			continue
		}
		seen[ev.GlobalIndex] = struct{}{}
		if tl.Err != nil {
			continue
		}
		if err := validateEvent(ev, id); err != nil {
			tl.fail(err)
			continue
		}
		if known != nil {
			if _, ok := known[id]; !ok {
				tl.fail(&UnknownCustomerPartitionError{CustomerID: id, GlobalIndex: ev.GlobalIndex})
				continue
			}
		}
		if ev.GlobalIndex <= tl.lastIndex {
			tl.fail(malformed(ev, "global index not ascending for customer"))
			continue
		}
		tl.lastIndex = ev.GlobalIndex
		entry := TimelineEntry{Row: row, Event: ev}
		if ev.Kind == model.KindTransaction {
			tl.Transactions = append(tl.Transactions, entry)
		} else {
			tl.Offers = append(tl.Offers, entry)
		}
	}
	return p
}

func (tl *CustomerTimeline) fail(err error) {
	if tl.Err == nil {
		tl.Err = err
	}
}

func validateEvent(ev model.Event, customerID string) error {
	if customerID == "" {
		return malformed(ev, "missing customer id")
	}
	if !ev.Kind.Valid() {
		return malformed(ev, "unknown event kind")
	}
	if ev.GlobalIndex < 0 {
		return malformed(ev, "negative global index")
	}
	switch ev.Kind {
	case model.KindTransaction:
		if ev.Amount == nil {
			return malformed(ev, "transaction without amount")
		}
	default:
		if strings.TrimSpace(ev.OfferID) == "" {
			return malformed(ev, "offer event without offer id")
		}
	}
	return nil
}

func malformed(ev model.Event, reason string) *MalformedEventError {
	return &MalformedEventError{
		CustomerID:  ev.CustomerID,
		GlobalIndex: ev.GlobalIndex,
		Kind:        ev.Kind,
		Reason:      reason,
	}
}
