package normalize

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"offerlens/internal/model"
)

// TranscriptFields is a transcript record as read from the wire, before any
// typing. Empty strings mean the field was absent.
type TranscriptFields struct {
	Person  string
	Event   string
	OfferID string
	Amount  string
	Reward  string
	Time    string
	Extras  map[string]string
	Raw     string
}

// Normalize types a transcript record. Missing fields stay absent; whether a
// kind requires them is decided by the attribution engine.
func Normalize(fields TranscriptFields, globalIndex int) (model.Event, error) {
	ev := model.Event{
		GlobalIndex: globalIndex,
		CustomerID:  strings.TrimSpace(fields.Person),
		Kind:        ParseKind(fields.Event),
		OfferID:     strings.TrimSpace(fields.OfferID),
	}
	var err error
	if ev.Amount, err = parseOptionalFloat(fields.Amount); err != nil {
		return model.Event{}, fmt.Errorf("parse amount: %w", err)
	}
	if ev.Reward, err = parseOptionalFloat(fields.Reward); err != nil {
		return model.Event{}, fmt.Errorf("parse reward: %w", err)
	}
	if t := strings.TrimSpace(fields.Time); t != "" {
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return model.Event{}, fmt.Errorf("parse time: %w", err)
		}
		ev.Time = int(f)
	}
	return ev, nil
}

// ParseKind maps the raw event names ("offer received", "offer_received",
// "transaction", ...) to an event kind. Unknown names are kept verbatim.
func ParseKind(raw string) model.EventKind {
	n := strings.ToLower(strings.TrimSpace(raw))
	n = strings.ReplaceAll(n, " ", "_")
	n = strings.TrimPrefix(n, "event_")
	n = strings.TrimPrefix(n, "offer_")
	switch n {
	case "received":
		return model.KindReceived
	case "viewed":
		return model.KindViewed
	case "completed":
		return model.KindCompleted
	case "transaction":
		return model.KindTransaction
	}
	return model.EventKind(n)
}

func parseOptionalFloat(value string) (*float64, error) {
	value = strings.TrimSpace(value)
	switch strings.ToLower(value) {
	case "", "nan", "null", "none", "<nil>":
		return nil, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// ParseMemberDate parses the YYYYMMDD membership date.
func ParseMemberDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty membership date")
	}
	if i := strings.IndexByte(value, '.'); i > 0 {
		value = value[:i]
	}
	t, err := time.Parse("20060102", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("unsupported membership date: %q", value)
	}
	return t.UTC(), nil
}
