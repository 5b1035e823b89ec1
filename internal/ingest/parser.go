package ingest

import (
	"encoding/csv"
	"errors"
	"strings"

	"offerlens/internal/normalize"
)

var errNoHeader = errors.New("csv record before header")

// Parser reads transcript lines in either JSON or header-led CSV form. A
// Parser is stateful for CSV input and must not be shared between files.
type Parser struct {
	csv *CSVParser
}

func NewParser() *Parser {
	return &Parser{csv: NewCSVParser()}
}

// ParseLine returns nil fields for blank lines and CSV headers.
func (p *Parser) ParseLine(line string) (*normalize.TranscriptFields, error) {
	trim := strings.TrimSpace(line)
	if trim == "" {
		return nil, nil
	}
	if looksLikeJSON(trim) {
		fields, err := ParseJSONBytes([]byte(trim))
		if err != nil {
			return nil, err
		}
		fields.Raw = line
		return fields, nil
	}
	fields, err := p.csv.Parse(trim)
	if err != nil || fields == nil {
		return nil, err
	}
	fields.Raw = line
	return fields, nil
}

func looksLikeJSON(s string) bool {
	for _, ch := range s {
		if ch == '{' || ch == '[' {
			return true
		}
		if ch > ' ' {
			return false
		}
	}
	return false
}

func firstNonEmpty(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(m[k]); v != "" {
			return v
		}
	}
	return ""
}

type CSVParser struct {
	header []string
}

func NewCSVParser() *CSVParser {
	return &CSVParser{}
}

func (p *CSVParser) Parse(line string) (*normalize.TranscriptFields, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.TrimLeadingSpace = true
	record, err := r.Read()
	if err != nil {
		return nil, err
	}
	if len(record) == 0 {
		return nil, nil
	}
	if p.header == nil {
		if !looksLikeHeader(record) {
			return nil, errNoHeader
		}
		p.header = normalizeHeader(record)
		return nil, nil
	}
	fields := &normalize.TranscriptFields{Extras: map[string]string{}}
	for i, name := range p.header {
		if i >= len(record) {
			break
		}
		assignField(fields, name, record[i])
	}
	return fields, nil
}

func looksLikeHeader(record []string) bool {
	for _, v := range record {
		switch normalizeKey(v) {
		case "person", "customer_id", "event", "event_kind", "offer_id", "amount", "reward", "time":
			return true
		}
	}
	return false
}

func normalizeHeader(record []string) []string {
	out := make([]string, len(record))
	for i, v := range record {
		out[i] = normalizeKey(v)
	}
	return out
}

func assignField(fields *normalize.TranscriptFields, name string, value string) {
	value = strings.TrimSpace(value)
	switch name {
	case "person", "customer_id", "customer":
		fields.Person = value
	case "event", "event_kind", "kind":
		fields.Event = value
	case "offer_id", "offerid":
		fields.OfferID = value
	case "amount":
		fields.Amount = value
	case "reward":
		fields.Reward = value
	case "time", "hours":
		fields.Time = value
	default:
		if fields.Extras != nil {
			fields.Extras[name] = value
		}
	}
}
