package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"offerlens/internal/model"
)

func TestParseNestedJSON(t *testing.T) {
	p := NewParser()
	line := `{"person": "78afa995", "event": "offer received", "value": {"offer id": "9b98b8c7"}, "time": 0}`
	fields, err := p.ParseLine(line)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if fields.Person != "78afa995" || fields.OfferID != "9b98b8c7" || fields.Event != "offer received" || fields.Time != "0" {
		t.Fatalf("json parse mismatch: %+v", fields)
	}
}

func TestParseCompletedJSON(t *testing.T) {
	p := NewParser()
	line := `{"person": "p", "event": "offer completed", "value": {"offer_id": "o1", "reward": 2}, "time": 18}`
	fields, err := p.ParseLine(line)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if fields.OfferID != "o1" || fields.Reward != "2" {
		t.Fatalf("completed parse mismatch: %+v", fields)
	}
}

func TestParseCSV(t *testing.T) {
	p := NewParser()
	if fields, _ := p.ParseLine("person,event,offer_id,amount,reward,time"); fields != nil {
		t.Fatalf("expected header to return nil")
	}
	fields, err := p.ParseLine("p1,transaction,,0.83,,6")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if fields.Person != "p1" || fields.Amount != "0.83" || fields.Time != "6" {
		t.Fatalf("csv parse mismatch: %+v", fields)
	}
}

func TestParseCSVWithoutHeader(t *testing.T) {
	p := NewParser()
	if _, err := p.ParseLine("p1,transaction,,0.83,,6"); err == nil {
		t.Fatalf("expected error for csv data before header")
	}
}

func TestReadTranscriptAssignsGlobalIndex(t *testing.T) {
	input := strings.Join([]string{
		`{"person": "a", "event": "offer received", "value": {"offer id": "o1"}, "time": 0}`,
		``,
		`{"person": "a", "event": "transaction", "value": {"amount": 4.5}, "time": 6}`,
		`{"person": "b", "event": "offer completed", "value": {"offer_id": "o1", "reward": 5}, "time": 12}`,
	}, "\n")
	events, err := ReadTranscript(context.Background(), strings.NewReader(input))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, ev := range events {
		if ev.GlobalIndex != i {
			t.Fatalf("event %d has global index %d", i, ev.GlobalIndex)
		}
	}
	if events[1].Kind != model.KindTransaction || *events[1].Amount != 4.5 {
		t.Fatalf("unexpected transaction: %+v", events[1])
	}
	if events[2].Kind != model.KindCompleted || *events[2].Reward != 5 {
		t.Fatalf("unexpected completion: %+v", events[2])
	}
}

func TestReadTranscriptReportsLine(t *testing.T) {
	_, err := ReadTranscript(context.Background(), strings.NewReader("{\"person\": \"a\"}\n{broken"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected line 2 error, got %v", err)
	}
}

func TestDropDuplicates(t *testing.T) {
	amount := 3.0
	events := []model.Event{
		{GlobalIndex: 0, CustomerID: "a", Kind: model.KindTransaction, Amount: &amount, Time: 1},
		{GlobalIndex: 1, CustomerID: "a", Kind: model.KindTransaction, Amount: &amount, Time: 1},
		{GlobalIndex: 2, CustomerID: "a", Kind: model.KindTransaction, Amount: &amount, Time: 2},
	}
	out, dropped := DropDuplicates(events)
	if dropped != 1 || len(out) != 2 {
		t.Fatalf("dropped=%d len=%d", dropped, len(out))
	}
	if out[0].GlobalIndex != 0 || out[1].GlobalIndex != 2 {
		t.Fatalf("first occurrence and index must be kept: %+v", out)
	}
}

func TestLoadPortfolioAndProfiles(t *testing.T) {
	dir := t.TempDir()
	portfolio := filepath.Join(dir, "portfolio.json")
	profile := filepath.Join(dir, "profile.json")
	writeFile(t, portfolio, `{"reward": 10, "channels": ["email", "mobile", "social"], "difficulty": 10, "duration": 7, "offer_type": "bogo", "id": "o1"}`)
	writeFile(t, profile, strings.Join([]string{
		`{"gender": null, "age": 118, "id": "p0", "became_member_on": 20170212, "income": null}`,
		`{"gender": "F", "age": 55, "id": "p1", "became_member_on": 20170715, "income": 112000.0}`,
	}, "\n"))

	offers, err := LoadPortfolio(context.Background(), portfolio)
	if err != nil {
		t.Fatalf("portfolio: %v", err)
	}
	if len(offers) != 1 || !offers[0].ChannelMobile || offers[0].ChannelWeb || offers[0].OfferType != "bogo" {
		t.Fatalf("unexpected offers: %+v", offers)
	}
	profiles, err := LoadProfiles(context.Background(), profile, nil)
	if err != nil {
		t.Fatalf("profiles: %v", err)
	}
	if len(profiles) != 1 || profiles[0].CustomerID != "p1" || profiles[0].IncomeRange != "110000-120000" {
		t.Fatalf("unexpected profiles: %+v", profiles)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
