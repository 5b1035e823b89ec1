package normalize

import (
	"testing"
	"time"

	"offerlens/internal/model"
)

func TestParseKind(t *testing.T) {
	cases := map[string]model.EventKind{
		"offer received":        model.KindReceived,
		"offer_viewed":          model.KindViewed,
		"event_offer_completed": model.KindCompleted,
		" Transaction ":         model.KindTransaction,
		"refund":                model.EventKind("refund"),
	}
	for in, want := range cases {
		if got := ParseKind(in); got != want {
			t.Fatalf("ParseKind(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeTransaction(t *testing.T) {
	ev, err := Normalize(TranscriptFields{Person: " p1 ", Event: "transaction", Amount: "12.5", Time: "18"}, 4)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if ev.GlobalIndex != 4 || ev.CustomerID != "p1" || ev.Kind != model.KindTransaction || ev.Time != 18 {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.Amount == nil || *ev.Amount != 12.5 {
		t.Fatalf("amount not parsed")
	}
	if ev.Reward != nil {
		t.Fatalf("reward must stay absent")
	}
}

func TestNormalizeKeepsMissingFieldsAbsent(t *testing.T) {
	ev, err := Normalize(TranscriptFields{Person: "p1", Event: "transaction", Amount: "NaN"}, 0)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if ev.Amount != nil {
		t.Fatalf("NaN amount must be treated as absent")
	}
}

func TestNormalizeRejectsBadNumbers(t *testing.T) {
	if _, err := Normalize(TranscriptFields{Person: "p1", Event: "transaction", Amount: "ten"}, 0); err == nil {
		t.Fatalf("expected amount parse error")
	}
	if _, err := Normalize(TranscriptFields{Person: "p1", Event: "offer completed", Reward: "x"}, 0); err == nil {
		t.Fatalf("expected reward parse error")
	}
}

func TestAgeRange(t *testing.T) {
	cases := map[int]string{
		10:  "",
		11:  "10-20",
		20:  "10-20",
		55:  "50-60",
		110: "100-110",
		118: "",
	}
	for in, want := range cases {
		if got := AgeRange(in); got != want {
			t.Fatalf("AgeRange(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestIncomeRange(t *testing.T) {
	cases := map[float64]string{
		20000:  "",
		30000:  "20000-30000",
		72000:  "70000-80000",
		120000: "110000-120000",
		130000: "",
	}
	for in, want := range cases {
		if got := IncomeRange(in); got != want {
			t.Fatalf("IncomeRange(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestProfile(t *testing.T) {
	gender := "f"
	income := 72000.0
	p, ok, err := Profile(ProfileRecord{ID: "p1", Gender: &gender, Age: 55, Income: &income, BecameMemberOn: float64(20170715)})
	if err != nil || !ok {
		t.Fatalf("profile: ok=%v err=%v", ok, err)
	}
	if p.Gender != "F" || p.AgeRange != "50-60" || p.IncomeRange != "70000-80000" {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if !p.MemberSince.Equal(time.Date(2017, 7, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("member since: %v", p.MemberSince)
	}
	if _, ok, _ := Profile(ProfileRecord{ID: "p2", Age: 118}); ok {
		t.Fatalf("profile without gender/income must be dropped")
	}
}

func TestOfferChannels(t *testing.T) {
	o := Offer(OfferRecord{ID: "o1", OfferType: "BOGO", Reward: 10, Channels: []string{"email", "social"}})
	if !o.ChannelEmail || !o.ChannelSocial || o.ChannelWeb || o.ChannelMobile {
		t.Fatalf("unexpected channels: %+v", o)
	}
	if o.OfferType != "bogo" {
		t.Fatalf("offer type: %q", o.OfferType)
	}
}
