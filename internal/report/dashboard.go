package report

import (
	"math"
	"sort"

	"offerlens/internal/model"
)

const informational = "informational"

type Bucket struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type Funnel struct {
	Received           int `json:"received"`
	Viewed             int `json:"viewed"`
	CompletedAndViewed int `json:"completed_and_viewed"`
}

type Totals struct {
	TransactionAmount float64 `json:"transaction_amount"`
	InfluencedReturn  float64 `json:"influenced_return"`
	RewardCost        float64 `json:"reward_cost"`
	NetReturn         float64 `json:"net_return"`
}

type Dashboard struct {
	Rows                int      `json:"rows"`
	ReceivedByOfferType []Bucket `json:"received_by_offer_type"`
	Funnel              Funnel   `json:"funnel"`
	Totals              Totals   `json:"totals"`
	ReturnByGender      []Bucket `json:"return_by_gender"`
	ReturnByAgeRange    []Bucket `json:"return_by_age_range"`
	ReturnByIncomeRange []Bucket `json:"return_by_income_range"`
}

// Build aggregates the enriched table. Money values are rounded to cents.
// Return breakdowns cover completed-and-viewed rows only.
func Build(rows []model.EnrichedRow) Dashboard {
	d := Dashboard{Rows: len(rows)}
	received := map[string]float64{}
	byGender := map[string]float64{}
	byAge := map[string]float64{}
	byIncome := map[string]float64{}
	for _, r := range rows {
		switch r.Kind {
		case model.KindReceived:
			received[r.OfferType]++
			if r.OfferType != informational {
				d.Funnel.Received++
			}
		case model.KindViewed:
			if r.OfferType != informational {
				d.Funnel.Viewed++
			}
		case model.KindTransaction:
			d.Totals.TransactionAmount += r.AmountValue()
		}
		if !r.CompletedAndViewed {
			continue
		}
		if r.OfferType != informational {
			d.Funnel.CompletedAndViewed++
		}
		d.Totals.InfluencedReturn += r.CompletedTransactionReturn
		d.Totals.RewardCost += r.RewardValue()
		d.Totals.NetReturn += r.NetReturn
		byGender[r.Gender] += r.NetReturn
		byAge[r.AgeRange] += r.NetReturn
		byIncome[r.IncomeRange] += r.NetReturn
	}
	d.Totals.TransactionAmount = round2(d.Totals.TransactionAmount)
	d.Totals.InfluencedReturn = round2(d.Totals.InfluencedReturn)
	d.Totals.RewardCost = round2(d.Totals.RewardCost)
	d.Totals.NetReturn = round2(d.Totals.NetReturn)

	d.ReceivedByOfferType = descending(received)
	d.ReturnByGender = byLabel(byGender)
	d.ReturnByAgeRange = descending(byAge)
	d.ReturnByIncomeRange = descending(byIncome)
	return d
}

func buckets(m map[string]float64) []Bucket {
	out := make([]Bucket, 0, len(m))
	for label, v := range m {
		out = append(out, Bucket{Label: label, Value: round2(v)})
	}
	return out
}

func descending(m map[string]float64) []Bucket {
	out := buckets(m)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func byLabel(m map[string]float64) []Bucket {
	out := buckets(m)
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
