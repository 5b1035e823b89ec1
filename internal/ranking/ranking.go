package ranking

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"offerlens/internal/model"
	"offerlens/internal/normalize"
)

const DefaultTop = 3

// Segment narrows the rows a recommendation is computed from. Zero values
// mean no filter.
type Segment struct {
	Gender string   `json:"gender,omitempty"`
	Age    *int     `json:"age,omitempty"`
	Income *float64 `json:"income,omitempty"`
}

type OfferScore struct {
	OfferID       string  `json:"offer_id"`
	OfferType     string  `json:"offer_type,omitempty"`
	MeanNetReturn float64 `json:"mean_net_return"`
	Completions   int     `json:"completions"`
}

// ParseSegment reads segment filters from raw text, the form they arrive in
// from query strings and flags. Empty values are no filter.
func ParseSegment(gender, age, income string) (Segment, error) {
	seg := Segment{Gender: strings.ToUpper(strings.TrimSpace(gender))}
	if v := strings.TrimSpace(age); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Segment{}, fmt.Errorf("parse age: %w", err)
		}
		seg.Age = &n
	}
	if v := strings.TrimSpace(income); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Segment{}, fmt.Errorf("parse income: %w", err)
		}
		seg.Income = &f
	}
	return seg, nil
}

type filter struct {
	gender      string
	ageRange    string
	incomeRange string
}

// Ages and incomes outside every bucket apply no filter.
func (s Segment) filter() filter {
	f := filter{gender: s.Gender}
	if s.Age != nil {
		f.ageRange = normalize.AgeRange(*s.Age)
	}
	if s.Income != nil {
		f.incomeRange = normalize.IncomeRange(*s.Income)
	}
	return f
}

func (f filter) match(r model.EnrichedRow) bool {
	if f.gender != "" && r.Gender != f.gender {
		return false
	}
	if f.ageRange != "" && r.AgeRange != f.ageRange {
		return false
	}
	if f.incomeRange != "" && r.IncomeRange != f.incomeRange {
		return false
	}
	return true
}

// Recommend ranks offers by mean net return over the completed-and-viewed
// rows of the segment. Ties are broken by offer id.
func Recommend(rows []model.EnrichedRow, seg Segment, n int) []OfferScore {
	if n <= 0 {
		n = DefaultTop
	}
	f := seg.filter()
	type acc struct {
		offerType string
		sum       float64
		count     int
	}
	byOffer := make(map[string]*acc)
	for _, r := range rows {
		if !r.CompletedAndViewed || !f.match(r) {
			continue
		}
		a, ok := byOffer[r.OfferID]
		if !ok {
			a = &acc{offerType: r.OfferType}
			byOffer[r.OfferID] = a
		}
		a.sum += r.NetReturn
		a.count++
	}
	scores := make([]OfferScore, 0, len(byOffer))
	for id, a := range byOffer {
		scores = append(scores, OfferScore{
			OfferID:       id,
			OfferType:     a.offerType,
			MeanNetReturn: a.sum / float64(a.count),
			Completions:   a.count,
		})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].MeanNetReturn != scores[j].MeanNetReturn {
			return scores[i].MeanNetReturn > scores[j].MeanNetReturn
		}
		return scores[i].OfferID < scores[j].OfferID
	})
	if len(scores) > n {
		scores = scores[:n]
	}
	return scores
}
