package normalize

import (
	"strings"

	"offerlens/internal/model"
)

// OfferRecord is one line of the offer portfolio file.
type OfferRecord struct {
	ID         string   `json:"id"`
	OfferType  string   `json:"offer_type"`
	Reward     float64  `json:"reward"`
	Difficulty float64  `json:"difficulty"`
	Duration   int      `json:"duration"`
	Channels   []string `json:"channels"`
}

// ProfileRecord is one line of the customer profile file.
type ProfileRecord struct {
	ID             string   `json:"id"`
	Gender         *string  `json:"gender"`
	Age            int      `json:"age"`
	Income         *float64 `json:"income"`
	BecameMemberOn any      `json:"became_member_on"`
}

func Offer(rec OfferRecord) model.Offer {
	o := model.Offer{
		OfferID:    strings.TrimSpace(rec.ID),
		OfferType:  strings.ToLower(strings.TrimSpace(rec.OfferType)),
		Reward:     rec.Reward,
		Difficulty: rec.Difficulty,
		Duration:   rec.Duration,
	}
	for _, ch := range rec.Channels {
		switch strings.ToLower(strings.TrimSpace(ch)) {
		case "web":
			o.ChannelWeb = true
		case "email":
			o.ChannelEmail = true
		case "mobile":
			o.ChannelMobile = true
		case "social":
			o.ChannelSocial = true
		}
	}
	return o
}

// Profile types a profile record. Records without gender or income are not
// usable for segmentation and are reported as not ok.
func Profile(rec ProfileRecord) (model.Profile, bool, error) {
	if rec.Gender == nil || strings.TrimSpace(*rec.Gender) == "" || rec.Income == nil {
		return model.Profile{}, false, nil
	}
	since, err := ParseMemberDate(stringify(rec.BecameMemberOn))
	if err != nil {
		return model.Profile{}, false, err
	}
	return model.Profile{
		CustomerID:  strings.TrimSpace(rec.ID),
		Gender:      strings.ToUpper(strings.TrimSpace(*rec.Gender)),
		Age:         rec.Age,
		Income:      *rec.Income,
		MemberSince: since,
		AgeRange:    AgeRange(rec.Age),
		IncomeRange: IncomeRange(*rec.Income),
	}, true, nil
}
