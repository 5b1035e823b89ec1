package merge

import "offerlens/internal/model"

// Join builds the flat enriched table. Events of customers without a usable
// profile are dropped; offer columns are filled only when the event's offer
// is in the portfolio.
func Join(events []model.AttributedEvent, profiles []model.Profile, offers []model.Offer) []model.EnrichedRow {
	byCustomer := make(map[string]model.Profile, len(profiles))
	for _, p := range profiles {
		byCustomer[p.CustomerID] = p
	}
	byOffer := make(map[string]model.Offer, len(offers))
	for _, o := range offers {
		byOffer[o.OfferID] = o
	}
	rows := make([]model.EnrichedRow, 0, len(events))
	for _, ev := range events {
		p, ok := byCustomer[ev.CustomerID]
		if !ok {
			continue
		}
		row := model.EnrichedRow{
			AttributedEvent: ev,
			Gender:          p.Gender,
			Age:             p.Age,
			Income:          p.Income,
			MemberSince:     p.MemberSince,
			AgeRange:        p.AgeRange,
			IncomeRange:     p.IncomeRange,
		}
		if o, ok := byOffer[ev.OfferID]; ok && ev.OfferID != "" {
			row.OfferType = o.OfferType
			row.Difficulty = o.Difficulty
			row.Duration = o.Duration
			row.PortfolioReward = o.Reward
			row.ChannelWeb = o.ChannelWeb
			row.ChannelEmail = o.ChannelEmail
			row.ChannelMobile = o.ChannelMobile
			row.ChannelSocial = o.ChannelSocial
		}
		rows = append(rows, row)
	}
	return rows
}

// KnownCustomers is the customer registry derived from the profiles.
func KnownCustomers(profiles []model.Profile) map[string]struct{} {
	out := make(map[string]struct{}, len(profiles))
	for _, p := range profiles {
		out[p.CustomerID] = struct{}{}
	}
	return out
}
