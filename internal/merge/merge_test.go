package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offerlens/internal/model"
)

func TestJoin(t *testing.T) {
	amount := 4.0
	events := []model.AttributedEvent{
		{Event: model.Event{GlobalIndex: 0, CustomerID: "p1", Kind: model.KindViewed, OfferID: "o1"}},
		{Event: model.Event{GlobalIndex: 1, CustomerID: "p1", Kind: model.KindTransaction, Amount: &amount}},
		{Event: model.Event{GlobalIndex: 2, CustomerID: "ghost", Kind: model.KindViewed, OfferID: "o1"}},
		{Event: model.Event{GlobalIndex: 3, CustomerID: "p1", Kind: model.KindViewed, OfferID: "unknown"}},
	}
	profiles := []model.Profile{{CustomerID: "p1", Gender: "F", Age: 55, AgeRange: "50-60", IncomeRange: "70000-80000"}}
	offers := []model.Offer{{OfferID: "o1", OfferType: "bogo", Reward: 5, ChannelEmail: true}}

	rows := Join(events, profiles, offers)
	require.Len(t, rows, 3)

	assert.Equal(t, 0, rows[0].GlobalIndex)
	assert.Equal(t, "bogo", rows[0].OfferType)
	assert.Equal(t, 5.0, rows[0].PortfolioReward)
	assert.True(t, rows[0].ChannelEmail)
	assert.Equal(t, "F", rows[0].Gender)

	assert.Equal(t, 1, rows[1].GlobalIndex)
	assert.Empty(t, rows[1].OfferType)
	assert.Equal(t, "50-60", rows[1].AgeRange)

	assert.Equal(t, 3, rows[2].GlobalIndex)
	assert.Empty(t, rows[2].OfferType)
}

func TestKnownCustomers(t *testing.T) {
	known := KnownCustomers([]model.Profile{{CustomerID: "a"}, {CustomerID: "b"}})
	assert.Len(t, known, 2)
	assert.Contains(t, known, "a")
}
