package model

import "time"

type EventKind string

const (
	KindReceived    EventKind = "received"
	KindViewed      EventKind = "viewed"
	KindCompleted   EventKind = "completed"
	KindTransaction EventKind = "transaction"
)

func (k EventKind) Valid() bool {
	switch k {
	case KindReceived, KindViewed, KindCompleted, KindTransaction:
		return true
	}
	return false
}

// Event is one row of the transcript log. GlobalIndex is unique across the
// whole log and is the only ordering and windowing key.
type Event struct {
	GlobalIndex int       `json:"global_index"`
	CustomerID  string    `json:"customer_id"`
	Kind        EventKind `json:"event_kind"`
	OfferID     string    `json:"offer_id,omitempty"`
	Amount      *float64  `json:"amount,omitempty"`
	Reward      *float64  `json:"reward,omitempty"`
	Time        int       `json:"time"`
}

func (e Event) RewardValue() float64 {
	if e.Reward == nil {
		return 0
	}
	return *e.Reward
}

func (e Event) AmountValue() float64 {
	if e.Amount == nil {
		return 0
	}
	return *e.Amount
}

type Attribution struct {
	CompletedAndViewed         bool    `json:"completed_and_viewed"`
	ReceivedAndCompleted       bool    `json:"received_and_completed"`
	InfluencedTransaction      bool    `json:"influenced_transaction"`
	CompletedTransactionReturn float64 `json:"completed_transaction_return"`
	CompletedTransactionQty    int     `json:"completed_transaction_qty"`
	NetReturn                  float64 `json:"net_return"`
}

type AttributedEvent struct {
	Event
	Attribution
}

type CustomerSummary struct {
	CustomerID             string  `json:"customer_id"`
	Events                 int     `json:"events"`
	Transactions           int     `json:"transactions"`
	Completed              int     `json:"completed"`
	CompletedAndViewed     int     `json:"completed_and_viewed"`
	ReceivedAndCompleted   int     `json:"received_and_completed"`
	InfluencedTransactions int     `json:"influenced_transactions"`
	TransactionReturn      float64 `json:"transaction_return"`
	RewardCost             float64 `json:"reward_cost"`
	NetReturn              float64 `json:"net_return"`
}

type CustomerError struct {
	CustomerID  string `json:"customer_id"`
	GlobalIndex int    `json:"global_index"`
	Kind        string `json:"kind"`
	Message     string `json:"message"`
}

type Offer struct {
	OfferID       string  `json:"offer_id"`
	OfferType     string  `json:"offer_type"`
	Reward        float64 `json:"reward"`
	Difficulty    float64 `json:"difficulty"`
	Duration      int     `json:"duration"`
	ChannelWeb    bool    `json:"channel_web"`
	ChannelEmail  bool    `json:"channel_email"`
	ChannelMobile bool    `json:"channel_mobile"`
	ChannelSocial bool    `json:"channel_social"`
}

type Profile struct {
	CustomerID  string    `json:"customer_id"`
	Gender      string    `json:"gender"`
	Age         int       `json:"age"`
	Income      float64   `json:"income"`
	MemberSince time.Time `json:"became_member_on"`
	AgeRange    string    `json:"age_range"`
	IncomeRange string    `json:"income_range"`
}

// EnrichedRow is the flat table handed to persistence: an attributed event
// joined with its customer profile and, for offer events, the offer portfolio.
type EnrichedRow struct {
	AttributedEvent
	Gender          string    `json:"gender"`
	Age             int       `json:"age"`
	Income          float64   `json:"income"`
	MemberSince     time.Time `json:"became_member_on"`
	AgeRange        string    `json:"age_range"`
	IncomeRange     string    `json:"income_range"`
	OfferType       string    `json:"offer_type,omitempty"`
	Difficulty      float64   `json:"difficulty,omitempty"`
	Duration        int       `json:"duration,omitempty"`
	PortfolioReward float64   `json:"reward_portfolio,omitempty"`
	ChannelWeb      bool      `json:"channel_web"`
	ChannelEmail    bool      `json:"channel_email"`
	ChannelMobile   bool      `json:"channel_mobile"`
	ChannelSocial   bool      `json:"channel_social"`
}

type RunRecord struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Events     int       `json:"events"`
	Customers  int       `json:"customers"`
	Failed     int       `json:"failed"`
}
