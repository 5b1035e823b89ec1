package engine

import "offerlens/internal/model"

// NetReturn is the influenced transaction value minus the reward paid for
// the completion. An absent reward counts as zero.
func NetReturn(agg WindowAggregate, completed model.Event) float64 {
	return agg.Return - completed.RewardValue()
}
