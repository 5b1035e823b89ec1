package engine

import "sort"

// TransactionIndex answers range sum and range count queries over one
// customer's transactions, keyed by global index. Building it is O(n), each
// query is two binary searches.
type TransactionIndex struct {
	indices []int
	prefix  []float64
}

type WindowAggregate struct {
	Return float64
	Qty    int

	lo, hi int
}

func NewTransactionIndex(txs []TimelineEntry) *TransactionIndex {
	idx := &TransactionIndex{
		indices: make([]int, len(txs)),
		prefix:  make([]float64, len(txs)+1),
	}
	for i, tx := range txs {
		idx.indices[i] = tx.Event.GlobalIndex
		idx.prefix[i+1] = idx.prefix[i] + tx.Event.AmountValue()
	}
	return idx
}

func (t *TransactionIndex) Len() int {
	return len(t.indices)
}

// Aggregate covers every transaction whose global index lies in the closed
// range [from, to].
func (t *TransactionIndex) Aggregate(from, to int) WindowAggregate {
	if to < from {
		return WindowAggregate{}
	}
	lo := sort.SearchInts(t.indices, from)
	hi := sort.SearchInts(t.indices, to+1)
	return WindowAggregate{
		Return: t.prefix[hi] - t.prefix[lo],
		Qty:    hi - lo,
		lo:     lo,
		hi:     hi,
	}
}

// InfluenceMarker records windows with a difference array so that marking
// many overlapping windows stays linear in windows plus transactions.
type InfluenceMarker struct {
	diff []int
}

func NewInfluenceMarker(n int) *InfluenceMarker {
	return &InfluenceMarker{diff: make([]int, n+1)}
}

func (m *InfluenceMarker) Mark(w WindowAggregate) {
	if w.hi <= w.lo {
		return
	}
	m.diff[w.lo]++
	m.diff[w.hi]--
}

// Influenced reports, per transaction position, how many windows cover it.
func (m *InfluenceMarker) Influenced() []int {
	out := make([]int, len(m.diff)-1)
	run := 0
	for i := range out {
		run += m.diff[i]
		out[i] = run
	}
	return out
}
