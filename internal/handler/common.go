// Package handler implements one handler per node event endpoint.
// Each follows the same shape: decode the request body, build a
// bundle of normalized records, and hand the bundle to the store in a
// single call.
package handler

import (
	"sort"

	"github.com/chainwatch/event-ingest/internal/model"
)

// txBuilder accumulates the events that belong to one transaction
// while a message's event list is being scattered and re-merged. It
// is the weak back-reference the events look up by txid rather than
// a slice index into the transaction's own (not yet populated) event
// list.
type txBuilder struct {
	tx     *model.Transaction
	events []model.Event
}

// newTxBuilders indexes txs by TxID for event scatter/merge.
func newTxBuilders(txs []model.Transaction) map[string]*txBuilder {
	out := make(map[string]*txBuilder, len(txs))
	for i := range txs {
		out[txs[i].TxID] = &txBuilder{tx: &txs[i]}
	}
	return out
}

// flattenEvents returns every builder's events, tx bundle order not
// guaranteed — callers that need a stable overall order sort
// afterward.
func flattenEvents(builders map[string]*txBuilder) []model.Event {
	var out []model.Event
	for _, b := range builders {
		out = append(out, b.events...)
	}
	return out
}

// flattenTransactions drains the builder map back into a slice in
// ascending TxIndex order, reflecting whatever in-place mutation
// ReconstructEvents made to each transaction's EventCount.
func flattenTransactions(builders map[string]*txBuilder) []model.Transaction {
	out := make([]model.Transaction, 0, len(builders))
	for _, b := range builders {
		out = append(out, *b.tx)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TxIndex < out[j].TxIndex })
	return out
}
