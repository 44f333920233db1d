package handler

import (
	"context"

	"go.uber.org/zap"

	"github.com/chainwatch/event-ingest/internal/bns"
	"github.com/chainwatch/event-ingest/internal/decode"
	"github.com/chainwatch/event-ingest/internal/model"
	"github.com/chainwatch/event-ingest/internal/store"
)

// MicroblockHandler processes /new_microblocks messages: one or more
// not-yet-anchored microblocks, whose anchor-only fields are unknown
// until a later /new_block message confirms them.
type MicroblockHandler struct {
	store     store.Store
	extractor *bns.Extractor
	logger    *zap.Logger
}

// NewMicroblockHandler constructs a MicroblockHandler.
func NewMicroblockHandler(s store.Store, extractor *bns.Extractor, logger *zap.Logger) *MicroblockHandler {
	return &MicroblockHandler{store: s, extractor: extractor, logger: logger.Named("microblock_handler")}
}

// Handle decodes, normalizes, and commits one /new_microblocks message.
func (h *MicroblockHandler) Handle(ctx context.Context, body []byte) error {
	msg, err := decode.DecodeCoreNodeMessage(body, decode.MessageMicroblocks)
	if err != nil {
		return err
	}
	m := msg.(*decode.MicroblocksMessage)

	sentinelBlockHeight := model.MicroblockSentinelBlockHeight

	// Unconfirmed microblocks carry no block height or burn-block
	// time yet; the sentinel values mark that explicitly rather than
	// leaving the zero value ambiguous with a real block height 0.
	txs, err := decodeTransactions(ctx, m.Transactions, uint32(sentinelBlockHeight), "", true)
	if err != nil {
		return err
	}

	builders := newTxBuilders(txs)
	if err := ReconstructEvents(m.Events, builders); err != nil {
		return err
	}

	names, namespaces, err := ExtractBNSRecords(h.extractor, builders, uint32(sentinelBlockHeight), "")
	if err != nil {
		return err
	}

	finalTxs := flattenTransactions(builders)
	finalEvents := flattenEvents(builders)

	type key struct {
		hash string
		seq  uint16
	}
	seen := map[key]bool{}
	var microblocks []model.Microblock
	for _, tx := range finalTxs {
		if tx.MicroblockHash == nil || tx.MicroblockSequence == nil {
			continue
		}
		k := key{hash: *tx.MicroblockHash, seq: *tx.MicroblockSequence}
		if seen[k] {
			continue
		}
		seen[k] = true
		microblocks = append(microblocks, model.Microblock{
			MicroblockHash:       *tx.MicroblockHash,
			MicroblockSequence:   *tx.MicroblockSequence,
			ParentIndexBlockHash: m.ParentIndexBlockHash,
			ParentBurnBlockTime:  model.MicroblockSentinelBurnBlockTime,
			BlockHeight:          model.MicroblockSentinelBlockHeight,
			Canonical:            true,
			MicroblockCanonical:  true,
		})
	}

	update := store.MicroblockUpdate{
		Microblocks:  microblocks,
		Transactions: finalTxs,
		Events:       finalEvents,
		Names:        names,
		Namespaces:   namespaces,
	}

	return h.store.UpdateMicroblocks(ctx, update)
}
