package handler

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chainwatch/event-ingest/internal/decode"
	"github.com/chainwatch/event-ingest/internal/ingesterr"
	"github.com/chainwatch/event-ingest/internal/model"
	"github.com/chainwatch/event-ingest/internal/store"
)

// MempoolNewHandler processes /new_mempool_tx messages: transactions
// accepted into the node's mempool, not yet confirmed in any block.
type MempoolNewHandler struct {
	store  store.Store
	logger *zap.Logger
}

// NewMempoolNewHandler constructs a MempoolNewHandler.
func NewMempoolNewHandler(s store.Store, logger *zap.Logger) *MempoolNewHandler {
	return &MempoolNewHandler{store: s, logger: logger.Named("mempool_new_handler")}
}

// Handle decodes, normalizes, and commits one /new_mempool_tx message.
func (h *MempoolNewHandler) Handle(ctx context.Context, body []byte) error {
	msg, err := decode.DecodeCoreNodeMessage(body, decode.MessageMempoolNew)
	if err != nil {
		return err
	}
	m := msg.(*decode.MempoolNewMessage)

	// receipt_date is computed locally at handler entry, matching
	// current node behavior; see the Open Question decision recorded
	// in DESIGN.md.
	// TODO: revisit once the node itself reports a receipt timestamp.
	receiptDate := time.Now().Unix()

	txs := make([]model.MempoolTx, 0, len(m.RawTxs))
	for _, raw := range m.RawTxs {
		rawBytes, err := hex.DecodeString(trimHexPrefix(raw))
		if err != nil {
			return ingesterr.New(ingesterr.KindDecode, fmt.Errorf("decode mempool raw_tx hex: %w", err))
		}
		tx, err := decode.DecodeTransaction(rawBytes)
		if err != nil {
			return err
		}
		txs = append(txs, model.MempoolTx{
			Transaction: tx,
			ReceiptDate: receiptDate,
			Status:      model.MempoolTxPending,
		})
	}

	return h.store.UpdateMempoolTxs(ctx, txs)
}

// MempoolDropHandler processes /drop_mempool_tx messages: mempool
// transactions the node has discarded without confirming.
type MempoolDropHandler struct {
	store  store.Store
	logger *zap.Logger
}

// NewMempoolDropHandler constructs a MempoolDropHandler.
func NewMempoolDropHandler(s store.Store, logger *zap.Logger) *MempoolDropHandler {
	return &MempoolDropHandler{store: s, logger: logger.Named("mempool_drop_handler")}
}

// Handle decodes and commits one /drop_mempool_tx message.
func (h *MempoolDropHandler) Handle(ctx context.Context, body []byte) error {
	msg, err := decode.DecodeCoreNodeMessage(body, decode.MessageMempoolDrop)
	if err != nil {
		return err
	}
	m := msg.(*decode.MempoolDropMessage)

	status := ParseDropReason(m.Reason)
	return h.store.DropMempoolTxs(ctx, status, m.TxIDs)
}

// ParseDropReason maps the node's free-form drop reason string onto
// the store's closed taxonomy. It is total: any reason the node
// reports that isn't one of the five named statuses maps to the
// generic Dropped status, intentionally broader than what the node
// currently emits.
func ParseDropReason(reason string) model.MempoolDropStatus {
	switch model.MempoolDropStatus(reason) {
	case model.DropReplaceByFee, model.DropReplaceAcrossFork, model.DropTooExpensive, model.DropStaleGarbageCollect, model.DropProblematic:
		return model.MempoolDropStatus(reason)
	default:
		return model.DropGeneric
	}
}
