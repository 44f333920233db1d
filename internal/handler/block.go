package handler

import (
	"context"
	"encoding/hex"
	"fmt"

	"go.uber.org/zap"

	"github.com/chainwatch/event-ingest/internal/bns"
	"github.com/chainwatch/event-ingest/internal/decode"
	"github.com/chainwatch/event-ingest/internal/ingesterr"
	"github.com/chainwatch/event-ingest/internal/model"
	"github.com/chainwatch/event-ingest/internal/store"
	"github.com/chainwatch/event-ingest/pkg/safe"
	"github.com/chainwatch/event-ingest/pkg/workerpool"
)

// decodeTxWorkers bounds how many transactions within a single block
// or microblock batch get decoded concurrently. Anchor blocks can
// carry thousands of transactions; decoding each one (signature
// fields, post-conditions, Clarity payloads) is pure CPU work, so
// fanning it out is worth the goroutine overhead past a handful of
// transactions.
const decodeTxWorkers = 8

// BlockHandler processes /new_block messages: a confirmed anchor
// block together with every transaction it and its now-confirmed
// microblocks contain.
type BlockHandler struct {
	store     store.Store
	extractor *bns.Extractor
	logger    *zap.Logger
}

// NewBlockHandler constructs a BlockHandler.
func NewBlockHandler(s store.Store, extractor *bns.Extractor, logger *zap.Logger) *BlockHandler {
	return &BlockHandler{store: s, extractor: extractor, logger: logger.Named("block_handler")}
}

// Handle decodes, normalizes, and commits one /new_block message.
func (h *BlockHandler) Handle(ctx context.Context, body []byte) error {
	msg, err := decode.DecodeCoreNodeMessage(body, decode.MessageBlock)
	if err != nil {
		return err
	}
	m := msg.(*decode.BlockMessage)

	block := model.Block{
		BlockHash:                m.BlockHash,
		IndexBlockHash:           m.IndexBlockHash,
		ParentIndexBlockHash:     m.ParentIndexBlockHash,
		ParentBlockHash:          m.ParentBlockHash,
		ParentMicroblockHash:     m.ParentMicroblock,
		ParentMicroblockSequence: m.ParentMicroblockSequence,
		BlockHeight:              m.BlockHeight,
		BurnBlockTime:            m.BurnBlockTime,
		BurnBlockHash:            m.BurnBlockHash,
		BurnBlockHeight:          m.BurnBlockHeight,
		MinerTxID:                m.MinerTxID,
		Canonical:                true,
	}
	if m.ExecutionCost != nil {
		block.ExecutionCost = model.ExecutionCost{
			ReadCount:   m.ExecutionCost.ReadCount,
			ReadLength:  m.ExecutionCost.ReadLength,
			Runtime:     m.ExecutionCost.Runtime,
			WriteCount:  m.ExecutionCost.WriteCount,
			WriteLength: m.ExecutionCost.WriteLength,
		}
	}

	txs, err := decodeTransactions(ctx, m.Transactions, block.BlockHeight, block.IndexBlockHash, block.Canonical)
	if err != nil {
		return err
	}

	builders := newTxBuilders(txs)
	if err := ReconstructEvents(m.Events, builders); err != nil {
		return err
	}

	names, namespaces, err := ExtractBNSRecords(h.extractor, builders, block.BlockHeight, block.IndexBlockHash)
	if err != nil {
		return err
	}

	finalTxs := flattenTransactions(builders)
	finalEvents := flattenEvents(builders)
	microblocks := ReconstructMicroblocks(block, finalTxs, h.logger)

	update := store.BlockUpdate{
		Block:        block,
		Microblocks:  microblocks,
		Transactions: finalTxs,
		Events:       finalEvents,
		Names:        names,
		Namespaces:   namespaces,
	}

	if err := h.store.Update(ctx, update); err != nil {
		return err
	}
	return nil
}

// decodeTransactions decodes every raw transaction in a message and
// stamps in the block-scoped fields the wire record doesn't carry
// itself (status, index, block height, owning index_block_hash). The
// decodes themselves run across a small worker pool, since a block's
// transactions decode independently of each other; the pool cancels
// the remaining work as soon as any one of them fails.
func decodeTransactions(ctx context.Context, raws []decode.RawTx, blockHeight uint32, indexBlockHash string, canonical bool) ([]model.Transaction, error) {
	out := make([]model.Transaction, len(raws))
	if len(raws) == 0 {
		return out, nil
	}

	workers := decodeTxWorkers
	if workers > len(raws) {
		workers = len(raws)
	}

	indices := make([]int, len(raws))
	for i := range raws {
		indices[i] = i
	}

	err := workerpool.Process(ctx, workers, indices, func(_ context.Context, i int) error {
		tx, err := decodeOneTransaction(raws[i], blockHeight, indexBlockHash, canonical)
		if err != nil {
			return err
		}
		out[i] = tx
		return nil
	}, nil)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// decodeOneTransaction decodes and stamps a single raw transaction.
func decodeOneTransaction(raw decode.RawTx, blockHeight uint32, indexBlockHash string, canonical bool) (model.Transaction, error) {
	rawBytes, err := hex.DecodeString(trimHexPrefix(raw.RawTx))
	if err != nil {
		return model.Transaction{}, ingesterr.New(ingesterr.KindDecode, fmt.Errorf("decode raw_tx hex: %w", err))
	}
	tx, err := decode.DecodeTransaction(rawBytes)
	if err != nil {
		return model.Transaction{}, err
	}

	txIndex, err := safe.Uint32(raw.TxIndex)
	if err != nil {
		return model.Transaction{}, ingesterr.New(ingesterr.KindDecode, err)
	}
	tx.TxIndex = txIndex
	tx.BlockHeight = blockHeight
	tx.IndexBlockHash = indexBlockHash
	tx.Canonical = canonical
	tx.CoreTx = model.CoreTxResult{Status: model.TxStatus(raw.Status), Result: raw.RawResult}
	tx.ContractABI = raw.ContractAbi
	tx.MicroblockHash = raw.MicroblockHash
	if raw.MicroblockSeq != nil {
		seq := uint16(*raw.MicroblockSeq)
		tx.MicroblockSequence = &seq
	}
	if raw.ExecutionCost != nil {
		tx.ExecutionCost = model.ExecutionCost{
			ReadCount:   raw.ExecutionCost.ReadCount,
			ReadLength:  raw.ExecutionCost.ReadLength,
			Runtime:     raw.ExecutionCost.Runtime,
			WriteCount:  raw.ExecutionCost.WriteCount,
			WriteLength: raw.ExecutionCost.WriteLength,
		}
	}

	return tx, nil
}
