package handler

import (
	"sort"

	"go.uber.org/zap"

	"github.com/chainwatch/event-ingest/internal/model"
)

// ReconstructMicroblocks groups a /new_block message's transactions
// by (microblock_hash, microblock_sequence) and emits one Microblock
// record per group, in ascending sequence, now folded into the
// confirming anchor block. Transactions with no microblock fields
// (mined directly in the anchor block) are ignored. Gaps in the
// sequence are accepted silently and logged at Debug, per the
// decision recorded for this open question.
func ReconstructMicroblocks(block model.Block, txs []model.Transaction, logger *zap.Logger) []model.Microblock {
	type key struct {
		hash string
		seq  uint16
	}
	seen := map[key]bool{}
	var order []key

	for _, tx := range txs {
		if tx.MicroblockHash == nil || tx.MicroblockSequence == nil {
			continue
		}
		k := key{hash: *tx.MicroblockHash, seq: *tx.MicroblockSequence}
		if !seen[k] {
			seen[k] = true
			order = append(order, k)
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i].seq < order[j].seq })

	var parentBlockHeight uint32
	if block.BlockHeight > 0 {
		parentBlockHeight = block.BlockHeight - 1
	}

	out := make([]model.Microblock, 0, len(order))
	var missing []uint16
	var prevSeq int = -1
	for _, k := range order {
		if prevSeq >= 0 && int(k.seq) > prevSeq+1 {
			for s := prevSeq + 1; s < int(k.seq); s++ {
				missing = append(missing, uint16(s))
			}
		}
		prevSeq = int(k.seq)

		out = append(out, model.Microblock{
			MicroblockHash:       k.hash,
			MicroblockSequence:   k.seq,
			ParentIndexBlockHash: block.ParentIndexBlockHash,
			BlockHeight:          int64(block.BlockHeight),
			ParentBlockHeight:    parentBlockHeight,
			ParentBlockHash:      block.ParentBlockHash,
			IndexBlockHash:       block.IndexBlockHash,
			BlockHash:            block.BlockHash,
			Canonical:            block.Canonical,
			MicroblockCanonical:  true,
		})
	}

	if len(missing) > 0 && logger != nil {
		logger.Debug("gap in reconstructed microblock sequence",
			zap.String("index_block_hash", block.IndexBlockHash),
			zap.Uint16s("missing_sequence_numbers", missing),
		)
	}

	return out
}
