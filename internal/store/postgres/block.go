package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/chainwatch/event-ingest/internal/store"
)

// Update commits one /new_block message: the anchor block, the
// microblocks it confirms, their transactions and events, any
// matured miner rewards, and any BNS records surfaced along the way.
// Everything runs inside one transaction; a failure at any step
// leaves the previously-committed state untouched.
func (s *Store) Update(ctx context.Context, b store.BlockUpdate) (err error) {
	started := time.Now()
	defer func() { s.observe("update_block", started, err) }()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin block update tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err = tx.Exec(ctx, insertBlockQuery,
		b.Block.BlockHash, b.Block.IndexBlockHash, b.Block.ParentIndexBlockHash, b.Block.ParentBlockHash,
		b.Block.ParentMicroblockHash, b.Block.ParentMicroblockSequence, b.Block.BlockHeight, b.Block.BurnBlockTime,
		b.Block.BurnBlockHash, b.Block.BurnBlockHeight, b.Block.MinerTxID,
		b.Block.ExecutionCost.ReadCount, b.Block.ExecutionCost.ReadLength, b.Block.ExecutionCost.Runtime,
		b.Block.ExecutionCost.WriteCount, b.Block.ExecutionCost.WriteLength, b.Block.Canonical,
	); err != nil {
		return fmt.Errorf("insert block: %w", err)
	}

	if err = resolveCanonical(ctx, tx, b.Block.IndexBlockHash); err != nil {
		return err
	}

	if err = insertMicroblocks(ctx, tx, b.Microblocks); err != nil {
		return err
	}
	if err = insertTransactions(ctx, tx, b.Transactions); err != nil {
		return err
	}
	if err = insertEvents(ctx, tx, b.Events, b.Block.IndexBlockHash); err != nil {
		return err
	}
	if err = insertMinerRewards(ctx, tx, b.MinerRewards); err != nil {
		return err
	}
	if err = insertBnsNames(ctx, tx, b.Names); err != nil {
		return err
	}
	if err = insertBnsNamespaces(ctx, tx, b.Namespaces); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit block update: %w", err)
	}
	return nil
}

const insertBlockQuery = `
INSERT INTO blocks (
	block_hash, index_block_hash, parent_index_block_hash, parent_block_hash,
	parent_microblock_hash, parent_microblock_sequence, block_height, burn_block_time,
	burn_block_hash, burn_block_height, miner_txid,
	exec_read_count, exec_read_length, exec_runtime, exec_write_count, exec_write_length, canonical
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
ON CONFLICT (index_block_hash) DO UPDATE SET
	block_hash = EXCLUDED.block_hash,
	parent_index_block_hash = EXCLUDED.parent_index_block_hash,
	parent_block_hash = EXCLUDED.parent_block_hash,
	canonical = EXCLUDED.canonical`
