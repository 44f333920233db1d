package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// resolveCanonical walks the parent chain back from the just-inserted
// block and flips the canonical flag on every row whose index_block_hash
// is not part of that lineage at or above the lowest height the walk
// reached. It must run inside the same transaction as the insert that
// triggered it, so a reorg and the block that caused it commit or roll
// back together.
//
// A freshly inserted block that extends the current canonical tip is a
// no-op: the lineage it belongs to and the currently canonical lineage
// coincide, so the UPDATE flips nothing. A block whose parent is
// canonical but which competes with an existing block at its own
// height flips that sibling, and any block above it, to non-canonical.
func resolveCanonical(ctx context.Context, tx pgx.Tx, indexBlockHash string) error {
	const query = `
WITH RECURSIVE lineage AS (
	SELECT index_block_hash, parent_index_block_hash, block_height
	FROM blocks
	WHERE index_block_hash = $1

	UNION ALL

	SELECT b.index_block_hash, b.parent_index_block_hash, b.block_height
	FROM blocks b
	JOIN lineage l ON b.index_block_hash = l.parent_index_block_hash
),
floor_height AS (
	SELECT COALESCE(MIN(block_height), 0) AS height FROM lineage
)
UPDATE blocks
SET canonical = (blocks.index_block_hash IN (SELECT index_block_hash FROM lineage))
FROM floor_height
WHERE blocks.block_height >= floor_height.height
  AND blocks.canonical != (blocks.index_block_hash IN (SELECT index_block_hash FROM lineage))`

	if _, err := tx.Exec(ctx, query, indexBlockHash); err != nil {
		return fmt.Errorf("resolve canonical lineage: %w", err)
	}

	const txQuery = `UPDATE transactions SET canonical = b.canonical FROM blocks b WHERE transactions.index_block_hash = b.index_block_hash AND transactions.canonical != b.canonical`
	if _, err := tx.Exec(ctx, txQuery); err != nil {
		return fmt.Errorf("propagate canonical flag to transactions: %w", err)
	}

	const eventQuery = `UPDATE events SET canonical = t.canonical FROM transactions t WHERE events.tx_id = t.tx_id AND events.index_block_hash = t.index_block_hash AND events.canonical != t.canonical`
	if _, err := tx.Exec(ctx, eventQuery); err != nil {
		return fmt.Errorf("propagate canonical flag to events: %w", err)
	}

	return nil
}
