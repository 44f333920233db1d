package postgres

import (
	"context"
	"fmt"
)

// adminTables lists every table a wipe or an emptiness check touches,
// in an order that satisfies foreign-key dependencies when truncating.
var adminTables = []string{
	"events",
	"bns_names",
	"bns_namespaces",
	"attachments",
	"miner_rewards",
	"microblocks",
	"transactions",
	"mempool_txs",
	"reward_slot_holders",
	"burnchain_rewards",
	"blocks",
	"raw_event_log",
}

// WipeDB truncates every table the ingestion core owns. Replay's
// wipe-db mode calls this before replaying into a store that must
// start from a clean slate.
func (s *Store) WipeDB(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin wipe: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, table := range adminTables {
		if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit wipe: %w", err)
	}
	return nil
}

// IsEmpty reports whether the store holds any ingested blocks yet,
// the safety check replay performs before writing into a store
// unless Force is set.
func (s *Store) IsEmpty(ctx context.Context) (bool, error) {
	var count int
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM blocks").Scan(&count); err != nil {
		return false, fmt.Errorf("check blocks table: %w", err)
	}
	return count == 0, nil
}

// PruneRawEventLog deletes every raw event row, used by replay's
// pruned mode once a replay completes successfully.
func (s *Store) PruneRawEventLog(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM raw_event_log"); err != nil {
		return fmt.Errorf("prune raw event log: %w", err)
	}
	return nil
}
