package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/chainwatch/event-ingest/internal/store"
)

// UpdateMicroblocks commits one /new_microblocks message: the
// not-yet-anchored microblocks and their transactions/events, still
// carrying the sentinel values for the anchor-only fields a later
// /new_block message will fill in.
func (s *Store) UpdateMicroblocks(ctx context.Context, b store.MicroblockUpdate) (err error) {
	started := time.Now()
	defer func() { s.observe("update_microblocks", started, err) }()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin microblock update tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err = insertMicroblocks(ctx, tx, b.Microblocks); err != nil {
		return err
	}
	if err = insertTransactions(ctx, tx, b.Transactions); err != nil {
		return err
	}
	if err = insertEvents(ctx, tx, b.Events, ""); err != nil {
		return err
	}
	if err = insertBnsNames(ctx, tx, b.Names); err != nil {
		return err
	}
	if err = insertBnsNamespaces(ctx, tx, b.Namespaces); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit microblock update: %w", err)
	}
	return nil
}
