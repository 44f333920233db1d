package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/chainwatch/event-ingest/internal/model"
)

// UpdateAttachments commits a batch of BNS zonefile attachments.
func (s *Store) UpdateAttachments(ctx context.Context, attachments []model.Attachment) (err error) {
	started := time.Now()
	defer func() { s.observe("update_attachments", started, err) }()

	if len(attachments) == 0 {
		return nil
	}

	const query = `
INSERT INTO attachments (op, name, namespace, zonefile_hash, zonefile_hex, tx_id, index_block_hash, block_height)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (name, namespace, zonefile_hash) DO UPDATE SET zonefile_hex = EXCLUDED.zonefile_hex`

	batch := &pgx.Batch{}
	for _, a := range attachments {
		batch.Queue(query, a.Op, a.Name, a.Namespace, a.ZonefileHash, a.ZonefileHex, a.TxID, a.IndexBlockHash, a.BlockHeight)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin attachments tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err = runBatch(ctx, tx, batch, "insert attachments"); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit attachments: %w", err)
	}
	return nil
}
