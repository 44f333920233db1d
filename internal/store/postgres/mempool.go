package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/chainwatch/event-ingest/internal/model"
)

// UpdateMempoolTxs commits a batch of newly accepted mempool transactions.
func (s *Store) UpdateMempoolTxs(ctx context.Context, txs []model.MempoolTx) (err error) {
	started := time.Now()
	defer func() { s.observe("update_mempool_txs", started, err) }()

	if len(txs) == 0 {
		return nil
	}

	const query = `
INSERT INTO mempool_txs (
	tx_id, nonce, type_id, sender_address, sponsor_address, fee, raw_tx, receipt_date, pruned, status
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (tx_id) DO UPDATE SET
	receipt_date = EXCLUDED.receipt_date,
	pruned = EXCLUDED.pruned,
	status = EXCLUDED.status`

	batch := &pgx.Batch{}
	for _, m := range txs {
		t := m.Transaction
		batch.Queue(query,
			t.TxID, t.Nonce, string(t.TypeID), t.SenderAddress, t.SponsorAddress, t.Fee.String(), t.RawTx,
			m.ReceiptDate, m.Pruned, string(m.Status),
		)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin mempool update tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err = runBatch(ctx, tx, batch, "insert mempool txs"); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit mempool update: %w", err)
	}
	return nil
}

// DropMempoolTxs marks a batch of mempool transactions as dropped
// with the given reason, pruning them from the pending set without
// deleting their row.
func (s *Store) DropMempoolTxs(ctx context.Context, status model.MempoolDropStatus, txIDs []string) (err error) {
	started := time.Now()
	defer func() { s.observe("drop_mempool_txs", started, err) }()

	if len(txIDs) == 0 {
		return nil
	}

	const query = `UPDATE mempool_txs SET status = $1, pruned = true WHERE tx_id = ANY($2)`
	if _, err = s.pool.Exec(ctx, query, string(status), txIDs); err != nil {
		return fmt.Errorf("drop mempool txs: %w", err)
	}
	return nil
}
