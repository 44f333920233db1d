package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/chainwatch/event-ingest/internal/model"
	"github.com/chainwatch/event-ingest/internal/store"
)

// StoreRawEventRequest persists the verbatim bytes of one inbound
// node event request and returns its assigned sequence number. The
// raw event log's insertion order is the replay order, so seq is
// generated by the database (a serial/identity column) rather than
// computed in Go.
func (s *Store) StoreRawEventRequest(ctx context.Context, path string, payload []byte) (seq uint64, err error) {
	started := time.Now()
	defer func() { s.observe("store_raw_event_request", started, err) }()

	const query = `INSERT INTO raw_event_log (path, payload) VALUES ($1, $2) RETURNING seq`
	if err = s.pool.QueryRow(ctx, query, path, payload).Scan(&seq); err != nil {
		return 0, fmt.Errorf("store raw event request: %w", err)
	}
	return seq, nil
}

// ExportRawEvents returns an iterator over every raw event request
// recorded so far, in ascending sequence order.
func (s *Store) ExportRawEvents(ctx context.Context) (store.RawEventIterator, error) {
	rows, err := s.pool.Query(ctx, `SELECT seq, path, payload FROM raw_event_log ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query raw event log: %w", err)
	}
	return &rawEventIterator{rows: rows}, nil
}

type rawEventIterator struct {
	rows pgx.Rows
}

func (it *rawEventIterator) Next(ctx context.Context) (model.RawEventRecord, bool, error) {
	if !it.rows.Next() {
		if err := it.rows.Err(); err != nil {
			return model.RawEventRecord{}, false, fmt.Errorf("iterate raw event log: %w", err)
		}
		return model.RawEventRecord{}, false, nil
	}
	var rec model.RawEventRecord
	if err := it.rows.Scan(&rec.Seq, &rec.Path, &rec.Payload); err != nil {
		return model.RawEventRecord{}, false, fmt.Errorf("scan raw event row: %w", err)
	}
	return rec, true, nil
}

func (it *rawEventIterator) Close() error {
	it.rows.Close()
	return nil
}
