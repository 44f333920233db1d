// Package replay implements the raw event log's export and replay
// operations: writing the recorded request stream to a portable TSV
// file, and feeding it back into a fresh ingestion core.
package replay

import (
	"context"
	"fmt"
	"io"

	"github.com/chainwatch/event-ingest/internal/store"
)

// exportHeader marks the TSV file's format version so a future
// incompatible change to the record shape can be detected on read
// rather than silently misparsed.
const exportHeader = "# stacks-event-replay v1"

// Export streams every recorded raw event request to w in ascending
// sequence order, one line per record: seq TAB path TAB payload. The
// payload column is the compact JSON text itself — the recording
// middleware already guarantees it carries no embedded tabs or
// newlines, so the line stays strictly one-record-per-line without
// needing any further encoding.
func Export(ctx context.Context, s store.Store, w io.Writer) error {
	if _, err := fmt.Fprintln(w, exportHeader); err != nil {
		return fmt.Errorf("write export header: %w", err)
	}

	it, err := s.ExportRawEvents(ctx)
	if err != nil {
		return fmt.Errorf("open raw event export: %w", err)
	}
	defer it.Close()

	for {
		rec, ok, err := it.Next(ctx)
		if err != nil {
			return fmt.Errorf("read raw event record: %w", err)
		}
		if !ok {
			return nil
		}
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\n", rec.Seq, rec.Path, rec.Payload); err != nil {
			return fmt.Errorf("write export record %d: %w", rec.Seq, err)
		}
	}
}
