package replay

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/chainwatch/event-ingest/internal/model"
	"github.com/chainwatch/event-ingest/internal/store"
)

var errOpenFailed = errors.New("open failed")

// memoryStore is a minimal in-memory store.Store used only to drive
// Export; every write method beyond the raw event log is unused by
// this package and left unimplemented.
type memoryStore struct {
	store.Store
	records []model.RawEventRecord
}

func (m *memoryStore) ExportRawEvents(ctx context.Context) (store.RawEventIterator, error) {
	return &memoryIterator{records: m.records}, nil
}

type memoryIterator struct {
	records []model.RawEventRecord
	pos     int
}

func (it *memoryIterator) Next(ctx context.Context) (model.RawEventRecord, bool, error) {
	if it.pos >= len(it.records) {
		return model.RawEventRecord{}, false, nil
	}
	rec := it.records[it.pos]
	it.pos++
	return rec, true, nil
}

func (it *memoryIterator) Close() error { return nil }

// Exporting a raw event log and parsing the TSV back out recovers the
// exact seq/path/payload triples. The payloads here are the compact,
// tab/newline-free JSON the recording middleware always produces
// before a record ever reaches the store, which is what keeps the
// format strictly one-record-per-line without any further encoding.
func TestExportThenParseRoundTrips(t *testing.T) {
	s := &memoryStore{records: []model.RawEventRecord{
		{Seq: 1, Path: "/new_block", Payload: []byte(`{"block_height":1}`)},
		{Seq: 2, Path: "/new_microblocks", Payload: []byte(`{"transactions":[],"events":[]}`)},
		{Seq: 3, Path: "/attachments/new", Payload: []byte(`[{"content_hex":"0x00ff107f"}]`)},
	}}

	var buf bytes.Buffer
	if err := Export(context.Background(), s, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	scanner := bufio.NewScanner(&buf)
	if !scanner.Scan() {
		t.Fatal("expected a header line")
	}
	if scanner.Text() != exportHeader {
		t.Fatalf("header = %q, want %q", scanner.Text(), exportHeader)
	}

	var got []model.RawEventRecord
	for scanner.Scan() {
		seq, path, payload, err := parseRecordLine(scanner.Text())
		if err != nil {
			t.Fatalf("parseRecordLine: %v", err)
		}
		got = append(got, model.RawEventRecord{Seq: seq, Path: path, Payload: payload})
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(got) != len(s.records) {
		t.Fatalf("got %d records, want %d", len(got), len(s.records))
	}
	for i, want := range s.records {
		if got[i].Seq != want.Seq || got[i].Path != want.Path || !bytes.Equal(got[i].Payload, want.Payload) {
			t.Fatalf("record %d = %+v, want %+v", i, got[i], want)
		}
	}
}

func TestExportRefusesWhenIteratorErrors(t *testing.T) {
	s := &errorStore{}
	var buf bytes.Buffer
	if err := Export(context.Background(), s, &buf); err == nil {
		t.Fatal("expected Export to propagate the iterator's open error")
	}
}

type errorStore struct {
	store.Store
}

func (errorStore) ExportRawEvents(ctx context.Context) (store.RawEventIterator, error) {
	return nil, errOpenFailed
}
