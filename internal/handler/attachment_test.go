package handler

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/chainwatch/event-ingest/internal/bns"
	"github.com/chainwatch/event-ingest/internal/model"
	"github.com/chainwatch/event-ingest/internal/store"
)

// The wire tags mirrored here are internal to internal/decode; this
// test builds raw Clarity tuple bytes by hand, the same approach
// internal/bns's own extractor tests use, since only a decoder exists
// in that package.
const (
	attachWireTagTuple       = 0x0c
	attachWireTagStringASCII = 0x0d
)

func attachShortString(s string) []byte {
	return append([]byte{byte(len(s))}, s...)
}

func attachAsciiValue(s string) []byte {
	b := []byte{attachWireTagStringASCII}
	b = binary.BigEndian.AppendUint32(b, uint32(len(s)))
	return append(b, s...)
}

func attachTuple(fields map[string][]byte) []byte {
	out := []byte{attachWireTagTuple}
	out = binary.BigEndian.AppendUint32(out, uint32(len(fields)))
	for k, v := range fields {
		out = append(out, attachShortString(k)...)
		out = append(out, v...)
	}
	return out
}

type attachmentStore struct {
	store.Store
	attachments []model.Attachment
}

func (f *attachmentStore) UpdateAttachments(ctx context.Context, attachments []model.Attachment) error {
	f.attachments = attachments
	return nil
}

func TestAttachmentHandler_Handle_FiltersToBNSAttachments(t *testing.T) {
	extractor, err := bns.NewExtractor()
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	s := &attachmentStore{}
	h := NewAttachmentHandler(s, extractor, zap.NewNop())

	bnsMeta := hex.EncodeToString(attachTuple(map[string][]byte{
		"op":        attachAsciiValue("name-update"),
		"name":      attachAsciiValue("alice"),
		"namespace": attachAsciiValue("btc"),
	}))
	otherMeta := hex.EncodeToString(attachTuple(map[string][]byte{
		"op": attachAsciiValue("something-else"),
	}))

	body := []byte(fmt.Sprintf(`[
		{"content_hex": "0xaa", "metadata": "0x%s", "tx_id": "0x01", "index_block_hash": "0xindex", "block_height": 5, "zonefile_hash": "0xdeadbeef"},
		{"content_hex": "0xbb", "metadata": "0x%s", "tx_id": "0x02", "index_block_hash": "0xindex", "block_height": 5}
	]`, bnsMeta, otherMeta))

	if err := h.Handle(context.Background(), body); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(s.attachments) != 1 {
		t.Fatalf("got %d attachments, want 1 (non-BNS attachment should be filtered)", len(s.attachments))
	}
	if s.attachments[0].Name != "alice" || s.attachments[0].Namespace != "btc" {
		t.Fatalf("unexpected attachment: %+v", s.attachments[0])
	}
	if s.attachments[0].ZonefileHash != "0xdeadbeef" {
		t.Fatalf("zonefile hash = %q, want 0xdeadbeef (must be threaded through from the wire payload, not hardcoded)", s.attachments[0].ZonefileHash)
	}
}

func TestAttachmentHandler_Handle_NoBNSAttachmentsSkipsStore(t *testing.T) {
	extractor, err := bns.NewExtractor()
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	s := &attachmentStore{}
	h := NewAttachmentHandler(s, extractor, zap.NewNop())

	otherMeta := hex.EncodeToString(attachTuple(map[string][]byte{
		"op": attachAsciiValue("something-else"),
	}))
	body := []byte(fmt.Sprintf(`[{"content_hex": "0xaa", "metadata": "0x%s", "tx_id": "0x01", "index_block_hash": "0xindex", "block_height": 5}]`, otherMeta))

	if err := h.Handle(context.Background(), body); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if s.attachments != nil {
		t.Fatalf("expected UpdateAttachments not to be called, got %+v", s.attachments)
	}
}
