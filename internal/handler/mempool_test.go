package handler

import (
	"context"
	"encoding/hex"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/chainwatch/event-ingest/internal/model"
	"github.com/chainwatch/event-ingest/internal/store"
)

// fakeStore records the last call made to each method this package's
// handlers use, so tests can assert on what was committed without a
// real database.
type fakeStore struct {
	store.Store
	mempoolTxs   []model.MempoolTx
	droppedIDs   []string
	droppedStatus model.MempoolDropStatus
}

func (f *fakeStore) UpdateMempoolTxs(ctx context.Context, txs []model.MempoolTx) error {
	f.mempoolTxs = txs
	return nil
}

func (f *fakeStore) DropMempoolTxs(ctx context.Context, status model.MempoolDropStatus, txIDs []string) error {
	f.droppedStatus = status
	f.droppedIDs = txIDs
	return nil
}

func TestParseDropReason_RecognizedStatuses(t *testing.T) {
	cases := map[string]model.MempoolDropStatus{
		"ReplaceByFee":        model.DropReplaceByFee,
		"ReplaceAcrossFork":   model.DropReplaceAcrossFork,
		"TooExpensive":        model.DropTooExpensive,
		"StaleGarbageCollect": model.DropStaleGarbageCollect,
		"Problematic":         model.DropProblematic,
	}
	for reason, want := range cases {
		if got := ParseDropReason(reason); got != want {
			t.Errorf("ParseDropReason(%q) = %q, want %q", reason, got, want)
		}
	}
}

func TestParseDropReason_UnrecognizedFallsBackToGeneric(t *testing.T) {
	if got := ParseDropReason("SomethingTheNodeInventedLater"); got != model.DropGeneric {
		t.Fatalf("ParseDropReason(unknown) = %q, want %q", got, model.DropGeneric)
	}
}

func TestMempoolDropHandler_Handle(t *testing.T) {
	s := &fakeStore{}
	h := NewMempoolDropHandler(s, zap.NewNop())

	body := []byte(`{"txids": ["0x01", "0x02"], "reason": "TooExpensive"}`)
	if err := h.Handle(context.Background(), body); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if s.droppedStatus != model.DropTooExpensive {
		t.Fatalf("dropped status = %q, want TooExpensive", s.droppedStatus)
	}
	if len(s.droppedIDs) != 2 {
		t.Fatalf("dropped %d ids, want 2", len(s.droppedIDs))
	}
}

func TestMempoolNewHandler_Handle(t *testing.T) {
	s := &fakeStore{}
	h := NewMempoolNewHandler(s, zap.NewNop())

	raw := hex.EncodeToString(coinbaseTx(9, 0))
	body := []byte(fmt.Sprintf(`["0x%s"]`, raw))

	if err := h.Handle(context.Background(), body); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(s.mempoolTxs) != 1 {
		t.Fatalf("got %d mempool txs, want 1", len(s.mempoolTxs))
	}
	tx := s.mempoolTxs[0]
	if tx.Transaction.Nonce != 9 {
		t.Fatalf("nonce = %d, want 9", tx.Transaction.Nonce)
	}
	if tx.Status != model.MempoolTxPending {
		t.Fatalf("status = %q, want pending", tx.Status)
	}
	if tx.ReceiptDate == 0 {
		t.Fatal("expected a nonzero receipt date")
	}
}

func TestMempoolNewHandler_Handle_MalformedHexIsError(t *testing.T) {
	s := &fakeStore{}
	h := NewMempoolNewHandler(s, zap.NewNop())

	body := []byte(`["0xnothex"]`)
	if err := h.Handle(context.Background(), body); err == nil {
		t.Fatal("expected an error for non-hex raw_tx")
	}
}
