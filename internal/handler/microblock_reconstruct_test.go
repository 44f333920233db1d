package handler

import (
	"testing"

	"go.uber.org/zap"

	"github.com/chainwatch/event-ingest/internal/model"
)

func strPtr(s string) *string { return &s }
func u16Ptr(v uint16) *uint16 { return &v }

func TestReconstructMicroblocks_GroupsBySequence(t *testing.T) {
	block := model.Block{
		IndexBlockHash:       "0xblock",
		ParentIndexBlockHash: "0xparent",
		ParentBlockHash:      "0xparenthash",
		BlockHash:            "0xhash",
		BlockHeight:          10,
		Canonical:            true,
	}
	txs := []model.Transaction{
		{TxID: "tx1", MicroblockHash: strPtr("0xmb1"), MicroblockSequence: u16Ptr(1)},
		{TxID: "tx2", MicroblockHash: strPtr("0xmb1"), MicroblockSequence: u16Ptr(1)},
		{TxID: "tx3", MicroblockHash: strPtr("0xmb0"), MicroblockSequence: u16Ptr(0)},
		{TxID: "tx4"}, // mined directly in the anchor block, no microblock fields
	}

	out := ReconstructMicroblocks(block, txs, zap.NewNop())

	if len(out) != 2 {
		t.Fatalf("got %d microblocks, want 2", len(out))
	}
	if out[0].MicroblockSequence != 0 || out[1].MicroblockSequence != 1 {
		t.Fatalf("microblocks not in ascending sequence order: %+v", out)
	}
	for _, mb := range out {
		if mb.IndexBlockHash != block.IndexBlockHash || mb.ParentIndexBlockHash != block.ParentIndexBlockHash {
			t.Fatalf("microblock not folded into anchor block context: %+v", mb)
		}
		if mb.ParentBlockHash != block.ParentBlockHash || mb.ParentBlockHeight != block.BlockHeight-1 {
			t.Fatalf("microblock missing confirming block's parent lineage: %+v", mb)
		}
		if !mb.MicroblockCanonical {
			t.Fatalf("expected confirmed microblocks to be canonical: %+v", mb)
		}
	}
}

func TestReconstructMicroblocks_NoMicroblockTxsProducesNone(t *testing.T) {
	block := model.Block{IndexBlockHash: "0xblock"}
	txs := []model.Transaction{{TxID: "tx1"}, {TxID: "tx2"}}

	out := ReconstructMicroblocks(block, txs, zap.NewNop())
	if len(out) != 0 {
		t.Fatalf("got %d microblocks, want 0", len(out))
	}
}

func TestReconstructMicroblocks_GapDoesNotPanicOrDropGroups(t *testing.T) {
	block := model.Block{IndexBlockHash: "0xblock"}
	txs := []model.Transaction{
		{TxID: "tx1", MicroblockHash: strPtr("0xmb0"), MicroblockSequence: u16Ptr(0)},
		{TxID: "tx2", MicroblockHash: strPtr("0xmb5"), MicroblockSequence: u16Ptr(5)},
	}

	out := ReconstructMicroblocks(block, txs, zap.NewNop())
	if len(out) != 2 {
		t.Fatalf("got %d microblocks, want 2 despite the sequence gap", len(out))
	}
}
