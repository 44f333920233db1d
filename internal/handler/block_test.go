package handler

import (
	"bytes"
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

// blockStore records the last BlockUpdate handed to Update so tests
// can assert on what Handle assembled without a real database.
type blockStore struct {
	store.Store
	update store.BlockUpdate
}

func (f *blockStore) Update(ctx context.Context, b store.BlockUpdate) error {
	f.update = b
	return nil
}

// coinbaseTx encodes the smallest valid raw transaction this decoder
// accepts: a standard-auth coinbase with no alternate recipient.
func coinbaseTx(nonce, fee uint64) []byte {
	var buf bytes.Buffer
	buf.WriteByte(0x00)
	binary.Write(&buf, binary.BigEndian, uint32(0x80000000))
	buf.WriteByte(0x04) // auth type standard
	buf.WriteByte(0x00) // hash mode
	buf.Write(bytes.Repeat([]byte{0xaa}, 20))
	binary.Write(&buf, binary.BigEndian, nonce)
	binary.Write(&buf, binary.BigEndian, fee)
	buf.WriteByte(0x00) // key encoding
	buf.Write(bytes.Repeat([]byte{0xbb}, 65))
	buf.WriteByte(0x03) // anchor mode
	buf.WriteByte(0x01) // post condition mode
	binary.Write(&buf, binary.BigEndian, uint32(0)) // post conditions length
	buf.WriteByte(0x04)                             // payload tag: coinbase
	buf.Write(make([]byte, 32))                     // coinbase payload
	buf.WriteByte(0x00)                             // no alt recipient
	return buf.Bytes()
}

func TestBlockHandler_Handle(t *testing.T) {
	extractor, err := bns.NewExtractor()
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	s := &blockStore{}
	h := NewBlockHandler(s, extractor, zap.NewNop())

	rawTx := hex.EncodeToString(coinbaseTx(5, 0))
	body := []byte(fmt.Sprintf(`{
		"block_hash": "0xblock",
		"index_block_hash": "0xindex",
		"parent_index_block_hash": "0xparent",
		"block_height": 42,
		"burn_block_height": 10,
		"transactions": [{"tx_index": 0, "raw_tx": "0x%s", "status": "success"}],
		"events": []
	}`, rawTx))

	if err := h.Handle(context.Background(), body); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if s.update.Block.IndexBlockHash != "0xindex" || s.update.Block.BlockHeight != 42 {
		t.Fatalf("unexpected block: %+v", s.update.Block)
	}
	if len(s.update.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(s.update.Transactions))
	}
	tx := s.update.Transactions[0]
	if tx.Nonce != 5 || tx.TypeID != model.TxPayloadCoinbase {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if tx.IndexBlockHash != "0xindex" || tx.BlockHeight != 42 || !tx.Canonical {
		t.Fatalf("transaction not stamped with block context: %+v", tx)
	}
}

func TestBlockHandler_Handle_PreservesTxOrderAcrossWorkers(t *testing.T) {
	extractor, err := bns.NewExtractor()
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	s := &blockStore{}
	h := NewBlockHandler(s, extractor, zap.NewNop())

	const txCount = 20
	var txsJSON bytes.Buffer
	txsJSON.WriteByte('[')
	for i := 0; i < txCount; i++ {
		if i > 0 {
			txsJSON.WriteByte(',')
		}
		rawTx := hex.EncodeToString(coinbaseTx(uint64(i), 0))
		fmt.Fprintf(&txsJSON, `{"tx_index": %d, "raw_tx": "0x%s", "status": "success"}`, i, rawTx)
	}
	txsJSON.WriteByte(']')

	body := []byte(fmt.Sprintf(`{
		"block_hash": "0xblock",
		"index_block_hash": "0xindex",
		"parent_index_block_hash": "0xparent",
		"block_height": 1,
		"transactions": %s,
		"events": []
	}`, txsJSON.String()))

	if err := h.Handle(context.Background(), body); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(s.update.Transactions) != txCount {
		t.Fatalf("got %d transactions, want %d", len(s.update.Transactions), txCount)
	}
	for i, tx := range s.update.Transactions {
		if tx.Nonce != uint64(i) {
			t.Fatalf("transaction at index %d has nonce %d, want %d (decode order not preserved)", i, tx.Nonce, i)
		}
	}
}

func TestBlockHandler_Handle_MalformedRawTxIsDecodeError(t *testing.T) {
	extractor, err := bns.NewExtractor()
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	s := &blockStore{}
	h := NewBlockHandler(s, extractor, zap.NewNop())

	body := []byte(`{
		"block_hash": "0xblock",
		"index_block_hash": "0xindex",
		"parent_index_block_hash": "0xparent",
		"block_height": 1,
		"transactions": [{"tx_index": 0, "raw_tx": "0xnothex", "status": "success"}]
	}`)

	if err := h.Handle(context.Background(), body); err == nil {
		t.Fatal("expected an error for a non-hex raw_tx")
	}
}
