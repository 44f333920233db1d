package handler

import (
	"context"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"go.uber.org/zap"

	"github.com/chainwatch/event-ingest/internal/model"
	"github.com/chainwatch/event-ingest/internal/store"
)

type burnStore struct {
	store.Store
	rewards []model.BurnchainReward
	holders []model.RewardSlotHolder
}

func (f *burnStore) UpdateBurnchainRewards(ctx context.Context, burnBlockHash string, burnBlockHeight uint32, rewards []model.BurnchainReward) error {
	f.rewards = rewards
	return nil
}

func (f *burnStore) UpdateBurnchainRewardSlotHolders(ctx context.Context, burnBlockHash string, burnBlockHeight uint32, holders []model.RewardSlotHolder) error {
	f.holders = holders
	return nil
}

func TestBurnBlockHandler_Handle(t *testing.T) {
	s := &burnStore{}
	h := NewBurnBlockHandler(s, &chaincfg.MainNetParams, zap.NewNop())

	body := []byte(`{
		"burn_block_hash": "0xburn",
		"burn_block_height": 900,
		"reward_recipients": [{"recipient": "1BoatSLRHtKNngkdXEeobR76b53LETtpyT", "amt": "5000"}],
		"reward_slot_holders": [{"address": "1BoatSLRHtKNngkdXEeobR76b53LETtpyT"}]
	}`)

	if err := h.Handle(context.Background(), body); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(s.rewards) != 1 || s.rewards[0].Recipient != "1BoatSLRHtKNngkdXEeobR76b53LETtpyT" {
		t.Fatalf("unexpected rewards: %+v", s.rewards)
	}
	if s.rewards[0].RewardAmount.IntPart() != 5000 {
		t.Fatalf("reward amount = %s, want 5000", s.rewards[0].RewardAmount.String())
	}
	if len(s.holders) != 1 {
		t.Fatalf("got %d slot holders, want 1", len(s.holders))
	}
}

func TestBurnBlockHandler_Handle_InvalidAddressIsDecodeError(t *testing.T) {
	s := &burnStore{}
	h := NewBurnBlockHandler(s, &chaincfg.MainNetParams, zap.NewNop())

	body := []byte(`{
		"burn_block_hash": "0xburn",
		"burn_block_height": 900,
		"reward_recipients": [{"recipient": "not-a-real-address", "amt": "5000"}]
	}`)

	if err := h.Handle(context.Background(), body); err == nil {
		t.Fatal("expected an error for an unparsable burnchain address")
	}
}
