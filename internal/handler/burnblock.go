package handler

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chainwatch/event-ingest/internal/decode"
	"github.com/chainwatch/event-ingest/internal/ingesterr"
	"github.com/chainwatch/event-ingest/internal/model"
	"github.com/chainwatch/event-ingest/internal/store"
	"github.com/chainwatch/event-ingest/pkg/safe"
)

// BurnBlockHandler processes /new_burn_block messages: the PoX/PoB
// reward payouts and reward-slot registrations settled on the burn
// chain a given overlay chain anchors to.
type BurnBlockHandler struct {
	store        store.Store
	burnchainNet *chaincfg.Params
	logger       *zap.Logger
}

// NewBurnBlockHandler constructs a BurnBlockHandler. burnchainNet
// selects the Bitcoin network parameters used to validate reward
// recipient addresses.
func NewBurnBlockHandler(s store.Store, burnchainNet *chaincfg.Params, logger *zap.Logger) *BurnBlockHandler {
	return &BurnBlockHandler{store: s, burnchainNet: burnchainNet, logger: logger.Named("burn_block_handler")}
}

// Handle decodes, normalizes, and commits one /new_burn_block message.
func (h *BurnBlockHandler) Handle(ctx context.Context, body []byte) error {
	msg, err := decode.DecodeCoreNodeMessage(body, decode.MessageBurnBlock)
	if err != nil {
		return err
	}
	m := msg.(*decode.BurnBlockMessage)

	rewards := make([]model.BurnchainReward, 0, len(m.RewardRecipients))
	for i, r := range m.RewardRecipients {
		addr, err := h.normalizeAddress(r.RecipientAddress)
		if err != nil {
			return err
		}
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			return ingesterr.New(ingesterr.KindDecode, fmt.Errorf("parse reward amount: %w", err))
		}
		idx, err := safe.Uint32(i)
		if err != nil {
			return ingesterr.New(ingesterr.KindDecode, err)
		}
		rewards = append(rewards, model.BurnchainReward{
			BurnBlockHash:   m.BurnBlockHash,
			BurnBlockHeight: m.BurnBlockHeight,
			Recipient:       addr,
			RewardIndex:     idx,
			RewardAmount:    amount,
		})
	}

	holders := make([]model.RewardSlotHolder, 0, len(m.RewardSlotHolders))
	for i, s := range m.RewardSlotHolders {
		addr, err := h.normalizeAddress(s.Address)
		if err != nil {
			return err
		}
		idx, err := safe.Uint32(i)
		if err != nil {
			return ingesterr.New(ingesterr.KindDecode, err)
		}
		holders = append(holders, model.RewardSlotHolder{
			BurnBlockHash:   m.BurnBlockHash,
			BurnBlockHeight: m.BurnBlockHeight,
			Address:         addr,
			SlotIndex:       idx,
		})
	}

	if err := h.store.UpdateBurnchainRewards(ctx, m.BurnBlockHash, m.BurnBlockHeight, rewards); err != nil {
		return err
	}
	return h.store.UpdateBurnchainRewardSlotHolders(ctx, m.BurnBlockHash, m.BurnBlockHeight, holders)
}

// normalizeAddress validates a reward-recipient address against the
// configured burnchain network and returns its canonical encoding.
// The burn chain a Stacks-style overlay anchors to is Bitcoin itself,
// so reward recipients are genuine Bitcoin addresses.
func (h *BurnBlockHandler) normalizeAddress(raw string) (string, error) {
	addr, err := btcutil.DecodeAddress(raw, h.burnchainNet)
	if err != nil {
		return "", ingesterr.New(ingesterr.KindDecode, fmt.Errorf("decode burnchain reward address %q: %w", raw, err))
	}
	return addr.EncodeAddress(), nil
}
