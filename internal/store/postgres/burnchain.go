package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/chainwatch/event-ingest/internal/model"
)

// UpdateBurnchainRewards commits the PoX/PoB reward payouts settled
// in one burn block.
func (s *Store) UpdateBurnchainRewards(ctx context.Context, burnBlockHash string, burnBlockHeight uint32, rewards []model.BurnchainReward) (err error) {
	started := time.Now()
	defer func() { s.observe("update_burnchain_rewards", started, err) }()

	if len(rewards) == 0 {
		return nil
	}

	const query = `
INSERT INTO burnchain_rewards (burn_block_hash, burn_block_height, recipient, reward_index, reward_amount)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (burn_block_hash, reward_index) DO UPDATE SET reward_amount = EXCLUDED.reward_amount`

	batch := &pgx.Batch{}
	for _, r := range rewards {
		batch.Queue(query, r.BurnBlockHash, r.BurnBlockHeight, r.Recipient, r.RewardIndex, r.RewardAmount.String())
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin burnchain rewards tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err = runBatch(ctx, tx, batch, "insert burnchain rewards"); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit burnchain rewards: %w", err)
	}
	return nil
}

// UpdateBurnchainRewardSlotHolders commits the reward-slot
// registrations settled in one burn block.
func (s *Store) UpdateBurnchainRewardSlotHolders(ctx context.Context, burnBlockHash string, burnBlockHeight uint32, holders []model.RewardSlotHolder) (err error) {
	started := time.Now()
	defer func() { s.observe("update_burnchain_reward_slot_holders", started, err) }()

	if len(holders) == 0 {
		return nil
	}

	const query = `
INSERT INTO reward_slot_holders (burn_block_hash, burn_block_height, address, slot_index)
VALUES ($1,$2,$3,$4)
ON CONFLICT (burn_block_hash, slot_index) DO UPDATE SET address = EXCLUDED.address`

	batch := &pgx.Batch{}
	for _, h := range holders {
		batch.Queue(query, h.BurnBlockHash, h.BurnBlockHeight, h.Address, h.SlotIndex)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reward slot holders tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err = runBatch(ctx, tx, batch, "insert reward slot holders"); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reward slot holders: %w", err)
	}
	return nil
}
