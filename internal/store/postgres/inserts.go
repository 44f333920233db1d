package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/chainwatch/event-ingest/internal/model"
)

func insertMicroblocks(ctx context.Context, tx pgx.Tx, microblocks []model.Microblock) error {
	if len(microblocks) == 0 {
		return nil
	}
	const query = `
INSERT INTO microblocks (
	microblock_hash, microblock_sequence, microblock_parent_hash, parent_index_block_hash,
	parent_burn_block_height, parent_burn_block_hash, parent_burn_block_time, block_height,
	parent_block_height, parent_block_hash, index_block_hash, block_hash, canonical, microblock_canonical
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (microblock_hash) DO UPDATE SET
	index_block_hash = EXCLUDED.index_block_hash,
	block_hash = EXCLUDED.block_hash,
	block_height = EXCLUDED.block_height,
	canonical = EXCLUDED.canonical,
	microblock_canonical = EXCLUDED.microblock_canonical`

	batch := &pgx.Batch{}
	for _, m := range microblocks {
		batch.Queue(query,
			m.MicroblockHash, m.MicroblockSequence, m.MicroblockParentHash, m.ParentIndexBlockHash,
			m.ParentBurnBlockHeight, m.ParentBurnBlockHash, m.ParentBurnBlockTime, m.BlockHeight,
			m.ParentBlockHeight, m.ParentBlockHash, m.IndexBlockHash, m.BlockHash, m.Canonical, m.MicroblockCanonical,
		)
	}
	return runBatch(ctx, tx, batch, "insert microblocks")
}

func insertTransactions(ctx context.Context, tx pgx.Tx, txs []model.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	const query = `
INSERT INTO transactions (
	tx_id, tx_index, nonce, type_id, sender_address, sponsor_address, fee, anchor_mode,
	post_condition_mode, post_conditions, raw_tx, microblock_hash, microblock_sequence,
	event_count, canonical, origin_hash_mode, status, result, contract_abi,
	exec_read_count, exec_read_length, exec_runtime, exec_write_count, exec_write_length,
	block_height, index_block_hash
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26)
ON CONFLICT (tx_id, index_block_hash) DO UPDATE SET
	event_count = EXCLUDED.event_count,
	canonical = EXCLUDED.canonical,
	status = EXCLUDED.status,
	result = EXCLUDED.result`

	batch := &pgx.Batch{}
	for _, t := range txs {
		batch.Queue(query,
			t.TxID, t.TxIndex, t.Nonce, string(t.TypeID), t.SenderAddress, t.SponsorAddress, t.Fee.String(),
			t.AnchorMode, t.PostConditionMode, t.PostConditions, t.RawTx, t.MicroblockHash, t.MicroblockSequence,
			t.EventCount, t.Canonical, t.OriginHashMode, string(t.CoreTx.Status), t.CoreTx.Result, t.ContractABI,
			t.ExecutionCost.ReadCount, t.ExecutionCost.ReadLength, t.ExecutionCost.Runtime,
			t.ExecutionCost.WriteCount, t.ExecutionCost.WriteLength,
			t.BlockHeight, t.IndexBlockHash,
		)
	}
	return runBatch(ctx, tx, batch, "insert transactions")
}

func insertEvents(ctx context.Context, tx pgx.Tx, events []model.Event, indexBlockHash string) error {
	if len(events) == 0 {
		return nil
	}
	const query = `
INSERT INTO events (
	event_index, tx_id, tx_index, block_height, index_block_hash, canonical, kind,
	contract_identifier, topic, value,
	locked_amount, unlock_height, locked_address,
	asset_sub, sender, recipient, amount, asset_identifier, nft_value
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
ON CONFLICT (tx_id, index_block_hash, event_index) DO UPDATE SET canonical = EXCLUDED.canonical`

	batch := &pgx.Batch{}
	for _, e := range events {
		c := e.Common()
		row := eventRow(e, c, indexBlockHash)
		batch.Queue(query, row...)
	}
	return runBatch(ctx, tx, batch, "insert events")
}

func eventRow(e model.Event, c model.EventCommon, indexBlockHash string) []any {
	base := []any{c.EventIndex, c.TxID, c.TxIndex, c.BlockHeight, indexBlockHash, c.Canonical, string(e.Kind)}

	switch e.Kind {
	case model.EventSmartContractLog:
		v := e.SmartContractLog
		return append(base, v.ContractIdentifier, v.Topic, v.Value, nil, nil, nil, nil, nil, nil, nil, nil, nil)
	case model.EventStxLock:
		v := e.StxLock
		return append(base, nil, nil, nil, v.LockedAmount.String(), v.UnlockHeight, v.LockedAddress, nil, nil, nil, nil, nil, nil)
	case model.EventStxAsset:
		v := e.StxAsset
		return append(base, nil, nil, nil, nil, nil, nil, string(v.Sub), v.Sender, v.Recipient, v.Amount.String(), nil, nil)
	case model.EventFungibleTokenAsset:
		v := e.FungibleTokenAsset
		return append(base, nil, nil, nil, nil, nil, nil, string(v.Sub), v.Sender, v.Recipient, v.Amount.String(), v.AssetIdentifier, nil)
	case model.EventNonFungibleTokenAsset:
		v := e.NonFungibleTokenAsset
		return append(base, nil, nil, nil, nil, nil, nil, string(v.Sub), v.Sender, v.Recipient, nil, v.AssetIdentifier, v.Value)
	default:
		return append(base, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil)
	}
}

func insertMinerRewards(ctx context.Context, tx pgx.Tx, rewards []model.MinerReward) error {
	if len(rewards) == 0 {
		return nil
	}
	const query = `
INSERT INTO miner_rewards (
	block_hash, index_block_hash, from_index_block_hash, mature_block_height, recipient,
	coinbase_amount, tx_fees_anchored, tx_fees_streamed_confirmed, tx_fees_streamed_produced, canonical
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (index_block_hash, recipient) DO UPDATE SET canonical = EXCLUDED.canonical`

	batch := &pgx.Batch{}
	for _, r := range rewards {
		batch.Queue(query,
			r.BlockHash, r.IndexBlockHash, r.FromIndexBlockHash, r.MatureBlockHeight, r.Recipient,
			r.CoinbaseAmount.String(), r.TxFeesAnchored.String(), r.TxFeesStreamedConfirmed.String(), r.TxFeesStreamedProduced.String(), r.Canonical,
		)
	}
	return runBatch(ctx, tx, batch, "insert miner rewards")
}

func insertBnsNames(ctx context.Context, tx pgx.Tx, names []model.BnsName) error {
	if len(names) == 0 {
		return nil
	}
	const query = `
INSERT INTO bns_names (
	name, namespace, address, expired, expire_block, grace_period_end,
	zonefile, zonefile_hash, tx_id, tx_index, block_height, index_block_hash, canonical
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (name, namespace, tx_id) DO UPDATE SET
	address = EXCLUDED.address,
	expired = EXCLUDED.expired,
	zonefile_hash = EXCLUDED.zonefile_hash,
	canonical = EXCLUDED.canonical`

	batch := &pgx.Batch{}
	for _, n := range names {
		batch.Queue(query,
			n.Name, n.Namespace, n.Address, n.Expired, n.ExpireBlock, n.GracePeriodEnd,
			n.Zonefile, n.ZonefileHash, n.TxID, n.TxIndex, n.BlockHeight, n.IndexBlockHash, n.Canonical,
		)
	}
	return runBatch(ctx, tx, batch, "insert bns names")
}

func insertBnsNamespaces(ctx context.Context, tx pgx.Tx, namespaces []model.BnsNamespace) error {
	if len(namespaces) == 0 {
		return nil
	}
	const query = `
INSERT INTO bns_namespaces (
	namespace, address, lifetime, revealed, launched, ready,
	tx_id, tx_index, block_height, index_block_hash, canonical, namespace_importer
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (namespace, tx_id) DO UPDATE SET
	revealed = EXCLUDED.revealed,
	launched = EXCLUDED.launched,
	ready = EXCLUDED.ready,
	canonical = EXCLUDED.canonical`

	batch := &pgx.Batch{}
	for _, n := range namespaces {
		batch.Queue(query,
			n.Namespace, n.Address, n.Lifetime, n.Revealed, n.Launched, n.Ready,
			n.TxID, n.TxIndex, n.BlockHeight, n.IndexBlockHash, n.Canonical, n.NamespaceImporter,
		)
	}
	return runBatch(ctx, tx, batch, "insert bns namespaces")
}

// runBatch sends a batch and drains every queued result, surfacing
// the first error encountered. pgx requires every queued statement's
// result to be read even when the caller doesn't need the rows.
func runBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch, op string) error {
	br := tx.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}
