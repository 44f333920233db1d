// Package store defines the contract the ingestion core writes
// through. Every write is expected to be atomic: a failure must leave
// the previously-committed state untouched.
package store

import (
	"context"

	"github.com/chainwatch/event-ingest/internal/model"
)

// BlockUpdate bundles everything one /new_block message contributes:
// the anchor block itself, its transactions and their events, matured
// miner rewards, and any BNS records surfaced along the way.
type BlockUpdate struct {
	Block        model.Block
	Microblocks  []model.Microblock
	Transactions []model.Transaction
	Events       []model.Event
	MinerRewards []model.MinerReward
	Names        []model.BnsName
	Namespaces   []model.BnsNamespace
}

// MicroblockUpdate bundles everything one /new_microblocks message
// contributes: unconfirmed microblocks and their transactions/events.
type MicroblockUpdate struct {
	Microblocks  []model.Microblock
	Transactions []model.Transaction
	Events       []model.Event
	Names        []model.BnsName
	Namespaces   []model.BnsNamespace
}

// RawEventIterator streams previously recorded raw event requests in
// ascending sequence order for export.
type RawEventIterator interface {
	Next(ctx context.Context) (model.RawEventRecord, bool, error)
	Close() error
}

// Store is the single point through which decoded, normalized chain
// state reaches persistent storage.
type Store interface {
	Update(ctx context.Context, b BlockUpdate) error
	UpdateMicroblocks(ctx context.Context, b MicroblockUpdate) error
	UpdateBurnchainRewards(ctx context.Context, burnBlockHash string, burnBlockHeight uint32, rewards []model.BurnchainReward) error
	UpdateBurnchainRewardSlotHolders(ctx context.Context, burnBlockHash string, burnBlockHeight uint32, holders []model.RewardSlotHolder) error
	UpdateMempoolTxs(ctx context.Context, txs []model.MempoolTx) error
	DropMempoolTxs(ctx context.Context, status model.MempoolDropStatus, txIDs []string) error
	UpdateAttachments(ctx context.Context, attachments []model.Attachment) error
	StoreRawEventRequest(ctx context.Context, path string, payload []byte) (seq uint64, err error)
	ExportRawEvents(ctx context.Context) (RawEventIterator, error)
}
