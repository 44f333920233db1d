// Package model defines the domain records the ingestion core decodes,
// normalizes, and hands to the store.
package model

import "github.com/shopspring/decimal"

// ExecutionCost mirrors the Clarity VM cost tuple attached to blocks and
// transactions.
type ExecutionCost struct {
	ReadCount   uint64
	ReadLength  uint64
	Runtime     uint64
	WriteCount  uint64
	WriteLength uint64
}

// Block is an anchor block settled on the burn chain.
type Block struct {
	BlockHash                string
	IndexBlockHash           string
	ParentIndexBlockHash     string
	ParentBlockHash          string
	ParentMicroblockHash     string
	ParentMicroblockSequence uint16
	BlockHeight              uint32
	BurnBlockTime            int64
	BurnBlockHash            string
	BurnBlockHeight          uint32
	MinerTxID                string
	ExecutionCost            ExecutionCost
	Canonical                bool
}

// MicroblockSentinel values populate the anchor-only fields of a
// microblock record before its confirming anchor block arrives.
const (
	MicroblockSentinelBurnBlockTime = int64(-1)
	MicroblockSentinelBlockHeight   = int64(-1)
)

// Microblock is a streamed sub-block, confirmed retroactively by an
// anchor block.
type Microblock struct {
	MicroblockHash        string
	MicroblockSequence    uint16
	MicroblockParentHash  string
	ParentIndexBlockHash  string
	ParentBurnBlockHeight uint32
	ParentBurnBlockHash   string
	ParentBurnBlockTime   int64
	BlockHeight           int64
	ParentBlockHeight     uint32
	ParentBlockHash       string
	IndexBlockHash        string
	BlockHash             string
	Canonical             bool
	MicroblockCanonical   bool
}

// MinerReward is the matured coinbase/fee reward paid to the miner of a
// block once it is far enough in the past to be spendable.
type MinerReward struct {
	BlockHash                string
	IndexBlockHash           string
	FromIndexBlockHash       string
	MatureBlockHeight        uint32
	Recipient                string
	CoinbaseAmount           decimal.Decimal
	TxFeesAnchored           decimal.Decimal
	TxFeesStreamedConfirmed  decimal.Decimal
	TxFeesStreamedProduced   decimal.Decimal
	Canonical                bool
}

// BurnchainReward is a single PoX/PoB reward payout recorded against a
// burn block.
type BurnchainReward struct {
	BurnBlockHash   string
	BurnBlockHeight uint32
	Recipient       string
	RewardIndex     uint32
	RewardAmount    decimal.Decimal
}

// RewardSlotHolder is a registered burnchain reward slot for a burn
// block.
type RewardSlotHolder struct {
	BurnBlockHash   string
	BurnBlockHeight uint32
	Address         string
	SlotIndex       uint32
}
