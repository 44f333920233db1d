package decode

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/chainwatch/event-ingest/internal/ingesterr"
)

// MessageKind identifies which endpoint a node message body arrived
// on, since the payloads are polymorphic by route rather than by an
// inline discriminator field.
type MessageKind string

const (
	MessageBlock       MessageKind = "block"
	MessageMicroblocks MessageKind = "microblocks"
	MessageBurnBlock   MessageKind = "burn_block"
	MessageMempoolNew  MessageKind = "mempool_new"
	MessageMempoolDrop MessageKind = "mempool_drop"
	MessageAttachments MessageKind = "attachments"
)

// RawTxEvent is the wire shape of one transaction event, common across
// the block and microblock endpoints. Exactly one of the nested
// pointers is populated, selected by Type.
type RawTxEvent struct {
	EventIndex int    `mapstructure:"event_index"`
	TxID       string `mapstructure:"txid"`
	Committed  bool   `mapstructure:"committed"`
	Type       string `mapstructure:"type"`

	ContractEvent *struct {
		ContractIdentifier string `mapstructure:"contract_identifier"`
		Topic               string `mapstructure:"topic"`
		RawValue            string `mapstructure:"raw_value"`
	} `mapstructure:"contract_event"`

	STXLockEvent *struct {
		LockedAmount string `mapstructure:"locked_amount"`
		UnlockHeight int    `mapstructure:"unlock_height"`
		LockedAddress string `mapstructure:"locked_address"`
	} `mapstructure:"stx_lock_event"`

	STXAssetEvent *struct {
		Type      string `mapstructure:"asset_event_type"`
		Sender    string `mapstructure:"sender"`
		Recipient string `mapstructure:"recipient"`
		Amount    string `mapstructure:"amount"`
	} `mapstructure:"stx_asset_event"`

	FungibleTokenAssetEvent *struct {
		Type            string `mapstructure:"asset_event_type"`
		Sender          string `mapstructure:"sender"`
		Recipient       string `mapstructure:"recipient"`
		Amount          string `mapstructure:"amount"`
		AssetIdentifier string `mapstructure:"asset_identifier"`
	} `mapstructure:"fungible_token_asset_event"`

	NonFungibleTokenAssetEvent *struct {
		Type            string `mapstructure:"asset_event_type"`
		Sender          string `mapstructure:"sender"`
		Recipient       string `mapstructure:"recipient"`
		RawValue        string `mapstructure:"raw_value"`
		AssetIdentifier string `mapstructure:"asset_identifier"`
	} `mapstructure:"non_fungible_token_asset_event"`
}

// RawTx is the wire shape of one transaction record attached to a
// block or microblock message.
type RawTx struct {
	TxIndex        int          `mapstructure:"tx_index"`
	RawTx          string       `mapstructure:"raw_tx"`
	Status         string       `mapstructure:"status"`
	RawResult      string       `mapstructure:"raw_result"`
	ExecutionCost  *RawExecCost `mapstructure:"execution_cost"`
	ContractAbi    *string      `mapstructure:"contract_abi"`
	MicroblockHash *string      `mapstructure:"microblock_hash"`
	MicroblockSeq  *int         `mapstructure:"microblock_sequence"`
}

// RawExecCost is the wire shape of the Clarity VM cost tuple.
type RawExecCost struct {
	ReadCount   uint64 `mapstructure:"read_count"`
	ReadLength  uint64 `mapstructure:"read_length"`
	Runtime     uint64 `mapstructure:"runtime"`
	WriteCount  uint64 `mapstructure:"write_count"`
	WriteLength uint64 `mapstructure:"write_length"`
}

// BlockMessage is the wire shape of a /new_block POST body.
type BlockMessage struct {
	BlockHash                string       `mapstructure:"block_hash"`
	IndexBlockHash           string       `mapstructure:"index_block_hash"`
	ParentIndexBlockHash     string       `mapstructure:"parent_index_block_hash"`
	ParentBlockHash          string       `mapstructure:"parent_block_hash"`
	ParentMicroblock         string       `mapstructure:"parent_microblock"`
	ParentMicroblockSequence uint16       `mapstructure:"parent_microblock_sequence"`
	BlockHeight              uint32       `mapstructure:"block_height"`
	BurnBlockTime            int64        `mapstructure:"burn_block_time"`
	BurnBlockHash            string       `mapstructure:"burn_block_hash"`
	BurnBlockHeight          uint32       `mapstructure:"burn_block_height"`
	MinerTxID                string       `mapstructure:"miner_txid"`
	ExecutionCost            *RawExecCost `mapstructure:"execution_cost"`
	Transactions              []RawTx      `mapstructure:"transactions"`
	Events                    []RawTxEvent `mapstructure:"events"`
}

// MicroblocksMessage is the wire shape of a /new_microblocks POST body.
type MicroblocksMessage struct {
	ParentIndexBlockHash string       `mapstructure:"parent_index_block_hash"`
	Transactions          []RawTx      `mapstructure:"transactions"`
	Events                []RawTxEvent `mapstructure:"events"`
}

// BurnBlockMessage is the wire shape of a /new_burn_block POST body.
type BurnBlockMessage struct {
	BurnBlockHash   string `mapstructure:"burn_block_hash"`
	BurnBlockHeight uint32 `mapstructure:"burn_block_height"`
	RewardRecipients []struct {
		RecipientAddress string `mapstructure:"recipient"`
		Amount           string `mapstructure:"amt"`
	} `mapstructure:"reward_recipients"`
	RewardSlotHolders []struct {
		Address string `mapstructure:"address"`
	} `mapstructure:"reward_slot_holders"`
}

// MempoolNewMessage is the wire shape of a /new_mempool_tx POST body:
// a bare JSON array of raw-tx hex strings.
type MempoolNewMessage struct {
	RawTxs []string `mapstructure:"raw_txs"`
}

// MempoolDropMessage is the wire shape of a /drop_mempool_tx POST body.
type MempoolDropMessage struct {
	TxIDs  []string `mapstructure:"txids"`
	Reason string   `mapstructure:"reason"`
}

// AttachmentsMessage is the wire shape of an /attachments/new POST
// body: a bare JSON array of attachment records.
type AttachmentsMessage struct {
	Attachments []struct {
		ContentHex     string `mapstructure:"content_hex"`
		Metadata       string `mapstructure:"metadata"`
		TxID           string `mapstructure:"tx_id"`
		IndexBlockHash string `mapstructure:"index_block_hash"`
		BlockHeight    uint32 `mapstructure:"block_height"`
		ZonefileHash   string `mapstructure:"zonefile_hash"`
	} `mapstructure:"attachments"`
}

// DecodeCoreNodeMessage decodes a node-emitted JSON body into the
// wire-shape record matching kind. It first unmarshals into a generic
// map so heterogeneous/polymorphic payloads (a bare array vs. an
// object, depending on endpoint) can be normalized before the strict,
// unknown-field-rejecting mapstructure decode runs.
func DecodeCoreNodeMessage(body []byte, kind MessageKind) (any, error) {
	var generic any
	if err := json.Unmarshal(body, &generic); err != nil {
		return nil, ingesterr.New(ingesterr.KindDecode, fmt.Errorf("unmarshal message body: %w", err))
	}

	out, err := newMessageFor(kind)
	if err != nil {
		return nil, err
	}

	generic = wrapBareArray(kind, generic)

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
		TagName:     "mapstructure",
	})
	if err != nil {
		return nil, ingesterr.New(ingesterr.KindDecode, fmt.Errorf("build decoder: %w", err))
	}
	if err := dec.Decode(generic); err != nil {
		return nil, ingesterr.New(ingesterr.KindDecode, fmt.Errorf("%w: decode %s message: %w", ingesterr.ErrUnknownMessage, kind, err))
	}
	return out, nil
}

func newMessageFor(kind MessageKind) (any, error) {
	switch kind {
	case MessageBlock:
		return &BlockMessage{}, nil
	case MessageMicroblocks:
		return &MicroblocksMessage{}, nil
	case MessageBurnBlock:
		return &BurnBlockMessage{}, nil
	case MessageMempoolNew:
		return &MempoolNewMessage{}, nil
	case MessageMempoolDrop:
		return &MempoolDropMessage{}, nil
	case MessageAttachments:
		return &AttachmentsMessage{}, nil
	default:
		return nil, ingesterr.New(ingesterr.KindDecode, fmt.Errorf("%w: %s", ingesterr.ErrUnknownMessage, kind))
	}
}

// wrapBareArray re-homes the two endpoints whose request body is a
// bare JSON array (not an object) under the single field their
// wire-shape struct expects, so the same mapstructure path handles
// every endpoint uniformly.
func wrapBareArray(kind MessageKind, generic any) any {
	switch kind {
	case MessageMempoolNew:
		if _, ok := generic.([]any); ok {
			return map[string]any{"raw_txs": generic}
		}
	case MessageAttachments:
		if _, ok := generic.([]any); ok {
			return map[string]any{"attachments": generic}
		}
	}
	return generic
}
