package model

import "github.com/shopspring/decimal"

// EventKind discriminates the Event sum type.
type EventKind string

const (
	EventSmartContractLog   EventKind = "smart_contract_log"
	EventStxLock             EventKind = "stx_lock"
	EventStxAsset             EventKind = "stx_asset"
	EventFungibleTokenAsset    EventKind = "fungible_token_asset"
	EventNonFungibleTokenAsset EventKind = "non_fungible_token_asset"
)

// AssetEventSub discriminates the Transfer/Mint/Burn sub-variant shared
// by StxAsset, FungibleTokenAsset, and NonFungibleTokenAsset events.
type AssetEventSub string

const (
	AssetTransfer AssetEventSub = "transfer"
	AssetMint     AssetEventSub = "mint"
	AssetBurn     AssetEventSub = "burn"
)

// EventCommon carries the fields every event variant shares.
type EventCommon struct {
	EventIndex  uint32
	TxID        string
	TxIndex     uint32
	BlockHeight uint32
	Canonical   bool
}

// SmartContractLogEvent is an arbitrary contract-emitted log (print).
type SmartContractLogEvent struct {
	EventCommon
	ContractIdentifier string
	Topic               string
	Value                []byte
}

// StxLockEvent records STX locked for stacking.
type StxLockEvent struct {
	EventCommon
	LockedAmount   decimal.Decimal
	UnlockHeight   uint32
	LockedAddress string
}

// StxAssetEvent is a native STX transfer/mint/burn.
type StxAssetEvent struct {
	EventCommon
	Sub       AssetEventSub
	Sender    string
	Recipient string
	Amount    decimal.Decimal
}

// FungibleTokenAssetEvent is a SIP-010 fungible token transfer/mint/burn.
type FungibleTokenAssetEvent struct {
	EventCommon
	Sub              AssetEventSub
	Sender           string
	Recipient        string
	Amount           decimal.Decimal
	AssetIdentifier string
}

// NonFungibleTokenAssetEvent is a SIP-009 NFT transfer/mint/burn.
type NonFungibleTokenAssetEvent struct {
	EventCommon
	Sub              AssetEventSub
	Sender           string
	Recipient        string
	Value            []byte
	AssetIdentifier string
}

// Event is the closed, tagged-variant wrapper around the five event
// shapes above. Exactly one typed field is populated, matching Kind.
type Event struct {
	Kind EventKind

	SmartContractLog   *SmartContractLogEvent
	StxLock              *StxLockEvent
	StxAsset              *StxAssetEvent
	FungibleTokenAsset     *FungibleTokenAssetEvent
	NonFungibleTokenAsset *NonFungibleTokenAssetEvent
}

// Common returns the shared fields of whichever variant is populated.
func (e Event) Common() EventCommon {
	switch e.Kind {
	case EventSmartContractLog:
		return e.SmartContractLog.EventCommon
	case EventStxLock:
		return e.StxLock.EventCommon
	case EventStxAsset:
		return e.StxAsset.EventCommon
	case EventFungibleTokenAsset:
		return e.FungibleTokenAsset.EventCommon
	case EventNonFungibleTokenAsset:
		return e.NonFungibleTokenAsset.EventCommon
	default:
		return EventCommon{}
	}
}

// WithCommon returns a copy of the event with its shared fields replaced.
func (e Event) WithCommon(c EventCommon) Event {
	switch e.Kind {
	case EventSmartContractLog:
		v := *e.SmartContractLog
		v.EventCommon = c
		e.SmartContractLog = &v
	case EventStxLock:
		v := *e.StxLock
		v.EventCommon = c
		e.StxLock = &v
	case EventStxAsset:
		v := *e.StxAsset
		v.EventCommon = c
		e.StxAsset = &v
	case EventFungibleTokenAsset:
		v := *e.FungibleTokenAsset
		v.EventCommon = c
		e.FungibleTokenAsset = &v
	case EventNonFungibleTokenAsset:
		v := *e.NonFungibleTokenAsset
		v.EventCommon = c
		e.NonFungibleTokenAsset = &v
	}
	return e
}
