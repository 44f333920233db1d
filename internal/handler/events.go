package handler

import (
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/chainwatch/event-ingest/internal/bns"
	"github.com/chainwatch/event-ingest/internal/decode"
	"github.com/chainwatch/event-ingest/internal/ingesterr"
	"github.com/chainwatch/event-ingest/internal/model"
	"github.com/chainwatch/event-ingest/pkg/safe"
)

// ReconstructEvents implements the scatter/merge/renumber steps
// common to the block and microblock handlers:
//  1. drop events with committed=false,
//  2. scatter into the owning transaction's builder, keyed by txid,
//  3. per transaction, stable-sort by the original event_index,
//  4. renumber 0..N-1 and set the transaction's event count.
//
// A raw event naming a txid absent from builders is fatal to the
// whole message: ErrReferenceMissing, never a silently-dropped event.
func ReconstructEvents(raw []decode.RawTxEvent, builders map[string]*txBuilder) error {
	for _, r := range raw {
		if !r.Committed {
			continue
		}
		b, ok := builders[r.TxID]
		if !ok {
			return ingesterr.New(ingesterr.KindReferenceMissing, fmt.Errorf("event %d references unknown tx %s", r.EventIndex, r.TxID))
		}
		ev, err := buildEvent(r)
		if err != nil {
			return err
		}
		b.events = append(b.events, ev)
	}

	for _, b := range builders {
		sort.SliceStable(b.events, func(i, j int) bool {
			return b.events[i].Common().EventIndex < b.events[j].Common().EventIndex
		})
		for i := range b.events {
			c := b.events[i].Common()
			c.EventIndex = uint32(i)
			c.TxID = b.tx.TxID
			c.TxIndex = b.tx.TxIndex
			c.BlockHeight = b.tx.BlockHeight
			c.Canonical = b.tx.Canonical
			b.events[i] = b.events[i].WithCommon(c)
		}
		count, err := safe.Uint32(len(b.events))
		if err != nil {
			return fmt.Errorf("tx %s: %w", b.tx.TxID, err)
		}
		b.tx.EventCount = count
	}
	return nil
}

// ExtractBNSRecords walks every smart-contract-log event produced by
// ReconstructEvents and the no-log name-renewal fallback for every
// contract-call transaction, returning the BNS records to attach to
// the update bundle.
func ExtractBNSRecords(x *bns.Extractor, builders map[string]*txBuilder, blockHeight uint32, indexBlockHash string) ([]model.BnsName, []model.BnsNamespace, error) {
	var names []model.BnsName
	var namespaces []model.BnsNamespace

	for _, b := range builders {
		ctx := bns.LogContext{
			TxID:           b.tx.TxID,
			TxIndex:        b.tx.TxIndex,
			BlockHeight:    blockHeight,
			IndexBlockHash: indexBlockHash,
			Canonical:      b.tx.Canonical,
		}

		sawRenewalLog := false
		for _, ev := range b.events {
			if ev.Kind != model.EventSmartContractLog {
				continue
			}
			log := ev.SmartContractLog
			name, ns, err := x.ExtractFromLog(log.ContractIdentifier, log.Topic, log.Value, ctx)
			if err != nil {
				return nil, nil, err
			}
			if name != nil {
				names = append(names, *name)
			}
			if ns != nil {
				namespaces = append(namespaces, *ns)
			}
			if log.Topic == "name-renewal" {
				sawRenewalLog = true
			}
		}

		if b.tx.TypeID != model.TxPayloadContractCall || b.tx.Payload.ContractCall == nil {
			continue
		}
		if sawRenewalLog {
			continue
		}
		call := *b.tx.Payload.ContractCall
		if fallback, ok := x.ExtractRenewalFallback(call.ContractID, call, b.events, ctx); ok {
			names = append(names, *fallback)
		}
	}
	return names, namespaces, nil
}

// buildEvent decodes one wire-shape event into its typed model
// variant, selected by Type.
func buildEvent(r decode.RawTxEvent) (model.Event, error) {
	common := model.EventCommon{EventIndex: uint32(r.EventIndex), TxID: r.TxID, Canonical: true}

	switch r.Type {
	case "smart_contract_log_event":
		if r.ContractEvent == nil {
			return model.Event{}, fmt.Errorf("smart_contract_log_event missing contract_event payload")
		}
		value, err := hex.DecodeString(trimHexPrefix(r.ContractEvent.RawValue))
		if err != nil {
			return model.Event{}, ingesterr.New(ingesterr.KindDecode, fmt.Errorf("decode contract log raw_value: %w", err))
		}
		return model.Event{
			Kind: model.EventSmartContractLog,
			SmartContractLog: &model.SmartContractLogEvent{
				EventCommon:        common,
				ContractIdentifier: r.ContractEvent.ContractIdentifier,
				Topic:              r.ContractEvent.Topic,
				Value:              value,
			},
		}, nil

	case "stx_lock_event":
		if r.STXLockEvent == nil {
			return model.Event{}, fmt.Errorf("stx_lock_event missing stx_lock_event payload")
		}
		amount, err := decimal.NewFromString(r.STXLockEvent.LockedAmount)
		if err != nil {
			return model.Event{}, ingesterr.New(ingesterr.KindDecode, fmt.Errorf("parse locked_amount: %w", err))
		}
		unlockHeight, err := safe.Uint32(r.STXLockEvent.UnlockHeight)
		if err != nil {
			return model.Event{}, ingesterr.New(ingesterr.KindDecode, err)
		}
		return model.Event{
			Kind: model.EventStxLock,
			StxLock: &model.StxLockEvent{
				EventCommon:   common,
				LockedAmount:  amount,
				UnlockHeight:  unlockHeight,
				LockedAddress: r.STXLockEvent.LockedAddress,
			},
		}, nil

	case "stx_asset_event":
		if r.STXAssetEvent == nil {
			return model.Event{}, fmt.Errorf("stx_asset_event missing stx_asset_event payload")
		}
		amount, err := decimal.NewFromString(r.STXAssetEvent.Amount)
		if err != nil {
			return model.Event{}, ingesterr.New(ingesterr.KindDecode, fmt.Errorf("parse amount: %w", err))
		}
		return model.Event{
			Kind: model.EventStxAsset,
			StxAsset: &model.StxAssetEvent{
				EventCommon: common,
				Sub:         parseAssetEventSub(r.STXAssetEvent.Type),
				Sender:      r.STXAssetEvent.Sender,
				Recipient:   r.STXAssetEvent.Recipient,
				Amount:      amount,
			},
		}, nil

	case "fungible_token_asset_event":
		if r.FungibleTokenAssetEvent == nil {
			return model.Event{}, fmt.Errorf("fungible_token_asset_event missing payload")
		}
		amount, err := decimal.NewFromString(r.FungibleTokenAssetEvent.Amount)
		if err != nil {
			return model.Event{}, ingesterr.New(ingesterr.KindDecode, fmt.Errorf("parse amount: %w", err))
		}
		return model.Event{
			Kind: model.EventFungibleTokenAsset,
			FungibleTokenAsset: &model.FungibleTokenAssetEvent{
				EventCommon:     common,
				Sub:             parseAssetEventSub(r.FungibleTokenAssetEvent.Type),
				Sender:          r.FungibleTokenAssetEvent.Sender,
				Recipient:       r.FungibleTokenAssetEvent.Recipient,
				Amount:          amount,
				AssetIdentifier: r.FungibleTokenAssetEvent.AssetIdentifier,
			},
		}, nil

	case "non_fungible_token_asset_event":
		if r.NonFungibleTokenAssetEvent == nil {
			return model.Event{}, fmt.Errorf("non_fungible_token_asset_event missing payload")
		}
		value, err := hex.DecodeString(trimHexPrefix(r.NonFungibleTokenAssetEvent.RawValue))
		if err != nil {
			return model.Event{}, ingesterr.New(ingesterr.KindDecode, fmt.Errorf("decode nft raw_value: %w", err))
		}
		return model.Event{
			Kind: model.EventNonFungibleTokenAsset,
			NonFungibleTokenAsset: &model.NonFungibleTokenAssetEvent{
				EventCommon:     common,
				Sub:             parseAssetEventSub(r.NonFungibleTokenAssetEvent.Type),
				Sender:          r.NonFungibleTokenAssetEvent.Sender,
				Recipient:       r.NonFungibleTokenAssetEvent.Recipient,
				Value:           value,
				AssetIdentifier: r.NonFungibleTokenAssetEvent.AssetIdentifier,
			},
		}, nil

	default:
		return model.Event{}, ingesterr.New(ingesterr.KindDecode, fmt.Errorf("%w: event type %q", ingesterr.ErrUnknownMessage, r.Type))
	}
}

func parseAssetEventSub(wire string) model.AssetEventSub {
	switch wire {
	case "mint":
		return model.AssetMint
	case "burn":
		return model.AssetBurn
	default:
		return model.AssetTransfer
	}
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
