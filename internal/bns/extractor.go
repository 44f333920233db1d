package bns

import (
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/chainwatch/event-ingest/internal/decode"
	"github.com/chainwatch/event-ingest/internal/ingesterr"
	"github.com/chainwatch/event-ingest/internal/model"
)

// clarityCacheSize bounds the decode cache to the handful of
// duplicate attachment/log payloads that arrive when a microblock is
// later re-confirmed inside its anchor block; it is not meant to
// cache across the lifetime of the process.
const clarityCacheSize = 256

// Extractor decodes BNS contract-log values and attachment metadata
// into name-system records. It memoizes DecodeClarityValue results
// across the handful of duplicate payloads a single block batch can
// contain, the same "decode once, reuse across the batch" shape the
// UTXO ingester uses to cache resolved transaction outputs.
type Extractor struct {
	cache *lru.Cache
}

// NewExtractor constructs an Extractor with its own decode cache.
func NewExtractor() (*Extractor, error) {
	cache, err := lru.New(clarityCacheSize)
	if err != nil {
		return nil, fmt.Errorf("construct clarity value cache: %w", err)
	}
	return &Extractor{cache: cache}, nil
}

func (x *Extractor) decodeCached(raw []byte) (decode.ClarityValue, error) {
	key := hex.EncodeToString(raw)
	if v, ok := x.cache.Get(key); ok {
		return v.(decode.ClarityValue), nil
	}
	v, err := decode.DecodeClarityValue(raw)
	if err != nil {
		return decode.ClarityValue{}, err
	}
	x.cache.Add(key, v)
	return v, nil
}

// ExtractFromLog decodes a contract-log's raw value and, if topic is
// one of the seven recognized BNS topics, produces the corresponding
// name or namespace record. Unrecognized topics, and logs from
// non-BNS contracts, return (nil, nil, nil) rather than an error.
func (x *Extractor) ExtractFromLog(contractID, topic string, rawValue []byte, ctx LogContext) (*model.BnsName, *model.BnsNamespace, error) {
	if !IsBNSContract(contractID) {
		return nil, nil, nil
	}

	switch topic {
	case topicNameRegister, topicNameUpdate, topicNameTransfer, topicNameRenewal, topicNameRevoke:
	case topicNamespaceReady, topicNamespaceReveal:
	default:
		return nil, nil, nil
	}

	value, err := x.decodeCached(rawValue)
	if err != nil {
		return nil, nil, err
	}
	fields, ok := value.AsTuple()
	if !ok {
		return nil, nil, ingesterr.New(ingesterr.KindDecode, fmt.Errorf("%w: bns log value is not a tuple", ingesterr.ErrClarityValue))
	}

	switch topic {
	case topicNameRegister, topicNameUpdate, topicNameTransfer, topicNameRenewal, topicNameRevoke:
		name, err := extractName(fields, topic, ctx)
		if err != nil {
			return nil, nil, err
		}
		return name, nil, nil
	case topicNamespaceReady, topicNamespaceReveal:
		ns, err := extractNamespace(fields, topic, ctx)
		if err != nil {
			return nil, nil, err
		}
		return nil, ns, nil
	default:
		return nil, nil, nil
	}
}

func extractName(fields map[string]decode.ClarityValue, topic string, ctx LogContext) (*model.BnsName, error) {
	name, _ := tupleString(fields, "name")
	namespace, _ := tupleString(fields, "namespace")
	address, _ := tupleString(fields, "owner")
	zonefile, _ := tupleBuffer(fields, "zonefile")
	zonefileHash, _ := tupleString(fields, "zonefile-hash")

	return &model.BnsName{
		Name:           name,
		Namespace:      namespace,
		Address:        address,
		Zonefile:       string(zonefile),
		ZonefileHash:   zonefileHash,
		TxID:           ctx.TxID,
		TxIndex:        ctx.TxIndex,
		BlockHeight:    ctx.BlockHeight,
		IndexBlockHash: ctx.IndexBlockHash,
		Canonical:      ctx.Canonical,
		Expired:        topic == topicNameRevoke,
	}, nil
}

func extractNamespace(fields map[string]decode.ClarityValue, topic string, ctx LogContext) (*model.BnsNamespace, error) {
	namespace, _ := tupleString(fields, "namespace")
	address, _ := tupleString(fields, "owner")
	importer, _ := tupleString(fields, "namespace-importer")
	lifetime, _ := tupleUint32(fields, "lifetime")

	return &model.BnsNamespace{
		Namespace:         namespace,
		Address:           address,
		Lifetime:          lifetime,
		Revealed:          topic == topicNamespaceReveal,
		Ready:             topic == topicNamespaceReady,
		Launched:          topic == topicNamespaceReady,
		TxID:              ctx.TxID,
		TxIndex:           ctx.TxIndex,
		BlockHeight:       ctx.BlockHeight,
		IndexBlockHash:    ctx.IndexBlockHash,
		Canonical:         ctx.Canonical,
		NamespaceImporter: importer,
	}, nil
}

// ExtractRenewalFallback implements the no-log renewal edge case: a
// name-renewal contract call can settle without emitting a
// name-renewal log when the renewal doesn't change the name's
// zonefile. It triggers only when the call targets name-renewal on a
// BNS contract and no event in the transaction already carries that
// topic.
func (x *Extractor) ExtractRenewalFallback(contractID string, call model.ContractCallPayload, events []model.Event, ctx LogContext) (*model.BnsName, bool) {
	if !IsBNSContract(contractID) || call.FunctionName != "name-renewal" {
		return nil, false
	}
	for _, ev := range events {
		if ev.Kind != model.EventSmartContractLog {
			continue
		}
		if ev.SmartContractLog.Topic == topicNameRenewal {
			return nil, false
		}
	}

	if len(call.FunctionArgs) < 2 {
		return nil, false
	}
	namespace, err := decodeArgString(call.FunctionArgs[0])
	if err != nil {
		return nil, false
	}
	name, err := decodeArgString(call.FunctionArgs[1])
	if err != nil {
		return nil, false
	}

	return &model.BnsName{
		Name:           name,
		Namespace:      namespace,
		TxID:           ctx.TxID,
		TxIndex:        ctx.TxIndex,
		BlockHeight:    ctx.BlockHeight,
		IndexBlockHash: ctx.IndexBlockHash,
		Canonical:      ctx.Canonical,
	}, true
}

func decodeArgString(raw []byte) (string, error) {
	v, err := decode.DecodeClarityValue(raw)
	if err != nil {
		return "", err
	}
	if s, ok := v.AsString(); ok {
		return s, nil
	}
	if b, ok := v.AsBuffer(); ok {
		return string(b), nil
	}
	return "", fmt.Errorf("argument is not a string or buffer value")
}

// DecodeAttachmentMetadata decodes an attachment's metadata tuple,
// returning the op (e.g. "name-update") and the name/namespace it
// targets.
func (x *Extractor) DecodeAttachmentMetadata(raw []byte) (op, name, namespace string, err error) {
	value, err := x.decodeCached(raw)
	if err != nil {
		return "", "", "", err
	}
	fields, ok := value.AsTuple()
	if !ok {
		return "", "", "", ingesterr.New(ingesterr.KindDecode, fmt.Errorf("%w: attachment metadata is not a tuple", ingesterr.ErrClarityValue))
	}
	op, _ = tupleString(fields, "op")
	name, _ = tupleString(fields, "name")
	namespace, _ = tupleString(fields, "namespace")
	return op, name, namespace, nil
}

// PairZonefile joins decoded attachment metadata with the zonefile
// payload and hash delivered alongside it on the wire.
func (x *Extractor) PairZonefile(metaRaw []byte, zonefileHex, zonefileHash string, ctx LogContext) (model.Attachment, error) {
	op, name, namespace, err := x.DecodeAttachmentMetadata(metaRaw)
	if err != nil {
		return model.Attachment{}, err
	}
	return model.Attachment{
		Op:             op,
		Name:           name,
		Namespace:      namespace,
		ZonefileHash:   zonefileHash,
		ZonefileHex:    zonefileHex,
		TxID:           ctx.TxID,
		IndexBlockHash: ctx.IndexBlockHash,
		BlockHeight:    ctx.BlockHeight,
	}, nil
}

func tupleString(fields map[string]decode.ClarityValue, key string) (string, bool) {
	v, ok := fields[key]
	if !ok {
		return "", false
	}
	if s, ok := v.AsString(); ok {
		return s, true
	}
	if v.Type == decode.ClarityPrincipal {
		return v.Principal, true
	}
	if b, ok := v.AsBuffer(); ok {
		return string(b), true
	}
	return "", false
}

func tupleBuffer(fields map[string]decode.ClarityValue, key string) ([]byte, bool) {
	v, ok := fields[key]
	if !ok {
		return nil, false
	}
	return v.AsBuffer()
}

func tupleUint32(fields map[string]decode.ClarityValue, key string) (uint32, bool) {
	v, ok := fields[key]
	if !ok || v.Type != decode.ClarityUInt || v.UInt == nil {
		return 0, false
	}
	return uint32(v.UInt.Uint64()), true
}
