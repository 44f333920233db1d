package decode

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/chainwatch/event-ingest/internal/ingesterr"
	"github.com/chainwatch/event-ingest/internal/model"
	"github.com/chainwatch/event-ingest/pkg/safe"
	"github.com/shopspring/decimal"
)

const (
	authTypeStandard  = 0x04
	authTypeSponsored = 0x05
)

const (
	payloadTagTokenTransfer          = 0x00
	payloadTagContractCall           = 0x01
	payloadTagSmartContract          = 0x02
	payloadTagPoisonMicroblock       = 0x03
	payloadTagCoinbase               = 0x04
	payloadTagVersionedSmartContract = 0x05
)

// memoLength is the fixed width of a token-transfer memo field.
const memoLength = 34

// DecodeTransaction parses raw transaction bytes into a structured
// Transaction. A truncated or malformed input returns a KindDecode
// error wrapping ErrTransaction; callers must abort the entire
// message on failure rather than process a partial transaction.
func DecodeTransaction(raw []byte) (model.Transaction, error) {
	c := newCursor(raw)

	tx, err := decodeTransaction(c)
	if err != nil {
		return model.Transaction{}, ingesterr.New(ingesterr.KindDecode, fmt.Errorf("%w: %w", ingesterr.ErrTransaction, err))
	}

	tx.RawTx = append([]byte(nil), raw...)
	tx.TxID = deriveTxID(raw)
	return tx, nil
}

func decodeTransaction(c *cursor) (model.Transaction, error) {
	var tx model.Transaction

	if _, err := c.u8(); err != nil { // version
		return tx, fmt.Errorf("read version: %w", err)
	}
	if _, err := c.u32(); err != nil { // chain id
		return tx, fmt.Errorf("read chain id: %w", err)
	}

	authType, err := c.u8()
	if err != nil {
		return tx, fmt.Errorf("read auth type: %w", err)
	}

	origin, originHashMode, nonce, fee, err := decodeSpendingCondition(c)
	if err != nil {
		return tx, fmt.Errorf("read origin spending condition: %w", err)
	}
	tx.SenderAddress = origin
	tx.OriginHashMode = originHashMode
	tx.Nonce = nonce
	tx.Fee = decimal.NewFromInt(int64(fee))

	switch authType {
	case authTypeStandard:
	case authTypeSponsored:
		sponsor, _, _, _, err := decodeSpendingCondition(c)
		if err != nil {
			return tx, fmt.Errorf("read sponsor spending condition: %w", err)
		}
		tx.SponsorAddress = &sponsor
	default:
		return tx, fmt.Errorf("unrecognized auth type 0x%02x", authType)
	}

	anchorMode, err := c.u8()
	if err != nil {
		return tx, fmt.Errorf("read anchor mode: %w", err)
	}
	tx.AnchorMode = anchorMode

	pcMode, err := c.u8()
	if err != nil {
		return tx, fmt.Errorf("read post condition mode: %w", err)
	}
	tx.PostConditionMode = pcMode

	postConditions, err := c.lenPrefixedBytes()
	if err != nil {
		return tx, fmt.Errorf("read post conditions: %w", err)
	}
	tx.PostConditions = postConditions

	payload, kind, err := decodePayload(c)
	if err != nil {
		return tx, fmt.Errorf("read payload: %w", err)
	}
	tx.Payload = payload
	tx.TypeID = kind

	return tx, nil
}

// decodeSpendingCondition reads one authorization block (hash mode,
// 20-byte signer hash, nonce, fee, key encoding, 65-byte signature) and
// returns the c32-style address it authorizes, the hash mode, nonce,
// and fee.
func decodeSpendingCondition(c *cursor) (address string, hashMode uint8, nonce uint64, fee uint64, err error) {
	hashMode, err = c.u8()
	if err != nil {
		return "", 0, 0, 0, err
	}
	signer, err := c.take(20)
	if err != nil {
		return "", 0, 0, 0, err
	}
	nonce, err = c.u64()
	if err != nil {
		return "", 0, 0, 0, err
	}
	fee, err = c.u64()
	if err != nil {
		return "", 0, 0, 0, err
	}
	if _, err = c.u8(); err != nil { // key encoding
		return "", 0, 0, 0, err
	}
	if _, err = c.take(65); err != nil { // signature
		return "", 0, 0, 0, err
	}
	return fmt.Sprintf("%02x%x", hashMode, signer), hashMode, nonce, fee, nil
}

func decodePayload(c *cursor) (model.TxPayload, model.TxPayloadKind, error) {
	tag, err := c.u8()
	if err != nil {
		return model.TxPayload{}, "", err
	}

	switch tag {
	case payloadTagTokenTransfer:
		recipient, err := decodePrincipalAddress(c)
		if err != nil {
			return model.TxPayload{}, "", err
		}
		amount, err := c.u128()
		if err != nil {
			return model.TxPayload{}, "", err
		}
		memo, err := c.take(memoLength)
		if err != nil {
			return model.TxPayload{}, "", err
		}
		p := &model.TokenTransferPayload{
			RecipientAddress: recipient,
			Amount:           decimal.NewFromBigInt(amount, 0),
			Memo:             append([]byte(nil), memo...),
		}
		return model.TxPayload{Kind: model.TxPayloadTokenTransfer, TokenTransfer: p}, model.TxPayloadTokenTransfer, nil

	case payloadTagContractCall:
		contractAddr, err := decodePrincipalAddress(c)
		if err != nil {
			return model.TxPayload{}, "", err
		}
		contractName, err := decodeShortString(c)
		if err != nil {
			return model.TxPayload{}, "", err
		}
		functionName, err := decodeShortString(c)
		if err != nil {
			return model.TxPayload{}, "", err
		}
		argCount, err := c.u32()
		if err != nil {
			return model.TxPayload{}, "", err
		}
		args := make([][]byte, 0, argCount)
		for i := uint32(0); i < argCount; i++ {
			raw, err := c.lenPrefixedBytes()
			if err != nil {
				return model.TxPayload{}, "", err
			}
			args = append(args, raw)
		}
		p := &model.ContractCallPayload{
			ContractID:   contractAddr + "." + contractName,
			FunctionName: functionName,
			FunctionArgs: args,
		}
		return model.TxPayload{Kind: model.TxPayloadContractCall, ContractCall: p}, model.TxPayloadContractCall, nil

	case payloadTagSmartContract, payloadTagVersionedSmartContract:
		var version *uint8
		if tag == payloadTagVersionedSmartContract {
			v, err := c.u8()
			if err != nil {
				return model.TxPayload{}, "", err
			}
			version = &v
		}
		name, err := decodeShortString(c)
		if err != nil {
			return model.TxPayload{}, "", err
		}
		src, err := c.lenPrefixedBytes()
		if err != nil {
			return model.TxPayload{}, "", err
		}
		p := &model.SmartContractPayload{
			ContractName:   name,
			SourceCode:     string(src),
			ClarityVersion: version,
		}
		if tag == payloadTagVersionedSmartContract {
			return model.TxPayload{Kind: model.TxPayloadVersionedSmartContract, VersionedSmartContract: p}, model.TxPayloadVersionedSmartContract, nil
		}
		return model.TxPayload{Kind: model.TxPayloadSmartContract, SmartContract: p}, model.TxPayloadSmartContract, nil

	case payloadTagPoisonMicroblock:
		h1, err := c.lenPrefixedBytes()
		if err != nil {
			return model.TxPayload{}, "", err
		}
		h2, err := c.lenPrefixedBytes()
		if err != nil {
			return model.TxPayload{}, "", err
		}
		p := &model.PoisonMicroblockPayload{MicroblockHeader1: h1, MicroblockHeader2: h2}
		return model.TxPayload{Kind: model.TxPayloadPoisonMicroblock, PoisonMicroblock: p}, model.TxPayloadPoisonMicroblock, nil

	case payloadTagCoinbase:
		raw, err := c.take(32)
		if err != nil {
			return model.TxPayload{}, "", err
		}
		hasAlt, err := c.u8()
		if err != nil {
			return model.TxPayload{}, "", err
		}
		p := &model.CoinbasePayload{}
		copy(p.Payload[:], raw)
		if hasAlt != 0 {
			alt, err := decodePrincipalAddress(c)
			if err != nil {
				return model.TxPayload{}, "", err
			}
			p.AltRecipient = &alt
		}
		return model.TxPayload{Kind: model.TxPayloadCoinbase, Coinbase: p}, model.TxPayloadCoinbase, nil

	default:
		return model.TxPayload{}, "", fmt.Errorf("unrecognized payload tag 0x%02x", tag)
	}
}

// deriveTxID hashes the raw transaction bytes to produce a stable
// identifier. Address/ID formatting beyond this (c32check, bech32, ...)
// belongs to the hex/crypto helpers the core treats as an external
// collaborator; this is the one hash the decoder must compute itself
// to have something to key the transaction by before it reaches the
// store.
func deriveTxID(raw []byte) string {
	sum := sha256.Sum256(raw)
	return "0x" + hex.EncodeToString(sum[:])
}

// txIndexFromSafe narrows a JSON-decoded int index into the uint32 the
// model expects, reusing the teacher's overflow-checked conversion
// helper instead of a bare cast.
func txIndexFromSafe(v int) (uint32, error) {
	return safe.Uint32(v)
}
