package model

import "github.com/shopspring/decimal"

// TxStatus mirrors the node's reported execution outcome for a transaction.
type TxStatus string

const (
	TxStatusSuccess        TxStatus = "success"
	TxStatusAbortByResponse TxStatus = "abort_by_response"
	TxStatusAbortByPostCondition TxStatus = "abort_by_post_condition"
)

// TxPayloadKind discriminates the TxPayload sum type.
type TxPayloadKind string

const (
	TxPayloadTokenTransfer        TxPayloadKind = "token_transfer"
	TxPayloadContractCall         TxPayloadKind = "contract_call"
	TxPayloadSmartContract        TxPayloadKind = "smart_contract"
	TxPayloadPoisonMicroblock     TxPayloadKind = "poison_microblock"
	TxPayloadCoinbase             TxPayloadKind = "coinbase"
	TxPayloadVersionedSmartContract TxPayloadKind = "versioned_smart_contract"
)

// TxPayload is the closed, tagged-variant payload carried by a
// transaction. Exactly one of the typed fields is populated,
// matching Kind.
type TxPayload struct {
	Kind TxPayloadKind

	TokenTransfer        *TokenTransferPayload
	ContractCall         *ContractCallPayload
	SmartContract         *SmartContractPayload
	PoisonMicroblock       *PoisonMicroblockPayload
	Coinbase                *CoinbasePayload
	VersionedSmartContract *SmartContractPayload
}

// TokenTransferPayload is a STX transfer.
type TokenTransferPayload struct {
	RecipientAddress string
	Amount           decimal.Decimal
	Memo             []byte
}

// ContractCallPayload invokes a public function on a deployed contract.
type ContractCallPayload struct {
	ContractID   string
	FunctionName string
	FunctionArgs [][]byte
}

// SmartContractPayload deploys a contract (versioned or not).
type SmartContractPayload struct {
	ContractName string
	SourceCode   string
	ClarityVersion *uint8
}

// PoisonMicroblockPayload reports two conflicting microblock headers at
// the same sequence number.
type PoisonMicroblockPayload struct {
	MicroblockHeader1 []byte
	MicroblockHeader2 []byte
}

// CoinbasePayload is the miner's reward-claiming transaction.
type CoinbasePayload struct {
	Payload    [32]byte
	AltRecipient *string
}

// CoreTxResult carries the Clarity VM execution status and return value.
type CoreTxResult struct {
	Status TxStatus
	Result string
}

// Transaction is a decoded, normalized transaction belonging to a block
// or microblock.
type Transaction struct {
	TxID                string
	TxIndex             uint32
	Nonce               uint64
	TypeID              TxPayloadKind
	SenderAddress       string
	SponsorAddress      *string
	Fee                 decimal.Decimal
	AnchorMode          uint8
	PostConditionMode   uint8
	PostConditions      []byte
	RawTx                []byte
	Payload              TxPayload
	MicroblockHash       *string
	MicroblockSequence   *uint16
	EventCount           uint32
	Canonical             bool
	OriginHashMode        uint8
	CoreTx                CoreTxResult
	ExecutionCost          ExecutionCost
	ContractABI            *string
	BlockHeight             uint32
	IndexBlockHash          string
}
