// Package bns extracts name-system records (BNS names, namespaces,
// and zonefile attachments) from decoded contract-log values and
// attachment metadata emitted by the BNS contract.
package bns

// ContractMainnet and ContractTestnet are the well-known BNS contract
// identifiers on each network. A contract-log event is only a
// candidate name/namespace record if its contract_identifier matches
// one of these.
const (
	ContractMainnet = "SP000000000000000000002Q6VF78.bns"
	ContractTestnet = "ST000000000000000000002AMW42H.bns"
)

// recognized log topics. Any topic outside this set is ignored, not
// an error.
const (
	topicNameRegister    = "name-register"
	topicNameUpdate      = "name-update"
	topicNameTransfer    = "name-transfer"
	topicNameRenewal     = "name-renewal"
	topicNameRevoke      = "name-revoke"
	topicNamespaceReady  = "namespace-ready"
	topicNamespaceReveal = "namespace-reveal"
)

// IsBNSContract reports whether contractID names a known BNS contract
// on either network.
func IsBNSContract(contractID string) bool {
	return contractID == ContractMainnet || contractID == ContractTestnet
}

// LogContext carries the transaction-scoped fields a name/namespace
// record inherits from the log event that produced it.
type LogContext struct {
	TxID           string
	TxIndex        uint32
	BlockHeight    uint32
	IndexBlockHash string
	Canonical      bool
}
