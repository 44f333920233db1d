package model

// MempoolTxStatus mirrors the execution/pending status of a mempool
// transaction shell.
type MempoolTxStatus string

const (
	MempoolTxPending MempoolTxStatus = "pending"
	MempoolTxDropped MempoolTxStatus = "dropped"
)

// MempoolDropStatus is the closed taxonomy of drop reasons the store
// recognizes. ParseDropReason maps the node's free-form reason string
// onto this set.
type MempoolDropStatus string

const (
	DropReplaceByFee        MempoolDropStatus = "ReplaceByFee"
	DropReplaceAcrossFork   MempoolDropStatus = "ReplaceAcrossFork"
	DropTooExpensive        MempoolDropStatus = "TooExpensive"
	DropStaleGarbageCollect MempoolDropStatus = "StaleGarbageCollect"
	DropProblematic         MempoolDropStatus = "Problematic"
	DropGeneric             MempoolDropStatus = "Dropped"
)

// MempoolTx is a Transaction shell held in the mempool prior to
// confirmation.
type MempoolTx struct {
	Transaction Transaction
	ReceiptDate int64
	Pruned      bool
	Status      MempoolTxStatus
}
