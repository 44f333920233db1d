package bns

import (
	"encoding/binary"
	"testing"

	"github.com/chainwatch/event-ingest/internal/model"
)

// The wire tags mirrored here are internal to internal/decode; the
// test builds raw Clarity tuple bytes by hand to avoid depending on
// that package's unexported encoder (there isn't one — only a
// decoder exists, since the core never emits Clarity values itself).
const (
	wireTagBuffer      = 0x02
	wireTagTuple       = 0x0c
	wireTagStringASCII = 0x0d
)

func shortString(s string) []byte {
	return append([]byte{byte(len(s))}, s...)
}

func asciiValue(s string) []byte {
	b := []byte{wireTagStringASCII}
	b = binary.BigEndian.AppendUint32(b, uint32(len(s)))
	return append(b, s...)
}

func bufferValue(v []byte) []byte {
	b := []byte{wireTagBuffer}
	b = binary.BigEndian.AppendUint32(b, uint32(len(v)))
	return append(b, v...)
}

// buildTuple encodes field pairs (already-encoded key+value byte
// strings) into a Clarity tuple value. Keys are written in map
// iteration order; the decoder reads tuple fields by name, so the
// order does not matter.
func buildTuple(fields map[string][]byte) []byte {
	out := []byte{wireTagTuple}
	out = binary.BigEndian.AppendUint32(out, uint32(len(fields)))
	for k, v := range fields {
		out = append(out, shortString(k)...)
		out = append(out, v...)
	}
	return out
}

func TestExtractFromLog_NameRegister(t *testing.T) {
	x, err := NewExtractor()
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}

	raw := buildTuple(map[string][]byte{
		"name":          asciiValue("alice"),
		"namespace":     asciiValue("btc"),
		"owner":         asciiValue("SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7"),
		"zonefile-hash": asciiValue("deadbeef"),
		"zonefile":      bufferValue([]byte("zonefile-contents")),
	})

	ctx := LogContext{TxID: "tx1", TxIndex: 3, BlockHeight: 100, IndexBlockHash: "0xabc", Canonical: true}
	name, ns, err := x.ExtractFromLog(ContractMainnet, "name-register", raw, ctx)
	if err != nil {
		t.Fatalf("ExtractFromLog: %v", err)
	}
	if ns != nil {
		t.Fatalf("expected no namespace record, got %+v", ns)
	}
	if name == nil {
		t.Fatal("expected a name record")
	}
	if name.Name != "alice" || name.Namespace != "btc" {
		t.Fatalf("unexpected name/namespace: %q/%q", name.Name, name.Namespace)
	}
	if name.Expired {
		t.Fatal("name-register must not mark the name expired")
	}
	if name.TxID != "tx1" || name.BlockHeight != 100 {
		t.Fatalf("context fields not threaded through: %+v", name)
	}
}

func TestExtractFromLog_NameRevokeMarksExpired(t *testing.T) {
	x, err := NewExtractor()
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	raw := buildTuple(map[string][]byte{
		"name":      asciiValue("bob"),
		"namespace": asciiValue("id"),
	})
	name, _, err := x.ExtractFromLog(ContractMainnet, "name-revoke", raw, LogContext{})
	if err != nil {
		t.Fatalf("ExtractFromLog: %v", err)
	}
	if name == nil || !name.Expired {
		t.Fatalf("expected an expired name record, got %+v", name)
	}
}

func TestExtractFromLog_IgnoresNonBNSContract(t *testing.T) {
	x, err := NewExtractor()
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	raw := buildTuple(map[string][]byte{"name": asciiValue("alice")})
	name, ns, err := x.ExtractFromLog("SP000000000000000000002Q6VF78.some-other-contract", "name-register", raw, LogContext{})
	if err != nil || name != nil || ns != nil {
		t.Fatalf("expected a no-op for a non-BNS contract, got name=%v ns=%v err=%v", name, ns, err)
	}
}

func TestExtractFromLog_IgnoresUnrecognizedTopic(t *testing.T) {
	x, err := NewExtractor()
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	raw := buildTuple(map[string][]byte{"name": asciiValue("alice")})
	name, ns, err := x.ExtractFromLog(ContractMainnet, "not-a-real-topic", raw, LogContext{})
	if err != nil || name != nil || ns != nil {
		t.Fatalf("expected a no-op for an unrecognized topic, got name=%v ns=%v err=%v", name, ns, err)
	}
}

// A name-renewal contract call that settles without emitting a
// name-renewal log still produces a name record via the fallback.
func TestExtractRenewalFallback_NoLogProducesRecord(t *testing.T) {
	x, err := NewExtractor()
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}

	call := model.ContractCallPayload{
		ContractID:   ContractMainnet,
		FunctionName: "name-renewal",
		FunctionArgs: [][]byte{asciiValue("btc"), asciiValue("alice")},
	}

	name, ok := x.ExtractRenewalFallback(call.ContractID, call, nil, LogContext{TxID: "tx1"})
	if !ok || name == nil {
		t.Fatal("expected the fallback to produce a name record")
	}
	if name.Namespace != "btc" || name.Name != "alice" {
		t.Fatalf("unexpected fallback record: %+v", name)
	}
}

func TestExtractRenewalFallback_SkipsWhenLogAlreadySeen(t *testing.T) {
	x, err := NewExtractor()
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	call := model.ContractCallPayload{
		ContractID:   ContractMainnet,
		FunctionName: "name-renewal",
		FunctionArgs: [][]byte{asciiValue("btc"), asciiValue("alice")},
	}
	events := []model.Event{{
		Kind: model.EventSmartContractLog,
		SmartContractLog: &model.SmartContractLogEvent{
			ContractIdentifier: ContractMainnet,
			Topic:              "name-renewal",
		},
	}}

	_, ok := x.ExtractRenewalFallback(call.ContractID, call, events, LogContext{})
	if ok {
		t.Fatal("fallback must not fire when a name-renewal log is already present")
	}
}

func TestExtractRenewalFallback_SkipsNonRenewalCall(t *testing.T) {
	x, err := NewExtractor()
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	call := model.ContractCallPayload{ContractID: ContractMainnet, FunctionName: "name-register"}
	_, ok := x.ExtractRenewalFallback(call.ContractID, call, nil, LogContext{})
	if ok {
		t.Fatal("fallback must only trigger for name-renewal calls")
	}
}
