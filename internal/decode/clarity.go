package decode

import (
	"fmt"
	"math/big"

	"github.com/chainwatch/event-ingest/internal/ingesterr"
)

// ClarityType discriminates the recursive ClarityValue sum type.
type ClarityType uint8

const (
	ClarityInt ClarityType = iota
	ClarityUInt
	ClarityBool
	ClarityBuffer
	ClarityStringASCII
	ClarityStringUTF8
	ClarityPrincipal
	ClarityList
	ClarityTuple
	ClarityOptional
	ClarityResponse
)

// the on-wire type tags, matching the chain's tagged binary value
// format.
const (
	tagInt            = 0x00
	tagUInt           = 0x01
	tagBuffer         = 0x02
	tagBoolTrue       = 0x03
	tagBoolFalse      = 0x04
	tagPrincipalStd   = 0x05
	tagPrincipalContract = 0x06
	tagResponseOk     = 0x07
	tagResponseErr    = 0x08
	tagOptionalNone   = 0x09
	tagOptionalSome   = 0x0a
	tagList           = 0x0b
	tagTuple          = 0x0c
	tagStringASCII    = 0x0d
	tagStringUTF8     = 0x0e
)

// ClarityValue is a recursive, tagged representation of a decoded
// Clarity value. Exactly one field set is populated per Type.
type ClarityValue struct {
	Type ClarityType

	Int        *big.Int
	UInt       *big.Int
	Bool       bool
	Buffer     []byte
	StringVal  string
	Principal  string
	List       []ClarityValue
	Tuple      map[string]ClarityValue
	Optional   *ClarityValue // nil means none
	ResponseOK bool
	Response   *ClarityValue
}

// DecodeClarityValue parses the chain's tagged binary value format.
func DecodeClarityValue(raw []byte) (ClarityValue, error) {
	c := newCursor(raw)
	v, err := decodeClarityValue(c)
	if err != nil {
		return ClarityValue{}, ingesterr.New(ingesterr.KindDecode, fmt.Errorf("decode clarity value: %w", err))
	}
	return v, nil
}

func decodeClarityValue(c *cursor) (ClarityValue, error) {
	tag, err := c.u8()
	if err != nil {
		return ClarityValue{}, err
	}

	switch tag {
	case tagInt:
		n, err := c.i128()
		if err != nil {
			return ClarityValue{}, err
		}
		return ClarityValue{Type: ClarityInt, Int: n}, nil

	case tagUInt:
		n, err := c.u128()
		if err != nil {
			return ClarityValue{}, err
		}
		return ClarityValue{Type: ClarityUInt, UInt: n}, nil

	case tagBoolTrue:
		return ClarityValue{Type: ClarityBool, Bool: true}, nil

	case tagBoolFalse:
		return ClarityValue{Type: ClarityBool, Bool: false}, nil

	case tagBuffer:
		b, err := c.lenPrefixedBytes()
		if err != nil {
			return ClarityValue{}, err
		}
		return ClarityValue{Type: ClarityBuffer, Buffer: b}, nil

	case tagStringASCII:
		b, err := c.lenPrefixedBytes()
		if err != nil {
			return ClarityValue{}, err
		}
		return ClarityValue{Type: ClarityStringASCII, StringVal: string(b)}, nil

	case tagStringUTF8:
		b, err := c.lenPrefixedBytes()
		if err != nil {
			return ClarityValue{}, err
		}
		return ClarityValue{Type: ClarityStringUTF8, StringVal: string(b)}, nil

	case tagPrincipalStd:
		addr, err := decodePrincipalAddress(c)
		if err != nil {
			return ClarityValue{}, err
		}
		return ClarityValue{Type: ClarityPrincipal, Principal: addr}, nil

	case tagPrincipalContract:
		addr, err := decodePrincipalAddress(c)
		if err != nil {
			return ClarityValue{}, err
		}
		name, err := decodeShortString(c)
		if err != nil {
			return ClarityValue{}, err
		}
		return ClarityValue{Type: ClarityPrincipal, Principal: addr + "." + name}, nil

	case tagOptionalNone:
		return ClarityValue{Type: ClarityOptional, Optional: nil}, nil

	case tagOptionalSome:
		inner, err := decodeClarityValue(c)
		if err != nil {
			return ClarityValue{}, err
		}
		return ClarityValue{Type: ClarityOptional, Optional: &inner}, nil

	case tagResponseOk, tagResponseErr:
		inner, err := decodeClarityValue(c)
		if err != nil {
			return ClarityValue{}, err
		}
		return ClarityValue{Type: ClarityResponse, ResponseOK: tag == tagResponseOk, Response: &inner}, nil

	case tagList:
		n, err := c.u32()
		if err != nil {
			return ClarityValue{}, err
		}
		items := make([]ClarityValue, 0, n)
		for i := uint32(0); i < n; i++ {
			v, err := decodeClarityValue(c)
			if err != nil {
				return ClarityValue{}, err
			}
			items = append(items, v)
		}
		return ClarityValue{Type: ClarityList, List: items}, nil

	case tagTuple:
		n, err := c.u32()
		if err != nil {
			return ClarityValue{}, err
		}
		fields := make(map[string]ClarityValue, n)
		for i := uint32(0); i < n; i++ {
			key, err := decodeShortString(c)
			if err != nil {
				return ClarityValue{}, err
			}
			v, err := decodeClarityValue(c)
			if err != nil {
				return ClarityValue{}, err
			}
			fields[key] = v
		}
		return ClarityValue{Type: ClarityTuple, Tuple: fields}, nil

	default:
		return ClarityValue{}, fmt.Errorf("unrecognized clarity type tag 0x%02x", tag)
	}
}

// decodePrincipalAddress reads a 1-byte version and 20-byte hash160 and
// renders the c32check-style "version-hash" form used internally; full
// c32check alphabet encoding is the responsibility of the hex/crypto
// helpers this core treats as an external collaborator.
func decodePrincipalAddress(c *cursor) (string, error) {
	version, err := c.u8()
	if err != nil {
		return "", err
	}
	hash, err := c.take(20)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02x%x", version, hash), nil
}

// decodeShortString reads a 1-byte length followed by that many ASCII
// bytes, the encoding used for tuple keys and contract names.
func decodeShortString(c *cursor) (string, error) {
	n, err := c.u8()
	if err != nil {
		return "", err
	}
	b, err := c.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// AsTuple returns the tuple map if v is a tuple, or ok=false otherwise.
func (v ClarityValue) AsTuple() (map[string]ClarityValue, bool) {
	if v.Type != ClarityTuple {
		return nil, false
	}
	return v.Tuple, true
}

// AsString returns the string contents of a string-ascii/string-utf8
// value, or ok=false otherwise.
func (v ClarityValue) AsString() (string, bool) {
	if v.Type != ClarityStringASCII && v.Type != ClarityStringUTF8 {
		return "", false
	}
	return v.StringVal, true
}

// AsBuffer returns the byte contents of a buffer value, or ok=false
// otherwise.
func (v ClarityValue) AsBuffer() ([]byte, bool) {
	if v.Type != ClarityBuffer {
		return nil, false
	}
	return v.Buffer, true
}
