package decode

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// cursor is a forward-only byte reader used by the transaction and
// Clarity-value decoders. Every read method returns an error instead
// of panicking on a short buffer, so a truncated payload always comes
// back as a decode error rather than an out-of-range panic.
type cursor struct {
	buf []byte
	pos int
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

func (c *cursor) remaining() int {
	return len(c.buf) - c.pos
}

func (c *cursor) take(n int) ([]byte, error) {
	if n < 0 || c.remaining() < n {
		return nil, fmt.Errorf("unexpected end of input: need %d bytes, have %d", n, c.remaining())
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) u8() (uint8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *cursor) u16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (c *cursor) u32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (c *cursor) u64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// u128 reads a 16-byte big-endian unsigned integer.
func (c *cursor) u128() (*big.Int, error) {
	b, err := c.take(16)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}

// i128 reads a 16-byte big-endian two's-complement signed integer.
func (c *cursor) i128() (*big.Int, error) {
	b, err := c.take(16)
	if err != nil {
		return nil, err
	}
	v := new(big.Int).SetBytes(b)
	if b[0]&0x80 != 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), 128)
		v.Sub(v, mod)
	}
	return v, nil
}

// lenPrefixedBytes reads a uint32 length followed by that many bytes.
func (c *cursor) lenPrefixedBytes() ([]byte, error) {
	n, err := c.u32()
	if err != nil {
		return nil, err
	}
	return c.take(int(n))
}
