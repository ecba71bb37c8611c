package plutus

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

const bytesChunk = 64

var encMode = func() cbor.UserBufferEncMode {
	em, err := cbor.EncOptions{BigIntConvert: cbor.BigIntConvertShortest}.UserBufferEncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Encode renders d the way ledger tooling does: non-empty lists and
// constructor fields as indefinite arrays, byte strings longer than 64 bytes
// chunked, constructor tags 121..127, 1280..1400 or 102.
func Encode(d Data) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeTo(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeHex is Encode returning lowercase hex.
func EncodeHex(d Data) (string, error) {
	raw, err := Encode(d)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

func encodeTo(buf *bytes.Buffer, d Data) error {
	switch v := d.(type) {
	case Constr:
		return encodeConstr(buf, v)
	case List:
		return encodeList(buf, v)
	case Map:
		writeHead(buf, majorMap, uint64(len(v)))
		for _, p := range v {
			if err := encodeTo(buf, p.Key); err != nil {
				return err
			}
			if err := encodeTo(buf, p.Value); err != nil {
				return err
			}
		}
		return nil
	case Int:
		if v.Value == nil {
			return fmt.Errorf("%w: nil int", ErrMalformed)
		}
		return encMode.MarshalToBuffer(*v.Value, buf)
	case Bytes:
		return encodeBytes(buf, v)
	case nil:
		return fmt.Errorf("%w: nil node", ErrMalformed)
	}
	return fmt.Errorf("%w: %T", ErrUnsupported, d)
}

func encodeConstr(buf *bytes.Buffer, c Constr) error {
	switch {
	case c.Alt <= smallConstrMax:
		writeHead(buf, majorTag, tagConstrSmall+c.Alt)
	case c.Alt <= largeConstrMax:
		writeHead(buf, majorTag, tagConstrLarge+c.Alt-smallConstrMax-1)
	default:
		writeHead(buf, majorTag, tagConstrAny)
		writeHead(buf, majorArray, 2)
		if err := encMode.MarshalToBuffer(c.Alt, buf); err != nil {
			return err
		}
	}
	return encodeList(buf, c.Fields)
}

func encodeList(buf *bytes.Buffer, items []Data) error {
	if len(items) == 0 {
		writeHead(buf, majorArray, 0)
		return nil
	}
	buf.WriteByte(majorArray<<5 | 31)
	for _, item := range items {
		if err := encodeTo(buf, item); err != nil {
			return err
		}
	}
	buf.WriteByte(breakByte)
	return nil
}

func encodeBytes(buf *bytes.Buffer, b []byte) error {
	if len(b) <= bytesChunk {
		writeHead(buf, majorBytes, uint64(len(b)))
		buf.Write(b)
		return nil
	}
	buf.WriteByte(majorBytes<<5 | 31)
	for start := 0; start < len(b); start += bytesChunk {
		end := min(start+bytesChunk, len(b))
		writeHead(buf, majorBytes, uint64(end-start))
		buf.Write(b[start:end])
	}
	buf.WriteByte(breakByte)
	return nil
}

func writeHead(buf *bytes.Buffer, major byte, n uint64) {
	m := major << 5
	switch {
	case n < 24:
		buf.WriteByte(m | byte(n))
	case n <= 0xff:
		buf.WriteByte(m | 24)
		buf.WriteByte(byte(n))
	case n <= 0xffff:
		buf.WriteByte(m | 25)
		buf.WriteByte(byte(n >> 8))
		buf.WriteByte(byte(n))
	case n <= 0xffffffff:
		buf.WriteByte(m | 26)
		for shift := 24; shift >= 0; shift -= 8 {
			buf.WriteByte(byte(n >> shift))
		}
	default:
		buf.WriteByte(m | 27)
		for shift := 56; shift >= 0; shift -= 8 {
			buf.WriteByte(byte(n >> shift))
		}
	}
}

// BigInt is a convenience constructor for values outside the int64 range.
func BigInt(v *big.Int) Int { return Int{Value: new(big.Int).Set(v)} }
