package plutus

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

const (
	majorUint   = 0
	majorNegInt = 1
	majorBytes  = 2
	majorArray  = 4
	majorMap    = 5
	majorTag    = 6

	tagPosBignum    = 2
	tagNegBignum    = 3
	tagConstrAny    = 102
	tagConstrSmall  = 121
	tagConstrLarge  = 1280
	smallConstrMax  = 6
	largeConstrMax  = 127
	maxNestingDepth = 64

	breakByte = 0xff
)

var (
	ErrMalformed   = errors.New("malformed plutus data")
	ErrTrailing    = errors.New("trailing bytes after plutus data")
	ErrUnsupported = errors.New("unsupported cbor item in plutus data")
)

var decMode = func() cbor.DecMode {
	dm, err := cbor.DecOptions{
		MaxNestedLevels: maxNestingDepth,
		BigIntDec:       cbor.BigIntDecodeValue,
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}()

// Decode parses a single Plutus Data item. Definite and indefinite length
// arrays, maps and byte strings are all accepted.
func Decode(raw []byte) (Data, error) {
	d, rest, err := decodeFirst(raw, 0)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, ErrTrailing
	}
	return d, nil
}

// DecodeHex is Decode over a hex string.
func DecodeHex(s string) (Data, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Decode(raw)
}

func decodeFirst(raw []byte, depth int) (Data, []byte, error) {
	if depth > maxNestingDepth {
		return nil, nil, fmt.Errorf("%w: nesting deeper than %d", ErrMalformed, maxNestingDepth)
	}
	if len(raw) == 0 {
		return nil, nil, fmt.Errorf("%w: unexpected end of input", ErrMalformed)
	}

	switch raw[0] >> 5 {
	case majorUint, majorNegInt:
		var v big.Int
		rest, err := decMode.UnmarshalFirst(raw, &v)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return Int{Value: &v}, rest, nil

	case majorBytes:
		var b []byte
		rest, err := decMode.UnmarshalFirst(raw, &b)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if b == nil {
			b = []byte{}
		}
		return Bytes(b), rest, nil

	case majorArray:
		items, rest, err := decodeItems(raw, depth)
		if err != nil {
			return nil, nil, err
		}
		return List(items), rest, nil

	case majorMap:
		items, rest, err := decodeItems(raw, depth)
		if err != nil {
			return nil, nil, err
		}
		m := make(Map, 0, len(items)/2)
		for i := 0; i+1 < len(items); i += 2 {
			m = append(m, Pair{Key: items[i], Value: items[i+1]})
		}
		return m, rest, nil

	case majorTag:
		var tag cbor.RawTag
		rest, err := decMode.UnmarshalFirst(raw, &tag)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		d, err := decodeTag(tag, raw, depth)
		if err != nil {
			return nil, nil, err
		}
		return d, rest, nil
	}
	return nil, nil, fmt.Errorf("%w: major type %d", ErrUnsupported, raw[0]>>5)
}

func decodeTag(tag cbor.RawTag, raw []byte, depth int) (Data, error) {
	switch {
	case tag.Number == tagPosBignum || tag.Number == tagNegBignum:
		var v big.Int
		if _, err := decMode.UnmarshalFirst(raw, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return Int{Value: &v}, nil

	case tag.Number >= tagConstrSmall && tag.Number <= tagConstrSmall+smallConstrMax:
		fields, err := decodeFields(tag.Content, depth)
		if err != nil {
			return nil, err
		}
		return Constr{Alt: tag.Number - tagConstrSmall, Fields: fields}, nil

	case tag.Number >= tagConstrLarge && tag.Number <= tagConstrLarge+largeConstrMax-smallConstrMax-1:
		fields, err := decodeFields(tag.Content, depth)
		if err != nil {
			return nil, err
		}
		return Constr{Alt: tag.Number - tagConstrLarge + smallConstrMax + 1, Fields: fields}, nil

	case tag.Number == tagConstrAny:
		inner, rest, err := decodeFirst(tag.Content, depth+1)
		if err != nil {
			return nil, err
		}
		if len(rest) != 0 {
			return nil, ErrTrailing
		}
		pair, ok := inner.(List)
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("%w: constr 102 wants [alt, fields]", ErrMalformed)
		}
		alt, ok := AsInt(pair[0])
		if !ok || alt.Value.Sign() < 0 || !alt.Value.IsUint64() {
			return nil, fmt.Errorf("%w: constr 102 alternative", ErrMalformed)
		}
		fields, ok := pair[1].(List)
		if !ok {
			return nil, fmt.Errorf("%w: constr 102 fields", ErrMalformed)
		}
		return Constr{Alt: alt.Value.Uint64(), Fields: []Data(fields)}, nil
	}
	return nil, fmt.Errorf("%w: tag %d", ErrUnsupported, tag.Number)
}

func decodeFields(content []byte, depth int) ([]Data, error) {
	if len(content) == 0 || content[0]>>5 != majorArray {
		return nil, fmt.Errorf("%w: constr fields must be an array", ErrMalformed)
	}
	items, rest, err := decodeItems(content, depth)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, ErrTrailing
	}
	return items, nil
}

// decodeItems walks an array or map header and returns its flattened items.
// Map entries come back as key, value, key, value.
func decodeItems(raw []byte, depth int) ([]Data, []byte, error) {
	major := raw[0] >> 5
	count, indefinite, rest, err := readHead(raw)
	if err != nil {
		return nil, nil, err
	}
	if major == majorMap && !indefinite {
		count *= 2
	}

	items := make([]Data, 0, min(count, 64))
	for i := uint64(0); indefinite || i < count; i++ {
		if indefinite {
			if len(rest) == 0 {
				return nil, nil, fmt.Errorf("%w: missing break", ErrMalformed)
			}
			if rest[0] == breakByte {
				rest = rest[1:]
				break
			}
		}
		var item Data
		item, rest, err = decodeFirst(rest, depth+1)
		if err != nil {
			return nil, nil, err
		}
		items = append(items, item)
	}
	if major == majorMap && len(items)%2 != 0 {
		return nil, nil, fmt.Errorf("%w: odd number of map items", ErrMalformed)
	}
	return items, rest, nil
}

// readHead decodes an array or map head.
func readHead(raw []byte) (count uint64, indefinite bool, rest []byte, err error) {
	info := raw[0] & 0x1f
	switch {
	case info < 24:
		return uint64(info), false, raw[1:], nil
	case info == 31:
		return 0, true, raw[1:], nil
	case info > 27:
		return 0, false, nil, fmt.Errorf("%w: reserved additional info %d", ErrMalformed, info)
	}
	n := 1 << (info - 24)
	if len(raw) < 1+n {
		return 0, false, nil, fmt.Errorf("%w: truncated head", ErrMalformed)
	}
	for _, b := range raw[1 : 1+n] {
		count = count<<8 | uint64(b)
	}
	return count, false, raw[1+n:], nil
}
