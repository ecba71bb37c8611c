// Package plutus models on-chain Plutus Data and its CBOR encoding.
package plutus

import (
	"bytes"
	"math/big"
)

// Data is a node of a Plutus Data tree: Constr, Map, List, Int or Bytes.
type Data interface {
	isData()
}

// Constr is a constructor application, Alt being the zero-based alternative.
type Constr struct {
	Alt    uint64
	Fields []Data
}

// Map keeps entries in their encoded order; keys may repeat.
type Map []Pair

type Pair struct {
	Key   Data
	Value Data
}

type List []Data

// Int is an arbitrary precision integer.
type Int struct {
	Value *big.Int
}

type Bytes []byte

func (Constr) isData() {}
func (Map) isData()    {}
func (List) isData()   {}
func (Int) isData()    {}
func (Bytes) isData()  {}

func NewInt(v int64) Int { return Int{Value: big.NewInt(v)} }

func NewConstr(alt uint64, fields ...Data) Constr {
	if fields == nil {
		fields = []Data{}
	}
	return Constr{Alt: alt, Fields: fields}
}

// Int64 reports the value when it fits in an int64.
func (i Int) Int64() (int64, bool) {
	if i.Value == nil || !i.Value.IsInt64() {
		return 0, false
	}
	return i.Value.Int64(), true
}

// AsConstr returns d as a Constr with alternative alt and exactly n fields.
func AsConstr(d Data, alt uint64, n int) (Constr, bool) {
	c, ok := d.(Constr)
	if !ok || c.Alt != alt || len(c.Fields) != n {
		return Constr{}, false
	}
	return c, true
}

func AsBytes(d Data) ([]byte, bool) {
	b, ok := d.(Bytes)
	return b, ok
}

func AsInt(d Data) (Int, bool) {
	i, ok := d.(Int)
	if !ok || i.Value == nil {
		return Int{}, false
	}
	return i, true
}

// Equal compares two trees structurally.
func Equal(a, b Data) bool {
	switch x := a.(type) {
	case Constr:
		y, ok := b.(Constr)
		return ok && x.Alt == y.Alt && equalSlice(x.Fields, y.Fields)
	case List:
		y, ok := b.(List)
		return ok && equalSlice(x, y)
	case Map:
		y, ok := b.(Map)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i].Key, y[i].Key) || !Equal(x[i].Value, y[i].Value) {
				return false
			}
		}
		return true
	case Int:
		y, ok := b.(Int)
		return ok && x.Value != nil && y.Value != nil && x.Value.Cmp(y.Value) == 0
	case Bytes:
		y, ok := b.(Bytes)
		return ok && bytes.Equal(x, y)
	}
	return false
}

func equalSlice(a, b []Data) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
