// Package crdt carries set-membership commands from reducers to the stores
// that replicate them.
package crdt

import (
	"fmt"
)

// Op is the set operation a command performs.
type Op uint8

const (
	OpAdd Op = iota + 1
	OpRemove
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpRemove:
		return "remove"
	}
	return "unknown"
}

func (o Op) MarshalText() ([]byte, error) {
	if o != OpAdd && o != OpRemove {
		return nil, fmt.Errorf("invalid op %d", o)
	}
	return []byte(o.String()), nil
}

func (o *Op) UnmarshalText(b []byte) error {
	switch string(b) {
	case "add":
		*o = OpAdd
	case "remove":
		*o = OpRemove
	default:
		return fmt.Errorf("invalid op %q", b)
	}
	return nil
}

// Command adds Value to, or removes it from, the set named by Prefix and Key.
type Command struct {
	Op     Op     `json:"op"`
	Prefix string `json:"prefix,omitempty"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

func SetAdd(prefix, key, value string) Command {
	return Command{Op: OpAdd, Prefix: prefix, Key: key, Value: value}
}

func SetRemove(prefix, key, value string) Command {
	return Command{Op: OpRemove, Prefix: prefix, Key: key, Value: value}
}

// Set is the fully qualified set name, "<prefix>.<key>" when a prefix is configured.
func (c Command) Set() string {
	if c.Prefix == "" {
		return c.Key
	}
	return c.Prefix + "." + c.Key
}

func (c Command) String() string {
	return c.Op.String() + " " + c.Set() + " " + c.Value
}

// Point identifies the block a group of commands was derived from.
type Point struct {
	Slot   uint64 `json:"slot"`
	Height uint64 `json:"height"`
	Hash   string `json:"hash"`
}
