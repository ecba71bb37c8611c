package utxo

import (
	"context"

	"github.com/canopy-network/liquidityx/pkg/ledger"
	"github.com/puzpuzpuz/xsync/v4"
)

// MemoryStore is a process local Store. Spent outputs are dropped immediately.
type MemoryStore struct {
	outputs *xsync.Map[ledger.OutputRef, ledger.Output]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{outputs: xsync.NewMap[ledger.OutputRef, ledger.Output]()}
}

func (m *MemoryStore) Get(_ context.Context, refs []ledger.OutputRef) (map[ledger.OutputRef]ledger.Output, error) {
	out := make(map[ledger.OutputRef]ledger.Output, len(refs))
	for _, ref := range refs {
		if o, ok := m.outputs.Load(ref); ok {
			out[ref] = o
		}
	}
	return out, nil
}

func (m *MemoryStore) Put(_ context.Context, produced []ledger.Produced) error {
	for _, p := range produced {
		m.outputs.Store(p.Ref, p.Output)
	}
	return nil
}

func (m *MemoryStore) Spend(_ context.Context, refs []ledger.OutputRef) error {
	for _, ref := range refs {
		m.outputs.Delete(ref)
	}
	return nil
}

func (m *MemoryStore) Len() int {
	return m.outputs.Size()
}
