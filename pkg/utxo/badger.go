package utxo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/canopy-network/liquidityx/pkg/ledger"
	"github.com/dgraph-io/badger/v4"
	"github.com/go-jose/go-jose/v4/json"
	"go.uber.org/zap"
)

// BadgerStore keeps outputs in an embedded badger database keyed by
// "utxo/<txhash>#<index>". Spending rewrites the entry with a TTL.
type BadgerStore struct {
	db       *badger.DB
	logger   *zap.Logger
	spentTTL time.Duration
}

// OpenBadger opens (or creates) a badger database under dir. An empty dir
// gives an in-memory database.
func OpenBadger(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger %q: %w", dir, err)
	}
	return db, nil
}

func NewBadgerStore(db *badger.DB, spentTTL time.Duration, logger *zap.Logger) *BadgerStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if spentTTL <= 0 {
		spentTTL = DefaultSpentTTL
	}
	return &BadgerStore{db: db, logger: logger, spentTTL: spentTTL}
}

func badgerKey(ref ledger.OutputRef) []byte {
	return []byte("utxo/" + ref.String())
}

func (s *BadgerStore) Get(_ context.Context, refs []ledger.OutputRef) (map[ledger.OutputRef]ledger.Output, error) {
	out := make(map[ledger.OutputRef]ledger.Output, len(refs))
	if len(refs) == 0 {
		return out, nil
	}
	raw, err := s.load(refs)
	if err != nil {
		return nil, err
	}
	for ref, data := range raw {
		var o ledger.Output
		if err := json.Unmarshal(data, &o); err != nil {
			s.logger.Warn("Dropping undecodable utxo entry",
				zap.String("ref", ref.String()),
				zap.Error(err))
			continue
		}
		out[ref] = o
	}
	return out, nil
}

func (s *BadgerStore) load(refs []ledger.OutputRef) (map[ledger.OutputRef][]byte, error) {
	raw := make(map[ledger.OutputRef][]byte, len(refs))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, ref := range refs {
			item, err := txn.Get(badgerKey(ref))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			raw[ref] = data
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read %d utxos: %w", len(refs), err)
	}
	return raw, nil
}

func (s *BadgerStore) Put(_ context.Context, produced []ledger.Produced) error {
	if len(produced) == 0 {
		return nil
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, p := range produced {
		data, err := json.Marshal(p.Output)
		if err != nil {
			return fmt.Errorf("encode utxo %s: %w", p.Ref, err)
		}
		if err := wb.Set(badgerKey(p.Ref), data); err != nil {
			return fmt.Errorf("store utxo %s: %w", p.Ref, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("store %d utxos: %w", len(produced), err)
	}
	return nil
}

func (s *BadgerStore) Spend(_ context.Context, refs []ledger.OutputRef) error {
	if len(refs) == 0 {
		return nil
	}
	raw, err := s.load(refs)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for ref, data := range raw {
		if err := wb.SetEntry(badger.NewEntry(badgerKey(ref), data).WithTTL(s.spentTTL)); err != nil {
			return fmt.Errorf("spend utxo %s: %w", ref, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("spend %d utxos: %w", len(raw), err)
	}
	return nil
}
