// Package ledgertest holds the behavioural contract every ledger backend must
// satisfy. Backend packages embed Suite and supply a constructor.
package ledgertest

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/stretchr/testify/suite"

	"ekyc/internal/ledger"
	"ekyc/pkg/platform/sentinel"
)

// Suite runs the ledger contract against the store returned by NewStore.
// NewStore is called before every test and must return an empty ledger.
type Suite struct {
	suite.Suite
	NewStore func() ledger.Store

	Store ledger.Store
	ctx   context.Context
}

func (s *Suite) SetupTest() {
	s.Require().NotNil(s.NewStore, "NewStore must be set")
	s.Store = s.NewStore()
	s.ctx = context.Background()
}

func (s *Suite) TearDownTest() {
	if s.Store != nil {
		s.NoError(s.Store.Close())
	}
}

func (s *Suite) put(key, value string) {
	err := s.Store.RunInTx(s.ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.Put(ctx, key, []byte(value))
	})
	s.Require().NoError(err)
}

func (s *Suite) get(key string) []byte {
	var out []byte
	err := s.Store.RunInTx(s.ctx, func(ctx context.Context, tx ledger.Tx) error {
		v, err := tx.Get(ctx, key)
		out = v
		return err
	})
	s.Require().NoError(err)
	return out
}

func (s *Suite) scan(prefix string) []ledger.KV {
	var out []ledger.KV
	err := s.Store.RunInTx(s.ctx, func(ctx context.Context, tx ledger.Tx) error {
		kvs, err := tx.ScanPrefix(ctx, prefix)
		out = kvs
		return err
	})
	s.Require().NoError(err)
	return out
}

func keysOf(kvs []ledger.KV) []string {
	out := make([]string, 0, len(kvs))
	for _, kv := range kvs {
		out = append(out, kv.Key)
	}
	return out
}

func (s *Suite) TestGetMissingKeyReturnsNil() {
	s.Nil(s.get("CLIENT404"))
}

func (s *Suite) TestCommitIsVisibleToLaterTransactions() {
	s.put("CLIENT1", `{"name":"Alice"}`)
	s.Equal(`{"name":"Alice"}`, string(s.get("CLIENT1")))
}

func (s *Suite) TestReadYourWrites() {
	err := s.Store.RunInTx(s.ctx, func(ctx context.Context, tx ledger.Tx) error {
		s.Require().NoError(tx.Put(ctx, "FI1", []byte("bank")))
		v, err := tx.Get(ctx, "FI1")
		s.Require().NoError(err)
		s.Equal("bank", string(v))

		s.Require().NoError(tx.Delete(ctx, "FI1"))
		v, err = tx.Get(ctx, "FI1")
		s.Require().NoError(err)
		s.Nil(v)
		return nil
	})
	s.Require().NoError(err)
	s.Nil(s.get("FI1"))
}

func (s *Suite) TestFailedTransactionDiscardsWriteSet() {
	s.put("CLIENT1", "v1")
	boom := errors.New("denied")

	err := s.Store.RunInTx(s.ctx, func(ctx context.Context, tx ledger.Tx) error {
		s.Require().NoError(tx.Put(ctx, "CLIENT1", []byte("v2")))
		s.Require().NoError(tx.Put(ctx, "CLIENT2", []byte("new")))
		return boom
	})
	s.Require().ErrorIs(err, boom)

	s.Equal("v1", string(s.get("CLIENT1")))
	s.Nil(s.get("CLIENT2"))
}

func (s *Suite) TestDeleteRemovesKey() {
	s.put("CLIENT1", "v1")
	err := s.Store.RunInTx(s.ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.Delete(ctx, "CLIENT1")
	})
	s.Require().NoError(err)
	s.Nil(s.get("CLIENT1"))

	s.Run("deleting a missing key is not an error", func() {
		err := s.Store.RunInTx(s.ctx, func(ctx context.Context, tx ledger.Tx) error {
			return tx.Delete(ctx, "CLIENT404")
		})
		s.NoError(err)
	})
}

func (s *Suite) TestEmptyValueIsDistinctFromAbsent() {
	s.put("marker", "")
	v := s.get("marker")
	s.NotNil(v)
	s.Empty(v)
}

func (s *Suite) TestScanPrefixIsOrderedAndBounded() {
	fwdA, err := ledger.CreateCompositeKey("client~institution", "CLIENT1", "FI2")
	s.Require().NoError(err)
	fwdB, err := ledger.CreateCompositeKey("client~institution", "CLIENT1", "FI1")
	s.Require().NoError(err)
	other, err := ledger.CreateCompositeKey("client~institution", "CLIENT10", "FI1")
	s.Require().NoError(err)
	rev, err := ledger.CreateCompositeKey("institution~client", "FI1", "CLIENT1")
	s.Require().NoError(err)

	for _, k := range []string{fwdA, fwdB, other, rev, "CLIENT1"} {
		s.put(k, "\x00")
	}

	prefix, err := ledger.CreateCompositeKey("client~institution", "CLIENT1")
	s.Require().NoError(err)
	s.Equal([]string{fwdB, fwdA}, keysOf(s.scan(prefix)))

	s.Run("plain key space excludes composite keys", func() {
		var plain []string
		for _, kv := range s.scan("") {
			if !ledger.IsCompositeKey(kv.Key) {
				plain = append(plain, kv.Key)
			}
		}
		s.Equal([]string{"CLIENT1"}, plain)
	})
}

func (s *Suite) TestScanMergesStagedWrites() {
	s.put("CLIENT1", "a")
	s.put("CLIENT3", "c")

	err := s.Store.RunInTx(s.ctx, func(ctx context.Context, tx ledger.Tx) error {
		s.Require().NoError(tx.Put(ctx, "CLIENT2", []byte("b")))
		s.Require().NoError(tx.Delete(ctx, "CLIENT3"))
		s.Require().NoError(tx.Put(ctx, "CLIENT1", []byte("a2")))

		kvs, err := tx.ScanPrefix(ctx, "CLIENT")
		s.Require().NoError(err)
		s.Equal([]ledger.KV{
			{Key: "CLIENT1", Value: []byte("a2")},
			{Key: "CLIENT2", Value: []byte("b")},
		}, kvs)
		return nil
	})
	s.Require().NoError(err)
}

func (s *Suite) TestTxIDIsUnique() {
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		err := s.Store.RunInTx(s.ctx, func(_ context.Context, tx ledger.Tx) error {
			s.NotEmpty(tx.TxID())
			s.False(seen[tx.TxID()])
			seen[tx.TxID()] = true
			return nil
		})
		s.Require().NoError(err)
	}
}

// TestConcurrentReadModifyWrite checks that concurrent increments never lose
// an update: each writer either commits against fresh state or sees ErrConflict.
func (s *Suite) TestConcurrentReadModifyWrite() {
	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for attempt := 0; attempt < 100; attempt++ {
				err := s.Store.RunInTx(s.ctx, func(ctx context.Context, tx ledger.Tx) error {
					raw, err := tx.Get(ctx, "counter")
					if err != nil {
						return err
					}
					n := 0
					if raw != nil {
						n, err = strconv.Atoi(string(raw))
						if err != nil {
							return err
						}
					}
					return tx.Put(ctx, "counter", []byte(strconv.Itoa(n+1)))
				})
				if errors.Is(err, sentinel.ErrConflict) {
					continue
				}
				errs <- err
				return
			}
			errs <- errors.New("retries exhausted")
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}
	s.Equal(strconv.Itoa(writers), string(s.get("counter")))
}
