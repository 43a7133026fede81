// Package serial implements an ordering service for a single node that
// executes the transactions one after the other.
//
// Every submission runs inside one write transaction of the database. The
// execution works on a staging layer on top of the committed state and the
// layer is flushed only when the transaction is accepted. The nonce of the
// sender and the receipt are stored whatever the result, so that a rejected
// transaction cannot be replayed.
//
// Documentation Last Review: 14.10.2026
//
package serial

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"
	"go.dedis.ch/coffeetrace"
	"go.dedis.ch/coffeetrace/core"
	"go.dedis.ch/coffeetrace/core/access"
	"go.dedis.ch/coffeetrace/core/execution"
	"go.dedis.ch/coffeetrace/core/ordering"
	"go.dedis.ch/coffeetrace/core/store"
	"go.dedis.ch/coffeetrace/core/store/kv"
	"go.dedis.ch/coffeetrace/core/store/mem"
	"go.dedis.ch/coffeetrace/core/store/prefixed"
	"go.dedis.ch/coffeetrace/core/txn/signed"
	"golang.org/x/xerrors"
)

const (
	nonceNamespace   = "coffeetrace.nonces"
	receiptNamespace = "coffeetrace.receipts"
)

// watchBuffer is the number of receipts a subscriber can lag behind.
const watchBuffer = 64

var bucketName = []byte("coffeetrace.state")

// defines prometheus metrics
var (
	promAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coffeetrace_serial_transactions_accepted_total",
		Help: "total number of accepted transactions",
	})

	promRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coffeetrace_serial_transactions_rejected_total",
		Help: "total number of transactions rejected by the execution",
	})

	promRefused = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coffeetrace_serial_transactions_refused_total",
		Help: "total number of invalid transactions that were not executed",
	})

	promDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coffeetrace_serial_receipts_dropped_total",
		Help: "total number of receipts not delivered to a late watcher",
	})

	promWrites = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "coffeetrace_serial_writes_transaction",
		Help:    "number of keys written by the last accepted transaction",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 20, 30, 50, 100},
	})
)

func init() {
	coffeetrace.PromCollectors = append(coffeetrace.PromCollectors, promAccepted,
		promRejected, promRefused, promDropped, promWrites)
}

// Option is the type of option to create a service.
type Option func(*Service)

// WithClock is an option to set the clock that timestamps the transactions.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// Service is an ordering service that executes the transactions as they come
// and commits them to a key/value database.
//
// - implements ordering.Service
// - implements signed.Client
type Service struct {
	sync.Mutex

	db      kv.DB
	exec    execution.Service
	clock   func() time.Time
	watcher core.Observable
}

// NewService creates a new service on top of the database.
func NewService(db kv.DB, exec execution.Service, opts ...Option) *Service {
	s := &Service{
		db:      db,
		exec:    exec,
		clock:   time.Now,
		watcher: core.NewWatcher(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Bootstrap runs the function on the committed state without a transaction
// and commits its writes if it returns nil. It is meant for the initialization
// of the state before the first submission.
func (s *Service) Bootstrap(fn func(store.Snapshot) error) error {
	s.Lock()
	defer s.Unlock()

	err := s.db.Update(func(tx kv.WritableTx) error {
		bucket, err := tx.GetBucketOrCreate(bucketName)
		if err != nil {
			return xerrors.Errorf("failed to open bucket: %v", err)
		}

		layer := mem.NewLayer(kv.NewSnapshot(bucket))

		err = fn(layer)
		if err != nil {
			return err
		}

		return layer.Apply(kv.NewSnapshot(bucket))
	})

	if err != nil {
		return xerrors.Errorf("bootstrap failed: %v", err)
	}

	return nil
}

// Submit implements ordering.Service. It verifies and executes the
// transaction, and commits the result. An error is returned when the
// transaction is invalid and has not been executed. A transaction refused by
// the execution is committed with a receipt that explains the refusal.
func (s *Service) Submit(ctx context.Context, tx *signed.Transaction) (ordering.Receipt, error) {
	err := ctx.Err()
	if err != nil {
		return ordering.Receipt{}, xerrors.Errorf("submission aborted: %v", err)
	}

	logger := coffeetrace.Logger.With().Stringer("submission", xid.New()).Logger()

	err = tx.Verify()
	if err != nil {
		promRefused.Inc()
		return ordering.Receipt{}, xerrors.Errorf("invalid transaction: %v", err)
	}

	// The lock is released before the watchers are notified.
	s.Lock()
	receipt, err := s.commit(tx)
	s.Unlock()

	if err != nil {
		promRefused.Inc()

		logger.Warn().Err(err).Hex("tx", tx.GetID()).Msg("transaction refused")

		return ordering.Receipt{}, xerrors.Errorf("tx %#x: %v", tx.GetID(), err)
	}

	if receipt.Accepted {
		logger.Info().
			Hex("tx", receipt.ID).
			Str("identity", receipt.Identity.String()).
			Uint64("nonce", receipt.Nonce).
			Msg("transaction accepted")
	} else {
		logger.Info().
			Hex("tx", receipt.ID).
			Str("identity", receipt.Identity.String()).
			Str("reason", receipt.Message).
			Msg("transaction rejected")
	}

	s.watcher.Notify(receipt)

	return receipt, nil
}

// commit executes the transaction and stores the outcome in a single database
// transaction. The metrics are updated once the database transaction is
// committed. The caller must hold the lock.
func (s *Service) commit(tx *signed.Transaction) (ordering.Receipt, error) {
	receipt := ordering.Receipt{
		ID:        tx.GetID(),
		Nonce:     tx.GetNonce(),
		Identity:  tx.GetIdentity(),
		Timestamp: uint64(s.clock().Unix()),
	}

	writes := 0

	err := s.db.Update(func(wtx kv.WritableTx) error {
		bucket, err := wtx.GetBucketOrCreate(bucketName)
		if err != nil {
			return xerrors.Errorf("failed to open bucket: %v", err)
		}

		snap := kv.NewSnapshot(bucket)

		nonce, err := readNonce(snap, receipt.Identity)
		if err != nil {
			return xerrors.Errorf("failed to read nonce: %v", err)
		}

		if nonce != receipt.Nonce {
			return xerrors.Errorf("nonce '%d' != '%d'", receipt.Nonce, nonce)
		}

		layer := mem.NewLayer(snap)

		step := execution.Step{
			Current:   tx,
			Timestamp: receipt.Timestamp,
		}

		res, err := s.exec.Execute(layer, step)
		if err != nil {
			return xerrors.Errorf("failed to execute tx: %v", err)
		}

		receipt.Accepted = res.Accepted
		receipt.Message = res.Message

		if res.Accepted {
			writes = layer.Len()

			err = layer.Apply(snap)
			if err != nil {
				return xerrors.Errorf("failed to apply: %v", err)
			}
		}

		err = prefixed.NewSnapshot(nonceNamespace, snap).Set(receipt.Identity[:],
			encodeUint64(nonce+1))
		if err != nil {
			return xerrors.Errorf("failed to store nonce: %v", err)
		}

		data, err := json.Marshal(receipt)
		if err != nil {
			return xerrors.Errorf("failed to encode receipt: %v", err)
		}

		err = prefixed.NewSnapshot(receiptNamespace, snap).Set(receipt.ID, data)
		if err != nil {
			return xerrors.Errorf("failed to store receipt: %v", err)
		}

		accepted := receipt.Accepted

		wtx.OnCommit(func() {
			if accepted {
				promAccepted.Inc()
				promWrites.Observe(float64(writes))
			} else {
				promRejected.Inc()
			}
		})

		return nil
	})

	return receipt, err
}

// Watch implements ordering.Service. It returns a channel populated with the
// receipts of the next transactions until the context is done. The channel is
// not closed. A subscriber that falls more than watchBuffer receipts behind
// misses the receipts that do not fit.
func (s *Service) Watch(ctx context.Context) <-chan ordering.Receipt {
	ch := make(chan ordering.Receipt, watchBuffer)

	obs := observer{ch: ch, done: ctx.Done()}
	s.watcher.Add(obs)

	go func() {
		<-ctx.Done()
		s.watcher.Remove(obs)
	}()

	return ch
}

// View runs the function on the committed state. The state must not be used
// after the function returns.
func (s *Service) View(fn func(store.Readable) error) error {
	return s.db.View(func(tx kv.ReadableTx) error {
		bucket := tx.GetBucket(bucketName)
		if bucket == nil {
			return fn(mem.NewSnapshot())
		}

		return fn(kv.NewSnapshot(bucket))
	})
}

// GetNonce implements signed.Client. It returns the nonce expected for the
// next transaction of the identity.
func (s *Service) GetNonce(addr access.Address) (uint64, error) {
	var nonce uint64

	err := s.View(func(r store.Readable) error {
		var err error
		nonce, err = readNonce(r, addr)

		return err
	})

	if err != nil {
		return 0, xerrors.Errorf("failed to read nonce: %v", err)
	}

	return nonce, nil
}

// GetReceipt implements ordering.Service. It returns the receipt of the
// transaction with the given identifier.
func (s *Service) GetReceipt(id []byte) (ordering.Receipt, error) {
	var receipt ordering.Receipt

	err := s.View(func(r store.Readable) error {
		data, err := prefixed.NewReadable(receiptNamespace, r).Get(id)
		if err != nil {
			return xerrors.Errorf("failed to read: %v", err)
		}

		if data == nil {
			return xerrors.Errorf("receipt %s not found", hex.EncodeToString(id))
		}

		return json.Unmarshal(data, &receipt)
	})

	if err != nil {
		return receipt, xerrors.Errorf("failed to get receipt: %v", err)
	}

	return receipt, nil
}

// observer forwards the receipts to the channel of a subscriber. It never
// blocks: the receipt is dropped when the subscriber is gone or when its buffer
// is full.
//
// - implements core.Observer
type observer struct {
	ch   chan ordering.Receipt
	done <-chan struct{}
}

// NotifyCallback implements core.Observer.
func (obs observer) NotifyCallback(event interface{}) {
	receipt := event.(ordering.Receipt)

	select {
	case <-obs.done:
		return
	default:
	}

	select {
	case obs.ch <- receipt:
	default:
		promDropped.Inc()

		coffeetrace.Logger.Warn().Hex("tx", receipt.ID).Msg("watcher is late, receipt dropped")
	}
}

func readNonce(r store.Readable, addr access.Address) (uint64, error) {
	data, err := prefixed.NewReadable(nonceNamespace, r).Get(addr[:])
	if err != nil {
		return 0, err
	}

	if data == nil {
		return 0, nil
	}

	if len(data) != 8 {
		return 0, xerrors.Errorf("invalid nonce of %d bytes", len(data))
	}

	return binary.BigEndian.Uint64(data), nil
}

func encodeUint64(v uint64) []byte {
	buffer := make([]byte, 8)
	binary.BigEndian.PutUint64(buffer, v)

	return buffer
}
