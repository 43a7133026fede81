package serial

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/coffeetrace/core"
	"go.dedis.ch/coffeetrace/core/execution"
	"go.dedis.ch/coffeetrace/core/execution/native"
	"go.dedis.ch/coffeetrace/core/ordering"
	"go.dedis.ch/coffeetrace/core/store"
	"go.dedis.ch/coffeetrace/core/store/kv"
	"go.dedis.ch/coffeetrace/core/txn"
	"go.dedis.ch/coffeetrace/core/txn/signed"
	"go.dedis.ch/coffeetrace/crypto/bls"
	"go.dedis.ch/coffeetrace/internal/testing/fake"
	"golang.org/x/xerrors"
)

const testContract = "test"

func TestService_Submit(t *testing.T) {
	srvc, clean := makeService(t)
	defer clean()

	signer := bls.NewSigner()
	mgr := signed.NewManager(signer, srvc)
	require.NoError(t, mgr.Sync())

	tx := makeTx(t, mgr, "A", "1")

	receipt, err := srvc.Submit(context.Background(), tx)
	require.NoError(t, err)
	require.True(t, receipt.Accepted)
	require.Equal(t, tx.GetID(), receipt.ID)
	require.Equal(t, tx.GetIdentity(), receipt.Identity)
	require.Equal(t, uint64(1600000000), receipt.Timestamp)

	requireValue(t, srvc, "A", []byte("1"))

	nonce, err := srvc.GetNonce(tx.GetIdentity())
	require.NoError(t, err)
	require.Equal(t, uint64(1), nonce)

	stored, err := srvc.GetReceipt(tx.GetID())
	require.NoError(t, err)
	require.Equal(t, receipt, stored)
}

func TestService_SubmitRejected(t *testing.T) {
	srvc, clean := makeService(t)
	defer clean()

	mgr := signed.NewManager(bls.NewSigner(), srvc)

	tx := makeTx(t, mgr, "B", "reject")

	accepted := testutil.ToFloat64(promAccepted)
	rejected := testutil.ToFloat64(promRejected)

	receipt, err := srvc.Submit(context.Background(), tx)
	require.NoError(t, err)
	require.False(t, receipt.Accepted)
	require.Equal(t, rejected+1, testutil.ToFloat64(promRejected))
	require.Equal(t, "rejected on purpose", receipt.Message)

	// The writes of the execution are discarded but the nonce is consumed.
	requireValue(t, srvc, "B", nil)

	nonce, err := srvc.GetNonce(tx.GetIdentity())
	require.NoError(t, err)
	require.Equal(t, uint64(1), nonce)

	_, err = srvc.Submit(context.Background(), tx)
	require.EqualError(t, err, xerrors.Errorf("tx %#x: nonce '0' != '1'", tx.GetID()).Error())

	// Neither the rejection nor the refused replay is counted as accepted.
	require.Equal(t, accepted, testutil.ToFloat64(promAccepted))
	require.Equal(t, rejected+1, testutil.ToFloat64(promRejected))

	stored, err := srvc.GetReceipt(tx.GetID())
	require.NoError(t, err)
	require.False(t, stored.Accepted)
}

func TestService_SubmitInvalid(t *testing.T) {
	srvc, clean := makeService(t)
	defer clean()

	signer := bls.NewSigner()

	tx, err := signed.NewTransaction(0, signer.GetPublicKey())
	require.NoError(t, err)

	_, err = srvc.Submit(context.Background(), tx)
	require.EqualError(t, err, "invalid transaction: missing signature")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = srvc.Submit(ctx, tx)
	require.EqualError(t, err, "submission aborted: context canceled")

	// A transaction for an unknown contract cannot be executed at all.
	tx, err = signed.NewTransaction(0, signer.GetPublicKey(),
		signed.WithArg(native.ContractArg, []byte("unknown")))
	require.NoError(t, err)
	require.NoError(t, tx.Sign(signer))

	_, err = srvc.Submit(context.Background(), tx)
	require.EqualError(t, err, xerrors.Errorf("tx %#x: failed to execute tx: "+
		"unknown contract 'unknown'", tx.GetID()).Error())

	nonce, err := srvc.GetNonce(tx.GetIdentity())
	require.NoError(t, err)
	require.Equal(t, uint64(0), nonce)
}

func TestService_Bootstrap(t *testing.T) {
	srvc, clean := makeService(t)
	defer clean()

	err := srvc.Bootstrap(func(snap store.Snapshot) error {
		return snap.Set([]byte("genesis"), []byte{1})
	})
	require.NoError(t, err)

	requireValue(t, srvc, "genesis", []byte{1})

	err = srvc.Bootstrap(func(snap store.Snapshot) error {
		require.NoError(t, snap.Set([]byte("other"), []byte{2}))
		return fake.GetError()
	})
	require.EqualError(t, err, fake.Err("bootstrap failed"))

	requireValue(t, srvc, "other", nil)
}

func TestService_Watch(t *testing.T) {
	srvc, clean := makeService(t)
	defer clean()

	ctx, cancel := context.WithCancel(context.Background())

	receipts := srvc.Watch(ctx)

	mgr := signed.NewManager(bls.NewSigner(), srvc)

	tx := makeTx(t, mgr, "A", "1")

	receipt, err := srvc.Submit(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, receipt, <-receipts)

	tx = makeTx(t, mgr, "A", "reject")

	receipt, err = srvc.Submit(context.Background(), tx)
	require.NoError(t, err)

	notified := <-receipts
	require.False(t, notified.Accepted)
	require.Equal(t, receipt, notified)

	cancel()
	require.Eventually(t, func() bool {
		return srvc.watcher.(*core.Watcher).Len() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestService_WatchIdleSubscriber(t *testing.T) {
	srvc, clean := makeService(t)
	defer clean()

	// The first subscriber never reads and leaves, the second one never reads.
	ctx, cancel := context.WithCancel(context.Background())
	srvc.Watch(ctx)
	cancel()

	idle := srvc.Watch(context.Background())

	mgr := signed.NewManager(bls.NewSigner(), srvc)

	dropped := testutil.ToFloat64(promDropped)

	txs := make([]*signed.Transaction, watchBuffer+2)
	for i := range txs {
		txs[i] = makeTx(t, mgr, "A", "1")
	}

	errs := make(chan error, 1)

	go func() {
		for _, tx := range txs {
			_, err := srvc.Submit(context.Background(), tx)
			if err != nil {
				errs <- err
				return
			}
		}

		errs <- nil
	}()

	select {
	case err := <-errs:
		require.NoError(t, err)
	case <-time.After(30 * time.Second):
		t.Fatal("submissions are blocked by the watchers")
	}

	require.Len(t, idle, watchBuffer)
	require.GreaterOrEqual(t, testutil.ToFloat64(promDropped)-dropped, 2.0)

	nonce, err := srvc.GetNonce(txs[0].GetIdentity())
	require.NoError(t, err)
	require.Equal(t, uint64(watchBuffer+2), nonce)
}

func TestObserver_NotifyCallback(t *testing.T) {
	done := make(chan struct{})

	obs := observer{ch: make(chan ordering.Receipt, 1), done: done}

	obs.NotifyCallback(ordering.Receipt{Nonce: 1})
	obs.NotifyCallback(ordering.Receipt{Nonce: 2})
	require.Len(t, obs.ch, 1)
	require.Equal(t, uint64(1), (<-obs.ch).Nonce)

	close(done)

	obs.NotifyCallback(ordering.Receipt{Nonce: 3})
	require.Len(t, obs.ch, 0)
}

func TestService_GetReceipt(t *testing.T) {
	srvc, clean := makeService(t)
	defer clean()

	_, err := srvc.GetReceipt([]byte{0xaa})
	require.EqualError(t, err, "failed to get receipt: receipt aa not found")
}

func TestService_View(t *testing.T) {
	srvc, clean := makeService(t)
	defer clean()

	// The bucket does not exist before the first write.
	err := srvc.View(func(r store.Readable) error {
		value, err := r.Get([]byte("A"))
		require.NoError(t, err)
		require.Nil(t, value)

		return nil
	})
	require.NoError(t, err)

	err = srvc.View(func(store.Readable) error {
		return fake.GetError()
	})
	require.EqualError(t, err, fake.GetError().Error())
}

// -----------------------------------------------------------------------------
// Utility functions

func makeService(t *testing.T) (*Service, func()) {
	dir, err := os.MkdirTemp(os.TempDir(), "coffeetrace-serial")
	require.NoError(t, err)

	db, err := kv.New(filepath.Join(dir, "test.db"))
	require.NoError(t, err)

	exec := native.NewExecution()
	exec.Set(testContract, testExec{})

	clock := func() time.Time {
		return time.Unix(1600000000, 0)
	}

	srvc := NewService(db, exec, WithClock(clock))

	return srvc, func() {
		db.Close()
		os.RemoveAll(dir)
	}
}

func makeTx(t *testing.T, mgr txn.Manager, key, value string) *signed.Transaction {
	tx, err := mgr.Make(
		txn.Arg{Key: native.ContractArg, Value: []byte(testContract)},
		txn.Arg{Key: "key", Value: []byte(key)},
		txn.Arg{Key: "value", Value: []byte(value)},
	)
	require.NoError(t, err)

	return tx.(*signed.Transaction)
}

func requireValue(t *testing.T, srvc *Service, key string, expected []byte) {
	err := srvc.View(func(r store.Readable) error {
		value, err := r.Get([]byte(key))
		require.NoError(t, err)
		require.Equal(t, expected, value)

		return nil
	})
	require.NoError(t, err)
}

// testExec writes the value of the transaction and refuses the value "reject"
// after writing it.
type testExec struct{}

func (testExec) Execute(snap store.Snapshot, step execution.Step) error {
	err := snap.Set(step.Current.GetArg("key"), step.Current.GetArg("value"))
	if err != nil {
		return err
	}

	if string(step.Current.GetArg("value")) == "reject" {
		return xerrors.New("rejected on purpose")
	}

	return nil
}
