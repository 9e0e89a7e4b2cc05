package engine

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/etherlink/etherlink/pkg/transfer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(Config{
		DiscoveryPort: 0,
		TransferPort:  0,
		DownloadsDir:  t.TempDir(),
		Version:       "test",
	})
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(e.Stop)
	return e
}

func (e *Engine) transferPort() int {
	return e.listener.Addr().(*net.TCPAddr).Port
}

func TestEngine_TransferRoundTripViaStandaloneSender(t *testing.T) {
	receiver := newTestEngine(t)

	ch, unsubscribe := receiver.Subscribe(EventTransferComplete)
	defer unsubscribe()

	src := filepath.Join(t.TempDir(), "note.txt")
	content := []byte("hello from the sender\n")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatalf("writing source file: %v", err)
	}

	standaloneSender := transfer.NewSender(transfer.Config{Port: receiver.transferPort()}, transfer.NewRegistry(), transfer.Callbacks{})
	if err := standaloneSender.Send(context.Background(), "t1", "127.0.0.1", src); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case ev := <-ch:
		if ev.Complete == nil {
			t.Fatal("transfer-complete event missing Complete payload")
		}
		got, err := os.ReadFile(filepath.Join(receiver.DownloadsDir(), ev.Complete.Filename))
		if err != nil {
			t.Fatalf("reading received file: %v", err)
		}
		if !bytes.Equal(got, content) {
			t.Errorf("content mismatch: got %q want %q", got, content)
		}
		if sha256.Sum256(got) != sha256.Sum256(content) {
			t.Errorf("checksum mismatch")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for transfer-complete event")
	}
}

func TestEngine_SendBatch_RoundTrip(t *testing.T) {
	receiver := newTestEngine(t)
	sender := newTestEngine(t)

	ch, unsubscribe := receiver.Subscribe(EventTransferComplete)
	defer unsubscribe()

	src := filepath.Join(t.TempDir(), "batch.txt")
	content := []byte("sent via sendBatch\n")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// rebuild the sender's internal transfer.Sender against the receiver's
	// ephemeral port, mirroring how production wiring targets a fixed 9001.
	sender.sender = transfer.NewSender(transfer.Config{Port: receiver.transferPort()}, sender.registry, transfer.Callbacks{
		OnProgress: sender.onTransferProgress,
		OnComplete: sender.onTransferComplete,
		OnError:    sender.onTransferError,
	})

	batchID, err := sender.SendBatch(context.Background(), "", []string{"127.0.0.1"}, []string{src})
	if err != nil {
		t.Fatalf("SendBatch: %v", err)
	}
	if batchID == "" {
		t.Fatal("expected a non-empty batch id")
	}

	select {
	case ev := <-ch:
		got, err := os.ReadFile(filepath.Join(receiver.DownloadsDir(), ev.Complete.Filename))
		if err != nil {
			t.Fatalf("reading received file: %v", err)
		}
		if !bytes.Equal(got, content) {
			t.Errorf("content mismatch: got %q want %q", got, content)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for transfer-complete event")
	}
}

func TestEngine_SendBatch_MissingFileLeavesNoStuckFlag(t *testing.T) {
	sender := newTestEngine(t)
	missing := filepath.Join(t.TempDir(), "nope.bin")

	if _, err := sender.SendBatch(context.Background(), "", []string{"127.0.0.1"}, []string{missing}); err == nil {
		t.Fatal("expected error for missing file")
	}
	// the batch flag must not be left stuck by the failed attempt above
	if _, err := sender.SendBatch(context.Background(), "", []string{"127.0.0.1"}, []string{missing}); err == nil {
		t.Fatal("expected second missing-file batch to also fail on its own terms")
	} else if errors.Is(err, transfer.ErrBatchActive) {
		t.Fatal("batchActive flag leaked from the first failed attempt")
	}
}

func TestEngine_CancelTransfer_UnknownID(t *testing.T) {
	e := newTestEngine(t)
	if err := e.CancelTransfer("no-such-id"); !errors.Is(err, transfer.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestEngine_SetGetDownloadsDir(t *testing.T) {
	e := newTestEngine(t)
	newDir := filepath.Join(t.TempDir(), "nested", "dir")
	if err := e.SetDownloadsDir(newDir); err != nil {
		t.Fatalf("SetDownloadsDir: %v", err)
	}
	if e.DownloadsDir() != newDir {
		t.Errorf("DownloadsDir = %q, want %q", e.DownloadsDir(), newDir)
	}
	if _, err := os.Stat(newDir); err != nil {
		t.Errorf("directory not created: %v", err)
	}
}

func TestEngine_SubscribeUnsubscribe(t *testing.T) {
	e := newTestEngine(t)
	ch, unsubscribe := e.Subscribe(EventInterfacesChanged)
	unsubscribe()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to be closed after unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("channel was not closed promptly after unsubscribe")
	}
}
