package transfer

import (
	"errors"
	"testing"
)

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	h1 := newHandle("t1", DirSend, "1.2.3.4", "a.txt", 10, nil, nil)
	h2 := newHandle("t1", DirSend, "1.2.3.4", "b.txt", 10, nil, nil)

	if err := r.register(h1); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.register(h2); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("second register err = %v, want ErrAlreadyExists", err)
	}
}

func TestRegistry_CancelIdempotent(t *testing.T) {
	r := NewRegistry()
	calls := 0
	h := newHandle("t1", DirSend, "1.2.3.4", "a.txt", 10, nil, func() { calls++ })
	_ = r.register(h)

	for i := 0; i < 5; i++ {
		if err := r.Cancel("t1"); err != nil {
			t.Fatalf("Cancel call %d: %v", i, err)
		}
	}
	if calls != 1 {
		t.Errorf("closeFn invoked %d times, want exactly 1", calls)
	}

	r.remove("t1")
	if err := r.Cancel("t1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Cancel after remove err = %v, want ErrNotFound", err)
	}
}

func TestRegistry_PauseResume(t *testing.T) {
	r := NewRegistry()
	h := newHandle("t1", DirReceive, "1.2.3.4", "a.txt", 10, nil, nil)
	_ = r.register(h)

	if err := r.Pause("t1"); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if h.Status() != StatusPaused {
		t.Errorf("status = %v, want paused", h.Status())
	}
	if !h.gate.paused {
		t.Errorf("gate not paused")
	}
	if err := r.Resume("t1"); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if h.gate.paused {
		t.Errorf("gate still paused after Resume")
	}
}

func TestRegistry_BatchExclusivity(t *testing.T) {
	r := NewRegistry()
	if !r.TryBeginBatch() {
		t.Fatal("first TryBeginBatch should succeed")
	}
	if r.TryBeginBatch() {
		t.Fatal("second concurrent TryBeginBatch should fail")
	}
	r.EndBatch()
	if !r.TryBeginBatch() {
		t.Fatal("TryBeginBatch should succeed again after EndBatch")
	}
}

func TestRegistry_RemoveIsIdempotent(t *testing.T) {
	r := NewRegistry()
	h := newHandle("t1", DirSend, "1.2.3.4", "a.txt", 10, nil, nil)
	_ = r.register(h)
	r.remove("t1")
	r.remove("t1") // must not panic
	if _, ok := r.get("t1"); ok {
		t.Fatal("transfer still present after remove")
	}
}
