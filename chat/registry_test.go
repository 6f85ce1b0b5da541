package chat

import "testing"

func TestRegistryLatestWins(t *testing.T) {
	r := NewRegistry()

	ctx1, id1 := r.Start(1)
	ctx2, id2 := r.Start(1)

	if ctx1.Err() == nil {
		t.Error("replaced generation should be cancelled")
	}
	if ctx2.Err() != nil {
		t.Error("active generation should not be cancelled")
	}

	// A stale end from the replaced generation must not remove the entry
	r.End(1, id1)
	if !r.Active(1) {
		t.Error("stale end removed the active generation")
	}

	r.End(1, id2)
	if r.Active(1) {
		t.Error("entry should be gone after the active generation ends")
	}
}

func TestRegistryRequestCancel(t *testing.T) {
	r := NewRegistry()

	if r.RequestCancel(7) {
		t.Error("cancel with no generation should report false")
	}

	ctx, id := r.Start(7)
	if !r.Active(7) {
		t.Fatal("generation should be active after start")
	}

	if !r.RequestCancel(7) {
		t.Error("cancel with an active generation should report true")
	}
	if ctx.Err() == nil {
		t.Error("cancel should trigger the generation's signal")
	}

	// Cancellation does not remove the entry; only End does
	if !r.Active(7) {
		t.Error("cancelled generation should stay registered until it ends")
	}

	r.End(7, id)
	if r.Active(7) {
		t.Error("entry should be gone after end")
	}
}

func TestRegistryIsolatesConversations(t *testing.T) {
	r := NewRegistry()

	ctxA, _ := r.Start(1)
	ctxB, _ := r.Start(2)

	r.RequestCancel(1)

	if ctxA.Err() == nil {
		t.Error("conversation 1 should be cancelled")
	}
	if ctxB.Err() != nil {
		t.Error("conversation 2 should be untouched")
	}
}
