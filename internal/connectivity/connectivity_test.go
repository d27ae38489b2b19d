package connectivity

import (
	"context"
	"testing"
)

func TestStateOnline(t *testing.T) {
	// Unknown connectivity must be treated as connected so real I/O gets
	// attempted.
	if !(State{}).Online() {
		t.Error("expected unknown state to read as online")
	}

	yes, no := true, false
	if !(State{Connected: &yes}).Online() {
		t.Error("expected connected state to read as online")
	}
	if (State{Connected: &no}).Online() {
		t.Error("expected disconnected state to read as offline")
	}
}

func TestAlways(t *testing.T) {
	ctx := context.Background()

	if !Always(true).State(ctx).Online() {
		t.Error("expected Always(true) to report online")
	}
	if Always(false).State(ctx).Online() {
		t.Error("expected Always(false) to report offline")
	}
}
