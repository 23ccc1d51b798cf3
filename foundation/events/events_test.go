package events_test

import (
	"testing"

	"github.com/ardanlabs/utxochain/foundation/events"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

func Test_Events(t *testing.T) {
	evts := events.New()

	t.Log("Given the need to deliver node events to receivers.")
	{
		all := evts.Acquire("all")
		blocks := evts.Acquire("blocks", "viewer: block:")

		evts.Send("viewer: block: {}")
		evts.Send("peer: connection open")

		if len(all) != 2 {
			t.Fatalf("\t%s\tShould deliver every event to an unfiltered receiver: %d", failed, len(all))
		}
		t.Logf("\t%s\tShould deliver every event to an unfiltered receiver.", success)

		if len(blocks) != 1 || <-blocks != "viewer: block: {}" {
			t.Fatalf("\t%s\tShould deliver only matching events to a filtered receiver.", failed)
		}
		t.Logf("\t%s\tShould deliver only matching events to a filtered receiver.", success)

		if evts.Acquire("all") != all {
			t.Fatalf("\t%s\tShould return the same channel for the same id.", failed)
		}
		t.Logf("\t%s\tShould return the same channel for the same id.", success)

		for i := 0; i < 200; i++ {
			evts.Send("peer: flood")
		}
		t.Logf("\t%s\tShould not block on a full receiver.", success)
	}

	t.Log("Given the need to release receivers.")
	{
		if err := evts.Release("blocks"); err != nil {
			t.Fatalf("\t%s\tShould release a receiver: %s", failed, err)
		}
		if err := evts.Release("blocks"); err == nil {
			t.Fatalf("\t%s\tShould fail to release an unknown receiver.", failed)
		}
		t.Logf("\t%s\tShould release a receiver only once.", success)

		ch := evts.Acquire("late")
		evts.Shutdown()

		if _, open := <-ch; open {
			t.Fatalf("\t%s\tShould close every channel on shutdown.", failed)
		}
		if evts.Len() != 0 {
			t.Fatalf("\t%s\tShould remove every receiver on shutdown.", failed)
		}
		t.Logf("\t%s\tShould close every channel on shutdown.", success)
	}
}
