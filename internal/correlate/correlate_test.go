package correlate

import (
	"errors"
	"testing"

	"knightcam.github.io/camlink/envelope"
	"knightcam.github.io/camlink/internal/result"
)

func TestNextIDUnique(t *testing.T) {
	tbl := New()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := tbl.NextID()
		if seen[id] {
			t.Fatal("duplicate id:", id)
		}
		seen[id] = true
	}
}

func TestOutOfOrderResolution(t *testing.T) {
	tbl := New()
	a := tbl.NextID()
	b := tbl.NextID()
	chA := tbl.Register(a)
	chB := tbl.Register(b)

	if !tbl.Resolve(b, &envelope.Response{ID: b, Success: true}) {
		t.Fatal("resolve b failed")
	}
	if !tbl.Resolve(a, &envelope.Response{ID: a, Success: true}) {
		t.Fatal("resolve a failed")
	}
	if res := <-chB; res.Value().ID != b {
		t.Error("b received wrong response:", res.Value().ID)
	}
	if res := <-chA; res.Value().ID != a {
		t.Error("a received wrong response:", res.Value().ID)
	}
}

func TestResolveExactlyOnce(t *testing.T) {
	tbl := New()
	id := tbl.NextID()
	tbl.Register(id)
	if !tbl.Resolve(id, &envelope.Response{ID: id}) {
		t.Fatal("first resolve failed")
	}
	if tbl.Resolve(id, &envelope.Response{ID: id}) {
		t.Error("second resolve must report no waiter")
	}
	if tbl.Fail(id, errors.New("late")) {
		t.Error("fail after resolve must report no waiter")
	}
}

func TestResolveUnknownID(t *testing.T) {
	tbl := New()
	if tbl.Resolve("0-0", &envelope.Response{ID: "0-0"}) {
		t.Error("resolving an unknown id must report false")
	}
}

func TestRemoveThenResolve(t *testing.T) {
	// The timeout owner removes the entry; a response arriving afterwards
	// finds no waiter.
	tbl := New()
	id := tbl.NextID()
	tbl.Register(id)
	if !tbl.Remove(id) {
		t.Fatal("remove failed")
	}
	if tbl.Resolve(id, &envelope.Response{ID: id}) {
		t.Error("resolve after remove must report false")
	}
	if tbl.Len() != 0 {
		t.Error("table not empty:", tbl.Len())
	}
}

func TestFailAll(t *testing.T) {
	tbl := New()
	var chans []<-chan result.Result[*envelope.Response]
	for i := 0; i < 5; i++ {
		chans = append(chans, tbl.Register(tbl.NextID()))
	}
	tbl.FailAll(errors.New("connection lost"))
	for i, ch := range chans {
		res := <-ch
		if !res.IsErr() {
			t.Errorf("waiter %d not failed", i)
		}
	}
	if tbl.Len() != 0 {
		t.Error("table not drained:", tbl.Len())
	}
}
