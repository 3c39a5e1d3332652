package router

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"

	"posync/internal/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func env(msgType, payload string) domain.Envelope {
	return domain.Envelope{Type: msgType, Payload: json.RawMessage(payload)}
}

func TestDispatchOrderAndPayload(t *testing.T) {
	r := New(quietLogger())
	var got []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		r.Subscribe(domain.MsgSalesMetrics, func(p json.RawMessage) error {
			got = append(got, name+":"+string(p))
			return nil
		})
	}
	r.Subscribe(domain.MsgInventoryUpdate, func(json.RawMessage) error {
		t.Error("handler for another type was invoked")
		return nil
	})

	n := r.Dispatch(env(domain.MsgSalesMetrics, `{"x":1}`))
	if n != 3 {
		t.Errorf("Dispatch delivered %d, want 3", n)
	}
	want := []string{`a:{"x":1}`, `b:{"x":1}`, `c:{"x":1}`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("dispatch order = %v, want %v", got, want)
	}
}

func TestDispatchNoSubscribers(t *testing.T) {
	r := New(quietLogger())
	if n := r.Dispatch(env("nobody", `{}`)); n != 0 {
		t.Errorf("Dispatch delivered %d, want 0", n)
	}
}

func TestDispatchIsolatesFailures(t *testing.T) {
	r := New(quietLogger())
	var calls []int
	r.Subscribe("t", func(json.RawMessage) error { calls = append(calls, 1); return errors.New("boom") })
	r.Subscribe("t", func(json.RawMessage) error { calls = append(calls, 2); panic("kaboom") })
	r.Subscribe("t", func(json.RawMessage) error { calls = append(calls, 3); return nil })

	n := r.Dispatch(env("t", `null`))
	if n != 1 {
		t.Errorf("Dispatch delivered %d, want 1", n)
	}
	if !reflect.DeepEqual(calls, []int{1, 2, 3}) {
		t.Errorf("calls = %v, want [1 2 3]", calls)
	}
}

func TestUnsubscribeDuringDispatch(t *testing.T) {
	r := New(quietLogger())
	var calls []string
	var idB int
	r.Subscribe("t", func(json.RawMessage) error {
		calls = append(calls, "a")
		r.Unsubscribe(idB)
		return nil
	})
	idB = r.Subscribe("t", func(json.RawMessage) error {
		calls = append(calls, "b")
		return nil
	})
	r.Subscribe("t", func(json.RawMessage) error {
		calls = append(calls, "c")
		return nil
	})

	r.Dispatch(env("t", `1`))
	if !reflect.DeepEqual(calls, []string{"a", "c"}) {
		t.Errorf("first dispatch calls = %v, want [a c]", calls)
	}

	calls = nil
	r.Dispatch(env("t", `2`))
	if !reflect.DeepEqual(calls, []string{"a", "c"}) {
		t.Errorf("second dispatch calls = %v, want [a c]", calls)
	}
	if got := r.Count("t"); got != 2 {
		t.Errorf("Count = %d, want 2", got)
	}
}

func TestSelfUnsubscribeAndSubscribeDuringDispatch(t *testing.T) {
	r := New(quietLogger())
	var calls []string
	var self int
	self = r.Subscribe("t", func(json.RawMessage) error {
		calls = append(calls, "once")
		r.Unsubscribe(self)
		r.Subscribe("t", func(json.RawMessage) error {
			calls = append(calls, "late")
			return nil
		})
		return nil
	})
	r.Subscribe("t", func(json.RawMessage) error {
		calls = append(calls, "steady")
		return nil
	})

	r.Dispatch(env("t", `1`))
	r.Dispatch(env("t", `2`))

	want := []string{"once", "steady", "steady", "late"}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestUnsubscribeUnknownAndTwice(t *testing.T) {
	r := New(quietLogger())
	id := r.Subscribe("t", func(json.RawMessage) error { return nil })
	r.Unsubscribe(id)
	r.Unsubscribe(id)
	r.Unsubscribe(9999)
	if got := r.Count("t"); got != 0 {
		t.Errorf("Count = %d, want 0", got)
	}
}

func TestConcurrentSubscribeDispatch(t *testing.T) {
	r := New(quietLogger())
	var mu sync.Mutex
	total := 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := r.Subscribe("t", func(json.RawMessage) error {
					mu.Lock()
					total++
					mu.Unlock()
					return nil
				})
				r.Dispatch(env("t", `{}`))
				r.Unsubscribe(id)
			}
		}()
	}
	wg.Wait()
	if r.Count("t") != 0 {
		t.Errorf("Count = %d after all unsubscribes, want 0", r.Count("t"))
	}
	mu.Lock()
	defer mu.Unlock()
	if total < 400 {
		t.Errorf("total deliveries = %d, want at least 400", total)
	}
}
