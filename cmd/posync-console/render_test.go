package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"posync/internal/conn"
	"posync/internal/domain"
	"posync/internal/state"
)

func TestRenderSnapshot(t *testing.T) {
	var snap state.Snapshot
	snap.Dashboard.TotalSales = decimal.RequireFromString("1218.5")
	snap.Dashboard.OrderCount = 12
	snap.Sales.Orders = 3
	snap.Expense.ByCategory = map[string]decimal.Decimal{
		"rent":      decimal.NewFromInt(900),
		"utilities": decimal.NewFromInt(100),
	}
	snap.Expense.CategoryPct = map[string]float64{"rent": 90, "utilities": 10}

	out := renderSnapshot(snap, state.AggSales)
	for _, want := range []string{"Dashboard", "$1,218.50", "Sales", "Stock", "Expenses", "rent", "90.0%", "utilities"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered snapshot missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "rent") > strings.Index(out, "utilities") {
		t.Error("expense categories not sorted")
	}
	if strings.Contains(out, "updated") {
		t.Error("zero UpdatedAt should not render an updated line")
	}
}

func TestHeaderText(t *testing.T) {
	got := headerText(conn.Status{State: domain.StateReconnecting, ReconnectAttempts: 2}, "localhost:8080", false)
	for _, want := range []string{"sync: reconnecting", "(attempt 2)", "stream: down"} {
		if !strings.Contains(got, want) {
			t.Errorf("headerText = %q, missing %q", got, want)
		}
	}

	got = headerText(conn.Status{Connected: true, State: domain.StateConnected}, "localhost:8080", true)
	if strings.Contains(got, "attempt") || !strings.Contains(got, "stream: live") {
		t.Errorf("headerText = %q, want live stream without attempts", got)
	}
}

func TestPadOrTrunc(t *testing.T) {
	if got := padOrTrunc("abc", 5); got != "abc  " {
		t.Errorf("padOrTrunc pad = %q, want %q", got, "abc  ")
	}
	if got := padOrTrunc("abcdef", 4); got != "abcd" {
		t.Errorf("padOrTrunc trunc = %q, want %q", got, "abcd")
	}
}

func TestModelAppliesChanges(t *testing.T) {
	m := initialModel("localhost:8080", func() {})
	next, _ := m.Update(changeMsg{change: state.Change{Aggregate: state.AggDashboard}})
	got := next.(model)
	if !got.streaming || got.changed != state.AggDashboard {
		t.Errorf("after change: streaming = %t, changed = %q", got.streaming, got.changed)
	}

	next, _ = got.Update(streamDownMsg{err: errors.New("stream closed")})
	got = next.(model)
	if got.streaming || got.streamErr == nil {
		t.Errorf("after stream down: streaming = %t, err = %v", got.streaming, got.streamErr)
	}
}

func TestRequestReconnect(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/reconnect" {
			http.NotFound(w, r)
			return
		}
		calls++
		if calls > 1 {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"success":false,"errors":["no sync url to reconnect to"]}`))
			return
		}
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	msg := requestReconnect(srv.Client(), srv.URL)().(reconnectMsg)
	if msg.err != nil {
		t.Errorf("first reconnect err = %v, want nil", msg.err)
	}
	msg = requestReconnect(srv.Client(), srv.URL)().(reconnectMsg)
	if msg.err == nil || !strings.Contains(msg.err.Error(), "no sync url") {
		t.Errorf("second reconnect err = %v, want conflict with reason", msg.err)
	}

	m := initialModel("localhost:8080", func() {})
	next, cmd := m.Update(msg)
	if got := next.(model).notice; !strings.Contains(got, "409") {
		t.Errorf("notice = %q, want the conflict status", got)
	}
	if cmd == nil {
		t.Error("reconnect result should refresh status")
	}
}
