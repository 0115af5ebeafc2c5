package notify

import "testing"

func TestAlertCoalescesPendingCalls(t *testing.T) {
	prepareCalls := 0
	a := NewAlert(func() { prepareCalls++ })
	notifyCalls := 0
	a.Subscribe(func() { notifyCalls++ })

	for i := 0; i < 5; i++ {
		a.Pending()
	}
	a.Dispatch()

	if prepareCalls != 1 {
		t.Fatalf("prepareCalls = %d, want 1", prepareCalls)
	}
	if notifyCalls != 1 {
		t.Fatalf("notifyCalls = %d, want 1", notifyCalls)
	}
}

func TestAlertDispatchWithoutPendingIsNoop(t *testing.T) {
	calls := 0
	a := NewAlert(nil)
	a.Subscribe(func() { calls++ })

	a.Dispatch()
	if calls != 0 {
		t.Fatalf("calls = %d, want 0 (nothing was pending)", calls)
	}
}

func TestAlertUnsubscribe(t *testing.T) {
	calls := 0
	a := NewAlert(nil)
	id := a.Subscribe(func() { calls++ })
	a.Unsubscribe(id)

	a.Pending()
	a.Dispatch()
	if calls != 0 {
		t.Fatalf("calls = %d, want 0 after unsubscribe", calls)
	}
}

func TestAlertMultipleSubscribers(t *testing.T) {
	a := NewAlert(nil)
	n := 0
	a.Subscribe(func() { n++ })
	a.Subscribe(func() { n++ })

	a.Pending()
	a.Dispatch()
	if n != 2 {
		t.Fatalf("n = %d, want 2", n)
	}
}
