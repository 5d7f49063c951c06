package eventbus

import (
	"sync"
	"testing"
)

func TestBus_FanOut(t *testing.T) {
	bus := New()

	var got1, got2 []string
	bus.SubscribeState(func(ev StateChanged) {
		got1 = append(got1, ev.DeviceID)
	})
	bus.SubscribeState(func(ev StateChanged) {
		got2 = append(got2, ev.DeviceID)
	})

	bus.PublishState(StateChanged{DeviceID: "dev-1"})

	if len(got1) != 1 || got1[0] != "dev-1" {
		t.Errorf("subscriber 1 got %v, want [dev-1]", got1)
	}
	if len(got2) != 1 || got2[0] != "dev-1" {
		t.Errorf("subscriber 2 got %v, want [dev-1]", got2)
	}
}

func TestBus_CancelRemovesSubscriber(t *testing.T) {
	bus := New()

	count := 0
	cancel := bus.SubscribeGateway(func(GatewayStatus) {
		count++
	})

	bus.PublishGateway(GatewayStatus{Online: true})
	cancel()
	bus.PublishGateway(GatewayStatus{Online: false})

	if count != 1 {
		t.Errorf("handler called %d times, want 1", count)
	}

	// Cancelling twice must be safe.
	cancel()
}

func TestBus_PublishWithNoSubscribers(t *testing.T) {
	bus := New()

	// Must not panic.
	bus.PublishState(StateChanged{DeviceID: "dev-1"})
	bus.PublishControl(ControlRequest{DeviceID: "dev-1"})
}

func TestBus_SubscribeDuringPublish(t *testing.T) {
	bus := New()

	var cancel func()
	bus.SubscribeControl(func(ControlRequest) {
		// Subscribing from inside a handler must not deadlock.
		cancel = bus.SubscribeControl(func(ControlRequest) {})
	})

	bus.PublishControl(ControlRequest{DeviceID: "dev-1"})

	if cancel == nil {
		t.Fatal("inner subscribe did not run")
	}
	cancel()
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := New()

	var mu sync.Mutex
	count := 0
	bus.SubscribeState(func(StateChanged) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bus.PublishState(StateChanged{DeviceID: "dev"})
			}
		}()
	}
	wg.Wait()

	if count != 1000 {
		t.Errorf("handler called %d times, want 1000", count)
	}
}
