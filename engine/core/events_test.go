package core

import "testing"

func TestEventBusDispatchOrder(t *testing.T) {
	bus := NewEventBus()
	var calls []string
	first, second := "first", "second"
	record := func(handled bool) FnOnEvent {
		return func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
			calls = append(calls, listener.(string))
			return handled
		}
	}
	if !bus.Register(EVENT_CODE_RESIZED, first, record(false)) {
		t.Fatal("first registration refused")
	}
	if !bus.Register(EVENT_CODE_RESIZED, second, record(true)) {
		t.Fatal("second registration refused")
	}
	if bus.Register(EVENT_CODE_RESIZED, first, record(false)) {
		t.Error("duplicate listener accepted")
	}

	if !bus.Fire(EVENT_CODE_RESIZED, nil, EventContext{Width: 640, Height: 480}) {
		t.Error("event not reported handled")
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Errorf("calls = %v", calls)
	}
	if bus.Fire(EVENT_CODE_APPLICATION_QUIT, nil, EventContext{}) {
		t.Error("event without listeners reported handled")
	}
}

func TestEventBusUnregister(t *testing.T) {
	bus := NewEventBus()
	a, b := "a", "b"
	var got []string
	cb := func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
		got = append(got, listener.(string))
		return false
	}
	bus.Register(EVENT_CODE_ASSET_CHANGED, a, cb)
	bus.Register(EVENT_CODE_ASSET_CHANGED, b, cb)

	if !bus.Unregister(EVENT_CODE_ASSET_CHANGED, a) {
		t.Fatal("unregister failed")
	}
	if bus.Unregister(EVENT_CODE_ASSET_CHANGED, a) {
		t.Error("second unregister succeeded")
	}
	bus.Fire(EVENT_CODE_ASSET_CHANGED, nil, EventContext{Name: "textures/grid.dds"})
	if len(got) != 1 || got[0] != "b" {
		t.Errorf("remaining listeners = %v", got)
	}
}
