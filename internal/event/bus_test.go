package event

import (
	"log/slog"
	"testing"
)

func TestPublishFanOut(t *testing.T) {
	bus := NewBus(slog.Default())

	a := bus.Subscribe(4)
	b := bus.Subscribe(4)
	if bus.SubscriberCount() != 2 {
		t.Fatalf("subscriber count = %d, want 2", bus.SubscriberCount())
	}

	ev := New(KindPlantAdvanced, PlantAdvanced{PlantID: 1, Stage: 2})
	bus.Publish(ev)

	for name, ch := range map[string]<-chan Event{"a": a, "b": b} {
		select {
		case got := <-ch:
			if got.ID != ev.ID {
				t.Errorf("%s received event %q, want %q", name, got.ID, ev.ID)
			}
			if got.Kind != KindPlantAdvanced {
				t.Errorf("%s received kind %q, want %q", name, got.Kind, KindPlantAdvanced)
			}
		default:
			t.Errorf("subscriber %s received nothing", name)
		}
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	bus := NewBus(slog.Default())
	ch := bus.Subscribe(1)

	// second publish overflows the buffer and is dropped, not stuck
	bus.Publish(New(KindRewardRedeemed, RewardRedeemed{RedemptionID: 1}))
	bus.Publish(New(KindRewardRedeemed, RewardRedeemed{RedemptionID: 2}))

	got := <-ch
	payload, ok := got.Payload.(RewardRedeemed)
	if !ok || payload.RedemptionID != 1 {
		t.Errorf("payload = %#v, want the first redemption", got.Payload)
	}
	select {
	case extra := <-ch:
		t.Errorf("unexpected second event %+v", extra)
	default:
	}
}

func TestEventIDsSortByEmission(t *testing.T) {
	first := New(KindAssignmentSubmitted, nil)
	second := New(KindAssignmentSubmitted, nil)
	if first.ID >= second.ID {
		t.Errorf("ids %q then %q should be increasing", first.ID, second.ID)
	}
	if first.OccurredAt.IsZero() {
		t.Error("occurred-at should be set")
	}
}
