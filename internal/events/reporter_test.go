package events

import (
	"context"
	"errors"
	"testing"

	"github.com/qboard/qboard/internal/engine"
)

type recordingConsumer struct {
	events []string
	fail   error
}

func (c *recordingConsumer) Consume(_ context.Context, event string, _ engine.Actor, _ map[string]any) error {
	c.events = append(c.events, event)
	return c.fail
}

func TestBusDeliversInOrder(t *testing.T) {
	first := &recordingConsumer{}
	second := &recordingConsumer{}
	bus := NewBus(nil, first, second)

	bus.Report(context.Background(), "q_hide", engine.Actor{Handle: "mod"}, map[string]any{"postid": int64(1)})
	bus.Report(context.Background(), "q_reshow", engine.Actor{Handle: "mod"}, nil)

	for _, c := range []*recordingConsumer{first, second} {
		if len(c.events) != 2 || c.events[0] != "q_hide" || c.events[1] != "q_reshow" {
			t.Errorf("consumer events = %v, want [q_hide q_reshow]", c.events)
		}
	}
}

func TestBusFailingConsumerDoesNotBlockOthers(t *testing.T) {
	first := &recordingConsumer{fail: errors.New("consumer down")}
	second := &recordingConsumer{}
	bus := NewBus(nil, first, second)

	bus.Report(context.Background(), "q_delete", engine.Actor{}, nil)

	if len(second.events) != 1 {
		t.Errorf("second consumer events = %v, want delivery despite first failing", second.events)
	}
}
