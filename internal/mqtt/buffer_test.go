package mqtt

import (
	"fmt"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func msg(i int) bufferedMsg {
	return bufferedMsg{topic: Topic, payload: []byte(fmt.Sprintf("%d", i))}
}

func payloads(msgs []bufferedMsg) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = string(m.payload)
	}
	return out
}

func TestOfflineQueueTake(t *testing.T) {
	tests := []struct {
		name        string
		capacity    int
		adds        int
		want        []string
		wantDropped uint64
	}{
		{"empty", 4, 0, nil, 0},
		{"partial", 4, 3, []string{"0", "1", "2"}, 0},
		{"exactly full", 4, 4, []string{"0", "1", "2", "3"}, 0},
		{"overflow keeps newest", 4, 7, []string{"3", "4", "5", "6"}, 3},
		{"wraps twice", 3, 8, []string{"5", "6", "7"}, 5},
		{"capacity clamped to one", 0, 3, []string{"2"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newOfflineQueue(tt.capacity, nil)
			for i := 0; i < tt.adds; i++ {
				q.add(msg(i))
			}
			got, dropped := q.take()
			if fmt.Sprint(payloads(got)) != fmt.Sprint(tt.want) {
				t.Errorf("take: got %v, want %v", payloads(got), tt.want)
			}
			if dropped != tt.wantDropped {
				t.Errorf("dropped: got %d, want %d", dropped, tt.wantDropped)
			}
			if q.len() != 0 {
				t.Errorf("len after take: got %d", q.len())
			}
		})
	}
}

func TestOfflineQueueReuseAfterTake(t *testing.T) {
	q := newOfflineQueue(3, nil)
	for i := 0; i < 5; i++ {
		q.add(msg(i))
	}
	q.take()

	q.add(msg(10))
	q.add(msg(11))
	if q.len() != 2 {
		t.Fatalf("len: got %d, want 2", q.len())
	}
	got, dropped := q.take()
	if fmt.Sprint(payloads(got)) != "[10 11]" {
		t.Errorf("second take: got %v", payloads(got))
	}
	if dropped != 0 {
		t.Errorf("dropped should reset on take, got %d", dropped)
	}
}

func TestOfflineQueueKeepsMessageFields(t *testing.T) {
	q := newOfflineQueue(2, nil)
	q.add(bufferedMsg{topic: TopicSystem, payload: []byte("{}"), qos: 1, retained: true})

	got, _ := q.take()
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	m := got[0]
	if m.topic != TopicSystem || m.qos != 1 || !m.retained || string(m.payload) != "{}" {
		t.Errorf("fields not preserved: %+v", m)
	}
}

func TestOfflineQueueWarnsOncePerOutage(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	q := newOfflineQueue(2, zap.New(core))

	for i := 0; i < 6; i++ {
		q.add(msg(i))
	}
	if n := logs.FilterMessage("mqtt offline queue full, dropping oldest").Len(); n != 1 {
		t.Fatalf("expected 1 warning, got %d", n)
	}

	q.take()
	for i := 0; i < 3; i++ {
		q.add(msg(i))
	}
	if n := logs.Len(); n != 2 {
		t.Errorf("expected a new warning after take, got %d total", n)
	}
}
