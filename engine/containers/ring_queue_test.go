package containers

import (
	"errors"
	"testing"
)

func TestRingQueueOrder(t *testing.T) {
	q := NewRingQueue[int](3)
	for i := 1; i <= 3; i++ {
		if err := q.Enqueue(i); err != nil {
			t.Fatal(err)
		}
	}
	if err := q.Enqueue(4); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v", err)
	}
	if v, _ := q.Peek(); v != 1 {
		t.Errorf("peek = %d", v)
	}
	for want := 1; want <= 3; want++ {
		v, err := q.Dequeue()
		if err != nil || v != want {
			t.Fatalf("dequeue = %d, %v", v, err)
		}
	}
	if _, err := q.Dequeue(); !errors.Is(err, ErrQueueEmpty) {
		t.Fatalf("err = %v", err)
	}
}

func TestRingQueuePushDropsOldest(t *testing.T) {
	q := NewRingQueue[float64](2)
	q.Push(1)
	q.Push(2)
	q.Push(3)
	var got []float64
	q.Each(func(v float64) { got = append(got, v) })
	if len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Errorf("got %v", got)
	}
}
