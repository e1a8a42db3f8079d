package observable

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubjectReplaysCurrentValue(t *testing.T) {
	s := NewSubject(1)
	s.Publish(2)

	var got []int
	cancel := s.Subscribe(func(v int) { got = append(got, v) })
	defer cancel()

	s.Publish(3)
	assert.Equal(t, []int{2, 3}, got)
	assert.Equal(t, 3, s.Value())
}

func TestSubjectCancelStopsDelivery(t *testing.T) {
	s := NewSubject("a")
	var got []string
	cancel := s.Subscribe(func(v string) { got = append(got, v) })
	assert.Equal(t, 1, s.Subscribers())

	cancel()
	cancel()
	s.Publish("b")

	assert.Equal(t, []string{"a"}, got)
	assert.Equal(t, 0, s.Subscribers())
}

func TestSubjectDeliversInSubscriptionOrder(t *testing.T) {
	s := NewSubject(0)
	var order []string
	s.Subscribe(func(int) { order = append(order, "first") })
	s.Subscribe(func(int) { order = append(order, "second") })
	order = nil

	s.Publish(1)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestSubjectSerializesConcurrentPublishers(t *testing.T) {
	s := NewSubject(0)
	var mu sync.Mutex
	seen := 0
	inFlight := 0
	overlap := false
	s.Subscribe(func(int) {
		mu.Lock()
		inFlight++
		if inFlight > 1 {
			overlap = true
		}
		mu.Unlock()

		mu.Lock()
		inFlight--
		seen++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			s.Publish(v)
		}(i)
	}
	wg.Wait()

	assert.False(t, overlap)
	assert.Equal(t, 51, seen)
}

func TestBusDoesNotReplay(t *testing.T) {
	b := NewBus[string]()
	b.Publish("lost")

	var got []string
	cancel := b.Subscribe(func(v string) { got = append(got, v) })
	b.Publish("kept")
	cancel()
	b.Publish("after cancel")

	assert.Equal(t, []string{"kept"}, got)
}
