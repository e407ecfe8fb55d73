package waitq

import (
	"sync"
	"testing"
)

func TestDequeueEmpty(t *testing.T) {
	q := New[uint64]()
	if v, ok := q.Dequeue(); ok {
		t.Fatalf("expected empty dequeue, got %d", v)
	}
	if got := q.Len(); got != 0 {
		t.Fatalf("expected len 0, got %d", got)
	}
}

func TestFIFOOrder(t *testing.T) {
	q := New[int]()
	for i := 0; i < 100; i++ {
		q.Enqueue(i)
	}
	if got := q.Len(); got != 100 {
		t.Fatalf("expected len 100, got %d", got)
	}
	for i := 0; i < 100; i++ {
		v, ok := q.Dequeue()
		if !ok {
			t.Fatalf("queue empty at element %d", i)
		}
		if v != i {
			t.Fatalf("out of order: want %d, got %d", i, v)
		}
	}
	if _, ok := q.Dequeue(); ok {
		t.Fatalf("queue should be empty after draining")
	}
}

func TestInterleavedEnqueueDequeue(t *testing.T) {
	q := New[int]()
	q.Enqueue(1)
	q.Enqueue(2)
	if v, _ := q.Dequeue(); v != 1 {
		t.Fatalf("want 1, got %d", v)
	}
	q.Enqueue(3)
	if v, _ := q.Dequeue(); v != 2 {
		t.Fatalf("want 2, got %d", v)
	}
	if v, _ := q.Dequeue(); v != 3 {
		t.Fatalf("want 3, got %d", v)
	}
}

func TestConcurrentExactlyOnce(t *testing.T) {
	const (
		producers   = 8
		consumers   = 8
		perProducer = 1000
	)
	q := New[int]()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			base := p * perProducer
			for i := 0; i < perProducer; i++ {
				q.Enqueue(base + i)
			}
		}()
	}
	wg.Wait()

	results := make(chan int, producers*perProducer)
	var cg sync.WaitGroup
	for n := 0; n < consumers; n++ {
		cg.Add(1)
		go func() {
			defer cg.Done()
			for {
				v, ok := q.Dequeue()
				if !ok {
					return
				}
				results <- v
			}
		}()
	}
	cg.Wait()
	close(results)

	seen := make(map[int]int, producers*perProducer)
	for v := range results {
		seen[v]++
	}
	if len(seen) != producers*perProducer {
		t.Fatalf("expected %d distinct values, got %d", producers*perProducer, len(seen))
	}
	for v, n := range seen {
		if n != 1 {
			t.Fatalf("value %d delivered %d times", v, n)
		}
	}
}

func TestConcurrentProducerConsumer(t *testing.T) {
	const total = 4000
	q := New[int]()

	done := make(chan struct{})
	got := make([]int, 0, total)
	go func() {
		defer close(done)
		for len(got) < total {
			if v, ok := q.Dequeue(); ok {
				got = append(got, v)
			}
		}
	}()
	for i := 0; i < total; i++ {
		q.Enqueue(i)
	}
	<-done

	// Single producer, single consumer: full order must survive.
	for i, v := range got {
		if v != i {
			t.Fatalf("order violated at %d: got %d", i, v)
		}
	}
}

func TestPerProducerOrderPreserved(t *testing.T) {
	// With multiple producers the global order is interleaved, but each
	// producer's own values must come out in their enqueue order.
	const (
		producers   = 4
		perProducer = 500
	)
	q := New[[2]int]()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue([2]int{p, i})
			}
		}()
	}
	wg.Wait()

	last := make([]int, producers)
	for i := range last {
		last[i] = -1
	}
	for {
		v, ok := q.Dequeue()
		if !ok {
			break
		}
		p, seq := v[0], v[1]
		if seq <= last[p] {
			t.Fatalf("producer %d order violated: %d after %d", p, seq, last[p])
		}
		last[p] = seq
	}
	for p, l := range last {
		if l != perProducer-1 {
			t.Fatalf("producer %d: lost values after %d", p, l)
		}
	}
}
