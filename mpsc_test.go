// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ringio_test

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/iox"

	"code.hybscloud.com/ringio"
)

// event is the element pushed by stress producers: a producer id, a
// per-producer sequence number, and a last-element marker.
type event struct {
	id   int32
	seq  int32
	done bool
}

// runMPSC drives producerNum producers of count elements each against a
// single run-consuming consumer and verifies per-producer FIFO, no
// duplication, no loss, and the total count.
func runMPSC(t *testing.T, count int64, producerNum int) {
	t.Helper()

	q := ringio.NewMPSC[event](128)

	var consumerWG sync.WaitGroup
	var total int64
	var wrong int

	consumerWG.Add(1)
	go func() {
		defer consumerWG.Done()
		expected := make([]int32, producerNum)
		finished := make([]bool, producerNum)
		doneCount := 0
		for {
			run, n := q.Peek(10)
			if n < 0 {
				return // canceled
			}
			for i := range run {
				x := &run[i]
				total++
				if x.id < 0 || int(x.id) >= producerNum {
					wrong++
					continue
				}
				if x.seq != expected[x.id] {
					wrong++
				}
				expected[x.id]++
				if finished[x.id] {
					wrong++
				}
				if x.done {
					finished[x.id] = true
					doneCount++
				}
			}
			q.CommitPop()
			if doneCount == producerNum {
				return
			}
		}
	}()

	var producerWG sync.WaitGroup
	for id := range producerNum {
		producerWG.Add(1)
		go func(id int32) {
			defer producerWG.Done()
			backoff := iox.Backoff{}
			for i := int64(0); i < count; {
				x := event{id: id, seq: int32(i), done: i == count-1}
				if i&8 != 0 {
					if !q.Push(&x) {
						t.Error("Push failed without cancellation")
						return
					}
					i++
					backoff.Reset()
				} else if q.TryPush(&x) {
					i++
					backoff.Reset()
				} else {
					backoff.Wait()
				}
			}
		}(int32(id))
	}

	producerWG.Wait()
	consumerWG.Wait()

	if wrong != 0 {
		t.Errorf("ordering violations: %d", wrong)
	}
	if want := count * int64(producerNum); total != want {
		t.Errorf("consumed %d elements, want %d", total, want)
	}
}

func TestMPSCSingleProducer(t *testing.T) {
	if ringio.RaceEnabled {
		t.Skip("skip: lock-free algorithm uses cross-variable memory ordering")
	}
	runMPSC(t, 300000, 1)
}

func TestMPSCTenProducers(t *testing.T) {
	if ringio.RaceEnabled {
		t.Skip("skip: lock-free algorithm uses cross-variable memory ordering")
	}
	runMPSC(t, 400000, 10)
}

// TestMPSCCancelMidStream starts ten producers, cancels ~1ms in, and
// verifies every party returns: producers observe false from Push, the
// consumer observes -1 from Peek, nothing deadlocks.
func TestMPSCCancelMidStream(t *testing.T) {
	if ringio.RaceEnabled {
		t.Skip("skip: lock-free algorithm uses cross-variable memory ordering")
	}

	const (
		rounds      = 50
		producerNum = 10
		sendCount   = 100000
	)

	for range rounds {
		q := ringio.NewMPSC[event](128)
		var wg sync.WaitGroup

		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				run, n := q.Peek(10)
				if n < 0 {
					return // canceled
				}
				_ = run
				q.CommitPop()
			}
		}()

		for id := range producerNum {
			wg.Add(1)
			go func(id int32) {
				defer wg.Done()
				for i := int64(0); i < sendCount; i++ {
					x := event{id: id, seq: int32(i), done: i == sendCount-1}
					if !q.Push(&x) {
						return // canceled
					}
				}
			}(int32(id))
		}

		time.Sleep(time.Millisecond)
		q.Cancel()

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Fatal("cancel did not release all parties")
		}
	}
}

// TestMPSCPeekIdempotent verifies that consecutive peeks without a commit
// report the same run.
func TestMPSCPeekIdempotent(t *testing.T) {
	q := ringio.NewMPSC[int](16)
	for v := range 3 {
		if !q.TryPush(&v) {
			t.Fatal("TryPush failed on empty ring")
		}
	}

	run1, n1 := q.Peek(10)
	run2, n2 := q.Peek(10)
	if n1 != 3 || n2 != 3 {
		t.Fatalf("peek lengths %d, %d, want 3, 3", n1, n2)
	}
	if &run1[0] != &run2[0] {
		t.Error("peeks without commit returned different runs")
	}
	for i := range run1 {
		if run1[i] != i {
			t.Errorf("run[%d] = %d, want %d", i, run1[i], i)
		}
	}

	q.CommitPop()
	if _, n := q.TryPeek(10); n != 0 {
		t.Errorf("TryPeek after commit = %d, want 0", n)
	}
}

// TestMPSCWrapBoundary verifies the consumer gets at most one contiguous
// slice per peek at the wrap boundary.
func TestMPSCWrapBoundary(t *testing.T) {
	q := ringio.NewMPSC[int](8)
	push := func(n int) {
		t.Helper()
		for v := range n {
			if !q.TryPush(&v) {
				t.Fatal("TryPush failed below capacity")
			}
		}
	}

	push(5)
	if _, n := q.Peek(10); n != 5 {
		t.Fatalf("first peek = %d, want 5", n)
	}
	q.CommitPop()

	// readIndex is now 5; six more elements straddle the wrap.
	push(6)
	run, n := q.Peek(10)
	if n != 3 || len(run) != 3 {
		t.Fatalf("wrap peek = %d, want 3 (tail slice only)", n)
	}
	q.CommitPop()
	run, n = q.Peek(10)
	if n != 3 || len(run) != 3 {
		t.Fatalf("post-wrap peek = %d, want 3", n)
	}
	q.CommitPop()
}

// TestMPSCTryVariants covers the non-blocking returns: full and empty are
// normal conditions, cancel is -1/false everywhere.
func TestMPSCTryVariants(t *testing.T) {
	q := ringio.NewMPSC[int](4)

	if _, n := q.TryPeek(1); n != 0 {
		t.Errorf("TryPeek on empty = %d, want 0", n)
	}
	for v := range 3 {
		if !q.TryPush(&v) {
			t.Fatalf("TryPush %d failed below capacity", v)
		}
	}
	v := 99
	if q.TryPush(&v) {
		t.Error("TryPush succeeded on full ring")
	}

	q.Cancel()
	q.Cancel() // idempotent

	if q.TryPush(&v) {
		t.Error("TryPush succeeded after cancel")
	}
	if q.Push(&v) {
		t.Error("Push succeeded after cancel")
	}
	if _, n := q.TryPeek(1); n != -1 {
		t.Errorf("TryPeek after cancel = %d, want -1", n)
	}
	if _, n := q.Peek(1); n != -1 {
		t.Errorf("Peek after cancel = %d, want -1", n)
	}
}

// TestMPSCCancelReleasesBlockedConsumer parks the consumer on an empty ring
// and cancels from another goroutine.
func TestMPSCCancelReleasesBlockedConsumer(t *testing.T) {
	q := ringio.NewMPSC[int](8)

	go func() {
		for ringio.ConsumerWaiters(q) == 0 {
			runtime.Gosched()
		}
		q.Cancel()
	}()

	if _, n := q.Peek(1); n != -1 {
		t.Errorf("Peek = %d, want -1 after cancel", n)
	}
}

// TestMPSCCancelReleasesBlockedProducer fills the ring, parks a producer,
// and cancels.
func TestMPSCCancelReleasesBlockedProducer(t *testing.T) {
	q := ringio.NewMPSC[int](4)
	for v := range 3 {
		q.TryPush(&v)
	}

	go func() {
		for ringio.ProducerWaiters(q) == 0 {
			runtime.Gosched()
		}
		q.Cancel()
	}()

	v := 4
	if q.Push(&v) {
		t.Error("Push succeeded after cancel")
	}
}

// TestMPSCWriteStats checks the high-water and wait counters.
func TestMPSCWriteStats(t *testing.T) {
	q := ringio.NewMPSC[int](4)
	for v := range 3 {
		if !q.TryPush(&v) {
			t.Fatal("TryPush failed below capacity")
		}
	}
	if stats := q.WriteStats(); stats.MaxQueued != 3 {
		t.Errorf("MaxQueued = %d, want 3", stats.MaxQueued)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		v := 4
		q.Push(&v) // parks until the consumer commits
	}()
	for ringio.ProducerWaiters(q) == 0 {
		runtime.Gosched()
	}
	if _, n := q.Peek(1); n != 1 {
		t.Fatalf("Peek = %d, want 1", n)
	}
	q.CommitPop()
	<-done

	if stats := q.WriteStats(); stats.WaitCount < 1 {
		t.Errorf("WaitCount = %d, want >= 1", stats.WaitCount)
	}
}

// TestMPSCQueueAdapters covers the Enqueue/Dequeue error surface.
func TestMPSCQueueAdapters(t *testing.T) {
	var q ringio.Queue[int] = ringio.NewMPSC[int](4)

	if _, err := q.Dequeue(); !ringio.IsWouldBlock(err) {
		t.Errorf("Dequeue on empty = %v, want ErrWouldBlock", err)
	}
	for v := range 3 {
		if err := q.Enqueue(&v); err != nil {
			t.Fatalf("Enqueue %d = %v", v, err)
		}
	}
	v := 99
	if err := q.Enqueue(&v); !ringio.IsWouldBlock(err) {
		t.Errorf("Enqueue on full = %v, want ErrWouldBlock", err)
	}
	for want := range 3 {
		got, err := q.Dequeue()
		if err != nil || got != want {
			t.Fatalf("Dequeue = (%d, %v), want (%d, nil)", got, err, want)
		}
	}

	q.(*ringio.MPSC[int]).Cancel()
	if err := q.Enqueue(&v); !ringio.IsCanceled(err) {
		t.Errorf("Enqueue after cancel = %v, want ErrCanceled", err)
	}
	if _, err := q.Dequeue(); !ringio.IsCanceled(err) {
		t.Errorf("Dequeue after cancel = %v, want ErrCanceled", err)
	}
}

func TestMPSCCapacityPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewMPSC(1) did not panic")
		}
	}()
	ringio.NewMPSC[int](1)
}
