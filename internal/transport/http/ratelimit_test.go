package http

import (
	"sync"
	"testing"
)

func TestRateLimiterAllowsUpToLimit(t *testing.T) {
	r := newRateLimiter(3)
	for i := 0; i < 3; i++ {
		if !r.allow() {
			t.Fatalf("request %d denied below the limit", i)
		}
	}
	if r.allow() {
		t.Fatal("request above the limit allowed")
	}

	r.counter.Store(0)
	if !r.allow() {
		t.Fatal("request denied after reset")
	}
}

func TestRateLimiterUnlimited(t *testing.T) {
	var nilLimiter *rateLimiter
	if !nilLimiter.allow() {
		t.Fatal("nil limiter denied a request")
	}
	if !newRateLimiter(0).allow() {
		t.Fatal("zero-limit limiter denied a request")
	}
}

func TestRateLimiterConcurrentAllow(t *testing.T) {
	r := newRateLimiter(10000)
	stop := make(chan struct{})
	r.startReset(stop)
	defer close(stop)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.allow()
			}
		}()
	}
	wg.Wait()

	if got := r.counter.Load(); got != 800 {
		t.Fatalf("lost increments under concurrency: %d", got)
	}
}
