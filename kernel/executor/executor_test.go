package executor

import "testing"

type fakeCoroutine struct {
	name    string
	polls   int
	didWork bool
}

func (f *fakeCoroutine) Name() string { return f.name }
func (f *fakeCoroutine) Poll() bool {
	f.polls++
	return f.didWork
}

func TestTickPollsEveryRegisteredCoroutine(t *testing.T) {
	saved := coroutines
	defer func() { coroutines = saved }()
	coroutines = nil

	a := &fakeCoroutine{name: "a"}
	b := &fakeCoroutine{name: "b", didWork: true}
	Register(a)
	Register(b)

	Tick()

	if a.polls != 1 || b.polls != 1 {
		t.Fatalf("expected each coroutine polled once, got a=%d b=%d", a.polls, b.polls)
	}
}

func TestTickNeverBlocksWhenSemaphoreExhausted(t *testing.T) {
	saved := coroutines
	defer func() { coroutines = saved }()
	coroutines = nil

	if !sem.TryAcquire(maxInFlight) {
		t.Fatal("expected to exhaust the semaphore for this test")
	}
	defer sem.Release(maxInFlight)

	c := &fakeCoroutine{name: "starved"}
	Register(c)

	Tick()

	if c.polls != 0 {
		t.Fatalf("expected starved coroutine to be skipped, got %d polls", c.polls)
	}
}
