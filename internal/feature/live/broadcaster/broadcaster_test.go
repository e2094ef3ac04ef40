package broadcaster

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	feedentity "stock_realtime/internal/feature/feed/domain/entity"
)

func tick(symbol string, price float64) feedentity.Tick {
	return feedentity.Tick{Symbol: symbol, Price: price, Volume: 1, Time: time.Now()}
}

func recv(t *testing.T, s *Subscription) Event {
	t.Helper()
	select {
	case ev := <-s.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

// reason は購読終了の理由を返します。終了前は nil です。
func (s *Subscription) reason() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

func (b *Broadcaster) count(symbol string) int {
	v, ok := b.lists.Load(symbol)
	if !ok {
		return 0
	}
	return len(v.(*subscriberList).snapshot())
}

func TestBroadcaster_NoSubscribersIsNoop(t *testing.T) {
	t.Parallel()

	b := New(time.Minute, 4)
	assert.Equal(t, 0, b.Broadcast("AAPL", tick("AAPL", 1)))
	assert.Equal(t, 0, b.count("AAPL"))
}

// TestBroadcaster_SubscribeAcksThenDelivers は接続通知の後にティックが届くことを検証します。
func TestBroadcaster_SubscribeAcksThenDelivers(t *testing.T) {
	t.Parallel()

	b := New(time.Minute, 4)
	s := b.Subscribe("AAPL")
	defer s.Close()
	other := b.Subscribe("MSFT")
	defer other.Close()

	ack := recv(t, s)
	assert.Equal(t, EventConnected, ack.Name)
	assert.NotEmpty(t, s.ID)

	assert.Equal(t, 1, b.Broadcast("AAPL", tick("AAPL", 185.5)))

	ev := recv(t, s)
	assert.Equal(t, EventTick, ev.Name)
	got, ok := ev.Data.(feedentity.Tick)
	require.True(t, ok)
	assert.Equal(t, 185.5, got.Price)

	// MSFT の購読者には接続通知のみ
	assert.Equal(t, EventConnected, recv(t, other).Name)
	select {
	case ev := <-other.Events():
		t.Fatalf("unexpected event for other symbol: %+v", ev)
	default:
	}
}

// TestBroadcaster_SlowSubscriberRemoved はキューが満杯の購読者のみが削除され、以後配信されないことを検証します。
func TestBroadcaster_SlowSubscriberRemoved(t *testing.T) {
	t.Parallel()

	b := New(time.Minute, 2)
	slow := b.Subscribe("AAPL") // queue: [connected]
	fast := b.Subscribe("AAPL")
	defer fast.Close()
	recv(t, fast)

	assert.Equal(t, 2, b.Broadcast("AAPL", tick("AAPL", 1))) // slow queue now full
	recv(t, fast)

	assert.Equal(t, 1, b.Broadcast("AAPL", tick("AAPL", 2))) // slow fails here
	recv(t, fast)

	select {
	case <-slow.Done():
	case <-time.After(time.Second):
		t.Fatal("slow subscriber was not removed")
	}
	assert.ErrorIs(t, slow.reason(), ErrSubscriberSlow)
	assert.Equal(t, 1, b.count("AAPL"))

	// drain the slow queue; nothing after the failure must arrive
	assert.Equal(t, 1, b.Broadcast("AAPL", tick("AAPL", 3)))
	assert.Len(t, slow.Events(), 2)
}

func TestBroadcaster_CloseUnsubscribes(t *testing.T) {
	t.Parallel()

	b := New(time.Minute, 4)
	s := b.Subscribe("AAPL")
	assert.Equal(t, 1, b.count("AAPL"))
	assert.Nil(t, s.reason())

	s.Close()
	s.Close()
	assert.Equal(t, 0, b.count("AAPL"))
	assert.ErrorIs(t, s.reason(), ErrSubscriberClosed)
	assert.Equal(t, 0, b.Broadcast("AAPL", tick("AAPL", 1)))
}

// TestBroadcaster_IdleTimeout は有効期限経過で購読が自動的に削除されることを検証します。
func TestBroadcaster_IdleTimeout(t *testing.T) {
	t.Parallel()

	b := New(30*time.Millisecond, 4)
	s := b.Subscribe("AAPL")

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription did not expire")
	}
	assert.ErrorIs(t, s.reason(), ErrSubscriberTimeout)
	assert.Equal(t, 0, b.count("AAPL"))
}

func TestBroadcaster_CloseAll(t *testing.T) {
	t.Parallel()

	b := New(time.Minute, 4)
	a := b.Subscribe("AAPL")
	m := b.Subscribe("MSFT")

	b.CloseAll()
	assert.ErrorIs(t, a.reason(), ErrSubscriberClosed)
	assert.ErrorIs(t, m.reason(), ErrSubscriberClosed)
	assert.Equal(t, 0, b.count("AAPL")+b.count("MSFT"))
}

// TestBroadcaster_ConcurrentSubscribeAndBroadcast は配信中の購読追加・削除で競合やパニックが起きないことを検証します。
func TestBroadcaster_ConcurrentSubscribeAndBroadcast(t *testing.T) {
	t.Parallel()

	b := New(time.Minute, 1024)
	stop := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				b.Broadcast("AAPL", tick("AAPL", 1))
			}
		}
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				s := b.Subscribe("AAPL")
				s.Close()
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(stop)
	wg.Wait()
	assert.Equal(t, 0, b.count("AAPL"))
}

// TestBroadcaster_LastSubscriberDropsSymbol は最後の購読者が抜けると銘柄のエントリが消え、再購読できることを検証します。
func TestBroadcaster_LastSubscriberDropsSymbol(t *testing.T) {
	t.Parallel()

	tracked := func(b *Broadcaster, symbol string) bool {
		_, ok := b.lists.Load(symbol)
		return ok
	}

	b := New(time.Minute, 4)
	first := b.Subscribe("AAPL")
	second := b.Subscribe("AAPL")
	assert.True(t, tracked(b, "AAPL"))

	first.Close()
	assert.True(t, tracked(b, "AAPL"))
	second.Close()
	assert.False(t, tracked(b, "AAPL"))

	// 一度しか購読されない多数の銘柄もエントリを残さない
	for i := 0; i < 100; i++ {
		b.Subscribe(fmt.Sprintf("SYM%03d", i)).Close()
	}
	n := 0
	b.lists.Range(func(_, _ any) bool { n++; return true })
	assert.Zero(t, n)

	again := b.Subscribe("AAPL")
	defer again.Close()
	recv(t, again)
	assert.Equal(t, 1, b.Broadcast("AAPL", tick("AAPL", 2)))
	assert.Equal(t, EventTick, recv(t, again).Name)
}

// TestBroadcaster_ResubscribeRacesRemoval は最後の購読解除と新規購読が競合しても購読が失われないことを検証します。
func TestBroadcaster_ResubscribeRacesRemoval(t *testing.T) {
	t.Parallel()

	b := New(time.Minute, 4)
	for i := 0; i < 500; i++ {
		old := b.Subscribe("AAPL")
		var (
			wg    sync.WaitGroup
			fresh *Subscription
		)
		wg.Add(2)
		go func() { defer wg.Done(); old.Close() }()
		go func() { defer wg.Done(); fresh = b.Subscribe("AAPL") }()
		wg.Wait()

		require.Equal(t, 1, b.count("AAPL"))
		fresh.Close()
		require.Zero(t, b.count("AAPL"))
	}
}
