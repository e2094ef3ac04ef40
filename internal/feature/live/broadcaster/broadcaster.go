// Package broadcaster fans out live ticks to per-symbol subscribers.
package broadcaster

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	feedentity "stock_realtime/internal/feature/feed/domain/entity"
	"stock_realtime/internal/platform/metrics"
)

var (
	// ErrSubscriberTimeout は購読の有効期限切れを表します。
	ErrSubscriberTimeout = errors.New("subscriber timed out")
	// ErrSubscriberSlow means the subscriber's buffer was full when a tick arrived.
	ErrSubscriberSlow = errors.New("subscriber too slow")
	// ErrSubscriberClosed means the subscriber or the broadcaster closed the subscription.
	ErrSubscriberClosed = errors.New("subscriber closed")
)

const (
	// DefaultIdleTimeout is the fixed lifetime of a subscription.
	DefaultIdleTimeout = 30 * time.Minute
	// DefaultBuffer is the per-subscriber event queue length.
	DefaultBuffer = 64

	EventConnected = "connected"
	EventTick      = "tick"
)

// Event is one message delivered to a subscriber.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// Subscription is a live registration under one symbol.
// Events is never closed; consumers select on Done as well.
type Subscription struct {
	ID     string
	Symbol string

	events       chan Event
	done         chan struct{}
	once         sync.Once
	err   error
	timer atomic.Pointer[time.Timer]
	owner *Broadcaster
}

// Events returns the subscriber's event queue.
func (s *Subscription) Events() <-chan Event { return s.events }

// Done is closed once the subscription has been removed.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	s.finish(ErrSubscriberClosed)
}

// Fail removes the subscription after a transport error.
func (s *Subscription) Fail(err error) {
	s.finish(err)
}

func (s *Subscription) finish(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.done)
		if t := s.timer.Load(); t != nil {
			t.Stop()
		}
		s.owner.remove(s)
		slog.Debug("live subscriber removed", "symbol", s.Symbol, "id", s.ID, "reason", err)
	})
}

// push は購読者のキューに非ブロッキングで送信します。満杯なら購読を終了します。
func (s *Subscription) push(ev Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	default:
		s.finish(ErrSubscriberSlow)
		return false
	}
}

// subscriberList is copy-on-write: writers swap the slice under mu,
// readers iterate a snapshot without locking. A list that became empty is
// retired and never accepts subscribers again.
type subscriberList struct {
	mu      sync.Mutex
	subs    atomic.Pointer[[]*Subscription]
	retired bool
}

func (l *subscriberList) snapshot() []*Subscription {
	if p := l.subs.Load(); p != nil {
		return *p
	}
	return nil
}

func (l *subscriberList) add(s *Subscription) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.retired {
		return false
	}
	cur := l.snapshot()
	next := make([]*Subscription, 0, len(cur)+1)
	next = append(next, cur...)
	next = append(next, s)
	l.subs.Store(&next)
	return true
}

// remove は s を取り除き、リストが空になった場合は retired にします。
func (l *subscriberList) remove(s *Subscription) (removed, retired bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cur := l.snapshot()
	next := make([]*Subscription, 0, len(cur))
	for _, x := range cur {
		if x == s {
			removed = true
			continue
		}
		next = append(next, x)
	}
	if removed {
		l.subs.Store(&next)
		l.retired = len(next) == 0
	}
	return removed, l.retired
}

// Broadcaster is the per-symbol subscriber registry.
type Broadcaster struct {
	lists       sync.Map // symbol -> *subscriberList
	idleTimeout time.Duration
	buffer      int
}

// New は Broadcaster を生成します。0以下の値は既定値になります。
func New(idleTimeout time.Duration, buffer int) *Broadcaster {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broadcaster{idleTimeout: idleTimeout, buffer: buffer}
}

func (b *Broadcaster) list(symbol string) *subscriberList {
	if v, ok := b.lists.Load(symbol); ok {
		return v.(*subscriberList)
	}
	v, _ := b.lists.LoadOrStore(symbol, &subscriberList{})
	return v.(*subscriberList)
}

// Subscribe registers a subscriber for symbol and queues the "connected" acknowledgement.
func (b *Broadcaster) Subscribe(symbol string) *Subscription {
	s := &Subscription{
		ID:     uuid.NewString(),
		Symbol: symbol,
		events: make(chan Event, b.buffer),
		done:   make(chan struct{}),
		owner:  b,
	}
	s.events <- Event{Name: EventConnected, Data: map[string]string{"symbol": symbol, "id": s.ID}}

	metrics.Subscribers.Inc()
	for {
		l := b.list(symbol)
		if l.add(s) {
			break
		}
		// 空になって退役したリスト。マップから外して作り直す
		b.lists.CompareAndDelete(symbol, l)
	}
	t := time.AfterFunc(b.idleTimeout, func() { s.finish(ErrSubscriberTimeout) })
	s.timer.Store(t)
	select {
	case <-s.done:
		t.Stop()
	default:
	}
	return s
}

// remove は購読を外し、最後の購読者だった場合は銘柄のエントリも削除します。
func (b *Broadcaster) remove(s *Subscription) {
	v, ok := b.lists.Load(s.Symbol)
	if !ok {
		return
	}
	l := v.(*subscriberList)
	removed, retired := l.remove(s)
	if removed {
		metrics.Subscribers.Dec()
	}
	if retired {
		b.lists.CompareAndDelete(s.Symbol, l)
	}
}

// Broadcast pushes tick to every current subscriber of symbol and returns
// the number of successful pushes. A failed push removes only that subscriber.
func (b *Broadcaster) Broadcast(symbol string, tick feedentity.Tick) int {
	v, ok := b.lists.Load(symbol)
	if !ok {
		return 0
	}
	ev := Event{Name: EventTick, Data: tick}
	sent := 0
	for _, s := range v.(*subscriberList).snapshot() {
		if s.push(ev) {
			sent++
		}
	}
	return sent
}

// CloseAll はすべての購読を終了します（シャットダウン時）。
func (b *Broadcaster) CloseAll() {
	b.lists.Range(func(_, v any) bool {
		for _, s := range v.(*subscriberList).snapshot() {
			s.Close()
		}
		return true
	})
}
