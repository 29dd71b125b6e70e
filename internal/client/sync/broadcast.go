package sync

import "sync"

// broadcaster рассылает снимки статуса подписчикам. Каналы с буфером 1
// и вытеснением: медленный UI всегда получает последнее состояние,
// никогда не блокируя синхронизацию.
type broadcaster struct {
	subs    []chan Status
	current Status
	mu      sync.Mutex
}

func newBroadcaster() *broadcaster {
	return &broadcaster{
		current: Status{Phase: PhaseIdle},
	}
}

func (b *broadcaster) publish(status Status) {
	b.mu.Lock()
	b.current = status
	subs := make([]chan Status, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- status:
		default:
			// Вытесняем непрочитанное значение
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- status:
			default:
			}
		}
	}
}

func (b *broadcaster) subscribe() <-chan Status {
	ch := make(chan Status, 1)

	b.mu.Lock()
	b.subs = append(b.subs, ch)
	ch <- b.current
	b.mu.Unlock()

	return ch
}

func (b *broadcaster) snapshot() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}
