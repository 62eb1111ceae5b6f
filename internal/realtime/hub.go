package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Hub хранит каналы подписчиков по топикам.
// Каждый подписчик получает снимки состояния; если он не успевает читать,
// устаревший снимок вытесняется новым, последний снимок не теряется.
type Hub[T any] struct {
	mu sync.Mutex
	//   map[topic] map[subscriberID] channel
	subs map[string]map[string]chan T
}

// NewHub - конструктор хаба.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{
		subs: make(map[string]map[string]chan T),
	}
}

// Subscribe регистрирует подписчика. Канал закрывается после отмены ctx.
func (h *Hub[T]) Subscribe(ctx context.Context, topic string) <-chan T {
	ch := make(chan T, 1)
	subID := uuid.NewString()

	h.mu.Lock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[string]chan T)
	}
	h.subs[topic][subID] = ch
	h.mu.Unlock()

	// Горутина для очистки при отключении клиента
	go func() {
		<-ctx.Done()
		h.mu.Lock()
		if topicSubs, ok := h.subs[topic]; ok {
			delete(topicSubs, subID)
			if len(topicSubs) == 0 {
				delete(h.subs, topic)
			}
		}
		close(ch)
		h.mu.Unlock()
	}()

	return ch
}

// Publish рассылает значение всем подписчикам топика без блокировки.
func (h *Hub[T]) Publish(topic string, v T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs[topic] {
		select {
		case ch <- v:
		default:
			// Клиент не успевает читать: выбрасываем старый снимок.
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
}

// Subscribers возвращает число подписчиков топика.
func (h *Hub[T]) Subscribers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[topic])
}
