package service

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// badgeHub publishes cart item counts to subscribers. It replaces the
// window/storage event listening the presentation layer used to do: the
// aggregator owns the state, the UI only holds a read-only subscription.
type badgeHub struct {
	mu   sync.Mutex
	subs map[uuid.UUID]map[chan int]struct{}
}

func newBadgeHub() *badgeHub {
	return &badgeHub{subs: make(map[uuid.UUID]map[chan int]struct{})}
}

// SubscribeCartCount returns a channel receiving the user's cart item count
// after every cart mutation, and a cancel func that must be called when the
// subscriber goes away. Sends never block; a slow subscriber just misses
// intermediate counts.
func (s *Service) SubscribeCartCount(userID uuid.UUID) (<-chan int, func()) {
	ch := make(chan int, 1)
	s.badges.mu.Lock()
	if s.badges.subs[userID] == nil {
		s.badges.subs[userID] = make(map[chan int]struct{})
	}
	s.badges.subs[userID][ch] = struct{}{}
	s.badges.mu.Unlock()

	cancel := func() {
		s.badges.mu.Lock()
		defer s.badges.mu.Unlock()
		if set, ok := s.badges.subs[userID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(s.badges.subs, userID)
			}
		}
	}
	return ch, cancel
}

// publishCartCount recomputes the count and fans it out. Called after every
// mutating cart operation.
func (s *Service) publishCartCount(ctx context.Context, userID uuid.UUID) {
	s.badges.mu.Lock()
	interested := len(s.badges.subs[userID]) > 0
	s.badges.mu.Unlock()
	if !interested {
		return
	}

	cartID, err := s.store.GetOrCreateActiveCart(ctx, userID)
	if err != nil {
		return
	}
	n, err := s.store.CountCartItems(ctx, cartID)
	if err != nil {
		return
	}

	s.badges.mu.Lock()
	defer s.badges.mu.Unlock()
	for ch := range s.badges.subs[userID] {
		select {
		case ch <- n:
		default:
			// drop stale count, keep the freshest pending
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- n:
			default:
			}
		}
	}
}
