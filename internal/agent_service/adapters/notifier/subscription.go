package notifier

import (
	"context"
	"sync"

	"github.com/contractor-agent/golang_services/internal/agent_service/domain"
)

// subscription buffers matching events without bound and hands them to the
// consumer in publish order. Events() is closed after Close or when the
// subscribing context ends.
type subscription struct {
	filter  domain.ChangeFilter
	out     chan domain.ChangeEvent
	signal  chan struct{}
	done    chan struct{}
	onClose func()

	mu    sync.Mutex
	queue []domain.ChangeEvent
	once  sync.Once
}

var _ domain.Subscription = (*subscription)(nil)

func newSubscription(ctx context.Context, filter domain.ChangeFilter, onClose func()) *subscription {
	s := &subscription{
		filter:  filter,
		out:     make(chan domain.ChangeEvent),
		signal:  make(chan struct{}, 1),
		done:    make(chan struct{}),
		onClose: onClose,
	}
	go s.pump(ctx)
	return s
}

func (s *subscription) Events() <-chan domain.ChangeEvent { return s.out }

func (s *subscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		if s.onClose != nil {
			s.onClose()
		}
	})
	return nil
}

// push enqueues evt if it passes the filter. It never blocks the publisher.
func (s *subscription) push(evt domain.ChangeEvent) {
	if !s.filter.Matches(evt) {
		return
	}
	select {
	case <-s.done:
		return
	default:
	}
	s.mu.Lock()
	s.queue = append(s.queue, evt)
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscription) pump(ctx context.Context) {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.signal:
				continue
			case <-s.done:
				return
			case <-ctx.Done():
				_ = s.Close()
				return
			}
		}
		evt := s.queue[0]
		s.queue[0] = domain.ChangeEvent{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- evt:
		case <-s.done:
			return
		case <-ctx.Done():
			_ = s.Close()
			return
		}
	}
}
