package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"storefront-backend/models"
	"storefront-backend/store"
)

// Subscription streams the user's cart every time it changes.
type Subscription struct {
	updates chan models.Cart
	watcher store.Watcher
	stop    context.CancelFunc
	done    chan struct{}
	once    sync.Once
	onClose func()

	mu  sync.Mutex
	err error
}

// Subscribe opens a live query on the user's cart. The caller must Cancel the
// subscription when done with it.
func (s *Synchronizer) Subscribe(ctx context.Context, uid string) (*Subscription, error) {
	if uid == "" {
		return nil, ErrNotSignedIn
	}
	ctx, stop := context.WithCancel(ctx)
	w, err := s.Store.Watch(ctx, models.CartCollection(uid), store.Where(models.FieldUID, uid))
	if err != nil {
		stop()
		return nil, fmt.Errorf("watch cart: %w", err)
	}

	s.Metrics.SubscriptionOpened()
	sub := &Subscription{
		updates: make(chan models.Cart),
		watcher: w,
		stop:    stop,
		done:    make(chan struct{}),
		onClose: s.Metrics.SubscriptionClosed,
	}
	go sub.run()
	return sub, nil
}

// Updates delivers carts in the order the store produced them. It is closed
// once the subscription ends.
func (sub *Subscription) Updates() <-chan models.Cart {
	return sub.updates
}

// Cancel stops the subscription. Calling it more than once is harmless. The
// watcher itself is stopped by the pump goroutine once its pending Next
// returns, since Stop must not overlap Next.
func (sub *Subscription) Cancel() {
	sub.once.Do(func() {
		close(sub.done)
		sub.stop()
		sub.onClose()
	})
}

// Err returns the error that ended the subscription, or nil if it was
// cancelled or is still running.
func (sub *Subscription) Err() error {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.err
}

func (sub *Subscription) run() {
	defer close(sub.updates)
	defer sub.Cancel()
	defer sub.watcher.Stop()

	for {
		docs, err := sub.watcher.Next()
		if err != nil {
			if !errors.Is(err, store.ErrWatchStopped) && !errors.Is(err, context.Canceled) {
				sub.mu.Lock()
				sub.err = err
				sub.mu.Unlock()
			}
			return
		}

		select {
		case sub.updates <- Aggregate(itemsFrom(docs)):
		case <-sub.done:
			return
		}
	}
}
