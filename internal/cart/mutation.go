package cart

import (
	"context"

	"github.com/rogerio-castellano/cart-sync/internal/cartapi"
	"github.com/rogerio-castellano/cart-sync/internal/models"
	"go.uber.org/zap"
)

// mutation is a change applied locally first and committed remotely second.
// When the commit fails the shopper is told and the cart is reloaded from the
// server, so local optimism never outlives a known failure.
type mutation struct {
	name string

	// apply runs with the store lock held. Returning an error aborts the
	// mutation before anything is committed.
	apply func(st *cartState) ([]models.Notice, error)

	// commit performs the remote write. nil means local-only.
	commit func(ctx context.Context) error

	// failMsg is shown when the service gives no message of its own.
	failMsg string
}

func (s *Store) mutate(ctx context.Context, m mutation) error {
	s.mu.Lock()
	notices, err := m.apply(&s.state)
	if err != nil {
		s.mu.Unlock()
		s.emit(notices...)
		return err
	}
	notices = append(notices, s.state.recompute()...)
	snap, version := s.state.publish()
	s.mu.Unlock()

	s.emit(notices...)
	s.changed(snap, version)

	if m.commit == nil {
		return nil
	}

	err = m.commit(ctx)
	if err == nil || cartapi.IsNotFound(err) {
		return nil
	}

	s.logger.Warn("cart write failed, resynchronizing", zap.String("op", m.name), zap.Error(err))
	s.emit(failure(cartapi.UserMessage(err, m.failMsg)))
	s.resync(ctx)
	return err
}
