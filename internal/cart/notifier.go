package cart

import (
	"sync"

	"github.com/rogerio-castellano/cart-sync/internal/models"
)

// Notifier receives the toast-style messages a cart operation produces.
type Notifier interface {
	Notify(models.Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(models.Notice)

func (f NotifierFunc) Notify(n models.Notice) { f(n) }

type discardNotifier struct{}

func (discardNotifier) Notify(models.Notice) {}

// NoticeBuffer collects notices until they are drained by whoever shows them.
type NoticeBuffer struct {
	mu      sync.Mutex
	notices []models.Notice
}

func (b *NoticeBuffer) Notify(n models.Notice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notices = append(b.notices, n)
}

// Drain returns the collected notices and empties the buffer.
func (b *NoticeBuffer) Drain() []models.Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.notices
	b.notices = nil
	if out == nil {
		out = []models.Notice{}
	}
	return out
}

func info(msg string) models.Notice    { return models.Notice{Level: models.NoticeInfo, Message: msg} }
func warning(msg string) models.Notice { return models.Notice{Level: models.NoticeWarning, Message: msg} }
func failure(msg string) models.Notice { return models.Notice{Level: models.NoticeError, Message: msg} }
