package coordinator

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"tutorlink/internal/api"
)

// NoticeLevel classifies a user-visible notice.
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeWarn  NoticeLevel = "warn"
	NoticeError NoticeLevel = "error"
)

// Notice is a user-visible outcome of a fetch or mutation. Service
// errors never propagate past the coordinator as anything else.
type Notice struct {
	ID      uuid.UUID
	Level   NoticeLevel
	Message string
	Err     error
	Time    time.Time
}

// NoticeHandler reacts to a published notice.
type NoticeHandler func(Notice)

// NoticeBus provides in-process pub/sub for notices.
type NoticeBus struct {
	mu       sync.RWMutex
	handlers []NoticeHandler
}

func NewNoticeBus() *NoticeBus {
	return &NoticeBus{}
}

// Subscribe registers a handler for every notice.
func (b *NoticeBus) Subscribe(fn NoticeHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, fn)
}

// Publish notifies subscribers synchronously; the caller decides the
// concurrency model.
func (b *NoticeBus) Publish(n Notice) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Time.IsZero() {
		n.Time = time.Now()
	}

	b.mu.RLock()
	handlers := append([]NoticeHandler(nil), b.handlers...)
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(n)
	}
}

// noticeFor converts a service error into the notice the user sees:
// validation failures carry the service's message, not-found turns into
// an explanatory state, everything else is a transient transport
// notice. Authorization failures are handled by the session teardown
// and get no extra notice here.
func noticeFor(action string, err error) Notice {
	switch {
	case errors.Is(err, api.ErrNotFound):
		return Notice{Level: NoticeWarn, Message: action + ": no longer exists", Err: err}
	case api.IsValidation(err):
		var ve *api.ValidationError
		errors.As(err, &ve)
		return Notice{Level: NoticeError, Message: action + ": " + ve.Detail, Err: err}
	default:
		return Notice{Level: NoticeError, Message: action + " failed", Err: err}
	}
}
