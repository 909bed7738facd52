// Package views holds the paginated list screens on top of the hotel client.
//
// Views never return API errors. Every failure becomes a Notification and the
// previously loaded page stays in place. Filters only see the page currently
// loaded; a search never reaches rows on other pages.
package views

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/diagnosis/hotel-web/pkg/events"
	"github.com/diagnosis/hotel-web/pkg/hotelapi"
	"github.com/diagnosis/hotel-web/pkg/logger"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notification struct {
	Level   Level  `json:"level"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Inbox collects notifications until drained.
type Inbox struct {
	mu    sync.Mutex
	items []Notification
}

func (i *Inbox) Notify(_ context.Context, n Notification) {
	i.mu.Lock()
	i.items = append(i.items, n)
	i.mu.Unlock()
}

// Drain returns everything collected so far and empties the inbox.
func (i *Inbox) Drain() []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := i.items
	i.items = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

type options struct {
	notifier  Notifier
	publisher events.Publisher
	actorID   string
}

type Option func(*options)

func WithNotifier(n Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithPublisher sends audit events for successful mutations.
func WithPublisher(p events.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithActor names the user performing mutations in audit events.
func WithActor(userID string) Option {
	return func(o *options) { o.actorID = userID }
}

func buildOptions(opts []Option) options {
	o := options{notifier: &Inbox{}, publisher: events.Nop{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) success(ctx context.Context, title, msg string) {
	o.notifier.Notify(ctx, Notification{Level: LevelSuccess, Title: title, Message: msg})
}

func (o options) failure(ctx context.Context, title, fallback string, err error) {
	logger.WarnContext(ctx, "View operation failed", "title", title, "error", err)
	o.notifier.Notify(ctx, Notification{Level: LevelError, Title: title, Message: describe(err, fallback)})
}

func (o options) publish(ctx context.Context, subject string, payload interface{}) {
	if err := o.publisher.Publish(ctx, subject, payload); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "subject", subject, "error", err)
	}
}

// describe prefers the server's own wording, then a fixed message.
func describe(err error, fallback string) string {
	var apiErr *hotelapi.APIError
	switch {
	case errors.Is(err, hotelapi.ErrSessionAbsent):
		return "Please login to continue."
	case errors.As(err, &apiErr) && !apiErr.Generic():
		return apiErr.Message
	default:
		return fallback
	}
}

// pager is the shared page cell. Concurrent loads are not cancelled; the last
// one to complete is what the view shows.
type pager[T any] struct {
	mu     sync.RWMutex
	page   hotelapi.Page[T]
	loaded bool
}

func (p *pager[T]) set(page hotelapi.Page[T]) {
	p.mu.Lock()
	p.page = page
	p.loaded = true
	p.mu.Unlock()
}

func (p *pager[T]) get() (hotelapi.Page[T], bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.page, p.loaded
}

// next returns the index to load for Next, or false at the end.
func (p *pager[T]) next() (int, bool) {
	page, loaded := p.get()
	if !loaded || page.Last || !page.HasNext() {
		return 0, false
	}
	return page.Number + 1, true
}

func (p *pager[T]) previous() (int, bool) {
	page, loaded := p.get()
	if !loaded || page.First {
		return 0, false
	}
	return page.Number - 1, true
}

func (p *pager[T]) current() int {
	page, _ := p.get()
	return page.Number
}

func (p *pager[T]) items() []T {
	page, _ := p.get()
	return page.Content
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}
