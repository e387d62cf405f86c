package register

import "sync"

// Handler is a setup hook run against T, usually a store provider.
type Handler[T any] func(T)

var (
	mu       sync.RWMutex
	handlers = make(map[any][]any)
)

// RegisterFunc appends handler under key. Registration normally happens in
// package init functions.
func RegisterFunc[T any](key any, handler Handler[T]) {
	mu.Lock()
	handlers[key] = append(handlers[key], handler)
	mu.Unlock()
}

// ResolveFuncHandlers returns the handlers under key that accept T, in
// registration order.
func ResolveFuncHandlers[T any](key any) []Handler[T] {
	mu.RLock()
	defer mu.RUnlock()

	var result []Handler[T]
	for _, v := range handlers[key] {
		if h, ok := v.(Handler[T]); ok {
			result = append(result, h)
		}
	}
	return result
}
