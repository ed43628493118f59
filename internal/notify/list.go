// Package notify provides explicit subscription lists used to wire views and models together.
package notify

// List is an ordered set of callbacks receiving values of type T.
type List[T any] struct {
	nextID int
	subs   []subscriber[T]
}

// subscriber pairs a callback with its registration id.
type subscriber[T any] struct {
	id int
	fn func(T)
}

// Subscribe registers fn and returns a function that removes it again.
func (l *List[T]) Subscribe(fn func(T)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	l.nextID++
	id := l.nextID
	l.subs = append(l.subs, subscriber[T]{id: id, fn: fn})
	return func() {
		for idx, sub := range l.subs {
			if sub.id == id {
				l.subs = append(l.subs[:idx:idx], l.subs[idx+1:]...)
				return
			}
		}
	}
}

// Emit calls every subscriber in registration order.
func (l *List[T]) Emit(v T) {
	if len(l.subs) == 0 {
		return
	}
	subs := append([]subscriber[T](nil), l.subs...)
	for _, sub := range subs {
		sub.fn(v)
	}
}

// Len returns the number of active subscribers.
func (l *List[T]) Len() int {
	return len(l.subs)
}
