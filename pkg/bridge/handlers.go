package bridge

// registry keeps subscribers in registration order.
type registry[T any] struct {
	next uint64
	list []subscriber[T]
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

func (r *registry[T]) add(fn func(T)) uint64 {
	r.next++
	r.list = append(r.list, subscriber[T]{id: r.next, fn: fn})
	return r.next
}

func (r *registry[T]) remove(id uint64) {
	for i, s := range r.list {
		if s.id == id {
			r.list = append(r.list[:i:i], r.list[i+1:]...)
			return
		}
	}
}

func (r *registry[T]) snapshot() []func(T) {
	out := make([]func(T), len(r.list))
	for i, s := range r.list {
		out[i] = s.fn
	}
	return out
}
