package pool

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Get after Close.
var ErrClosed = errors.New("pool closed")

// Pool hands out items exclusively. Items are created lazily, at most size
// of them are alive at once, and idle items are reused before new ones are
// created. Get blocks while every live item is checked out.
type Pool[T any] struct {
	newFunc   func() (T, error)
	idle      chan T
	slots     chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	beforePut func(p T)
	beforeGet func(p T)
	onEvict   func(p T)
}

type PoolBuilder[T any] interface {
	applyBuilder(pool *Pool[T])
}

type WithPoolBeforePut[T any] func(p T)

func (t WithPoolBeforePut[T]) applyBuilder(pool *Pool[T]) {
	pool.beforePut = t
}

type WithPoolBeforeGet[T any] func(p T)

func (t WithPoolBeforeGet[T]) applyBuilder(pool *Pool[T]) {
	pool.beforeGet = t
}

// WithPoolOnEvict is called once for every item leaving the pool for good,
// either through Discard or Close.
type WithPoolOnEvict[T any] func(p T)

func (t WithPoolOnEvict[T]) applyBuilder(pool *Pool[T]) {
	pool.onEvict = t
}

func NewPool[T any](size int, newFunc func() (T, error), builders ...PoolBuilder[T]) *Pool[T] {
	if size < 1 {
		size = 1
	}

	p := &Pool[T]{
		newFunc: newFunc,
		idle:    make(chan T, size),
		slots:   make(chan struct{}, size),
		done:    make(chan struct{}),
	}

	for _, b := range builders {
		b.applyBuilder(p)
	}

	return p
}

func (p *Pool[T]) Get() (T, error) {
	var zero T

	select {
	case <-p.done:
		return zero, ErrClosed
	case v := <-p.idle:
		return p.got(v), nil
	default:
	}

	select {
	case <-p.done:
		return zero, ErrClosed
	case v := <-p.idle:
		return p.got(v), nil
	case p.slots <- struct{}{}:
		v, err := p.newFunc()
		if err != nil {
			<-p.slots
			return zero, err
		}
		return p.got(v), nil
	}
}

func (p *Pool[T]) got(v T) T {
	if p.beforeGet != nil {
		p.beforeGet(v)
	}
	return v
}

// Put returns v for reuse. After Close the item is evicted instead.
func (p *Pool[T]) Put(v T) {
	if p.beforePut != nil {
		p.beforePut(v)
	}

	select {
	case <-p.done:
		p.Discard(v)
		return
	default:
	}

	p.idle <- v

	// Close may have drained idle between the check above and the send.
	select {
	case <-p.done:
		p.drain()
	default:
	}
}

// Discard evicts v and frees its slot.
func (p *Pool[T]) Discard(v T) {
	if p.onEvict != nil {
		p.onEvict(v)
	}
	<-p.slots
}

// Close evicts idle items and makes later Get calls fail. Items checked out
// at the time of Close are evicted when they are put back.
func (p *Pool[T]) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.drain()
	})
}

func (p *Pool[T]) drain() {
	for {
		select {
		case v := <-p.idle:
			p.Discard(v)
		default:
			return
		}
	}
}
