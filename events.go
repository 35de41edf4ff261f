package lockgate

import (
	"sync"
	"sync/atomic"
)

// LoginHook receives the authenticated user and the resolved redirect
// target. It fires exactly once per fully established session — never while
// a two-factor step is still pending.
type LoginHook func(user User, target string)

// LogoutHook receives the identity captured from the session just before
// destruction.
type LogoutHook func(user Snapshot)

type eventKind int

const (
	eventLogin eventKind = iota
	eventLogout
)

type event struct {
	kind   eventKind
	user   User
	snap   Snapshot
	target string
}

// eventDispatcher delivers login/logout notifications to registered hooks
// on a dedicated goroutine so slow host callbacks never stall the request
// path. Hooks are registered before the engine is built and are not
// mutated afterwards.
type eventDispatcher struct {
	cfg         EventsConfig
	loginHooks  []LoginHook
	logoutHooks []LogoutHook

	ch        chan event
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

func newEventDispatcher(cfg EventsConfig, loginHooks []LoginHook, logoutHooks []LogoutHook) *eventDispatcher {
	if len(loginHooks) == 0 && len(logoutHooks) == 0 {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}

	d := &eventDispatcher{
		cfg:         cfg,
		loginHooks:  loginHooks,
		logoutHooks: logoutHooks,
		ch:          make(chan event, cfg.BufferSize),
		done:        make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *eventDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case ev := <-d.ch:
			d.deliver(ev)
		case <-d.done:
			for {
				select {
				case ev := <-d.ch:
					d.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (d *eventDispatcher) deliver(ev event) {
	switch ev.kind {
	case eventLogin:
		for _, hook := range d.loginHooks {
			hook(ev.user, ev.target)
		}
	case eventLogout:
		for _, hook := range d.logoutHooks {
			hook(ev.snap)
		}
	}
}

func (d *eventDispatcher) emitLogin(user User, target string) {
	d.emit(event{kind: eventLogin, user: user, target: target})
}

func (d *eventDispatcher) emitLogout(snap Snapshot) {
	d.emit(event{kind: eventLogout, snap: snap})
}

func (d *eventDispatcher) emit(ev event) {
	if d == nil || d.closed.Load() {
		return
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- ev:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- ev:
	case <-d.done:
	}
}

// Close stops the dispatcher after draining buffered events. Safe to call
// more than once.
func (d *eventDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *eventDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
