package memory

import (
	"context"
	"sync"
)

type txKey struct{}

type undoLog struct {
	mu    sync.Mutex
	steps []func()
}

// TxManager gives the memory store all-or-nothing writes: every mutation made
// with a context from RunInTx records an undo step that runs, newest first,
// when fn fails. Other goroutines can observe the writes before commit.
type TxManager struct{}

// RunInTx runs fn and undoes its writes when it returns an error or panics.
// A nested call joins the outer transaction.
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*undoLog); ok {
		return fn(ctx)
	}

	log := &undoLog{}
	defer func() {
		if p := recover(); p != nil {
			log.rollback()
			panic(p)
		}
		if err != nil {
			log.rollback()
		}
	}()
	return fn(context.WithValue(ctx, txKey{}, log))
}

func (l *undoLog) rollback() {
	l.mu.Lock()
	steps := l.steps
	l.steps = nil
	l.mu.Unlock()
	for i := len(steps) - 1; i >= 0; i-- {
		steps[i]()
	}
}

// onRollback registers step with the transaction in ctx, if any.
func onRollback(ctx context.Context, step func()) {
	log, ok := ctx.Value(txKey{}).(*undoLog)
	if !ok {
		return
	}
	log.mu.Lock()
	log.steps = append(log.steps, step)
	log.mu.Unlock()
}
