package rowlock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTimeout 表示在限定时间内没拿到行锁。对调用方来说是可重试错误，
// 与库存不足这类业务失败严格区分。
var ErrTimeout = errors.New("rowlock: acquire timed out")

type row struct {
	sem  chan struct{}
	refs int
}

// Manager 是按实体 id 分配互斥锁的锁管理器。锁粒度是整行，
// reserve/release 的临界区都串行化在这上面。不再被引用的行会被回收。
type Manager struct {
	mu   sync.Mutex
	rows map[uint64]*row
}

func NewManager() *Manager {
	return &Manager{rows: make(map[uint64]*row)}
}

// Acquire 带限时地获取 id 对应的行锁。超过 wait 返回 ErrTimeout，
// ctx 先取消则返回 ctx 的错误。拿到锁后必须调用 Release。
func (m *Manager) Acquire(ctx context.Context, id uint64, wait time.Duration) error {
	m.mu.Lock()
	r, ok := m.rows[id]
	if !ok {
		r = &row{sem: make(chan struct{}, 1)}
		m.rows[id] = r
	}
	r.refs++
	m.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case r.sem <- struct{}{}:
		return nil
	case <-timer.C:
		m.unref(id)
		return ErrTimeout
	case <-ctx.Done():
		m.unref(id)
		return ctx.Err()
	}
}

// Release 释放 id 对应的行锁。只能由当前持有者调用。
func (m *Manager) Release(id uint64) {
	m.mu.Lock()
	r, ok := m.rows[id]
	m.mu.Unlock()
	if !ok {
		return
	}
	<-r.sem
	m.unref(id)
}

func (m *Manager) unref(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return
	}
	r.refs--
	if r.refs <= 0 {
		delete(m.rows, id)
	}
}
