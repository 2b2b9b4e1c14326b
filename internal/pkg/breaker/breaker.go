package breaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrOpen 表示熔断器处于打开状态，本次调用没有到达下游。
var ErrOpen = errors.New("breaker: circuit open")

// State 熔断器状态机：闭合正常放行，打开直接走 fallback，
// 半开放行少量探测请求验证下游是否恢复。
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	}
	return "UNKNOWN"
}

// Config 控制跳闸条件。窗口内请求数达到 MinRequests 且失败率超过
// FailureRate 时跳闸；打开 OpenTimeout 后进入半开，放行 HalfOpenMax
// 个探测请求。
type Config struct {
	FailureRate float64
	MinRequests int
	OpenTimeout time.Duration
	HalfOpenMax int
	// WindowSize 统计窗口的请求条数上限，0 取默认值
	WindowSize int
}

// Breaker 只包住对外部依赖的那一次调用，不包住整个消息 handler。
type Breaker struct {
	cfg Config

	mu        sync.Mutex
	state     State
	successes int
	failures  int
	openedAt  time.Time
	probes    int

	now func() time.Time
}

func New(cfg Config) *Breaker {
	if cfg.FailureRate <= 0 {
		cfg.FailureRate = 0.5
	}
	if cfg.MinRequests <= 0 {
		cfg.MinRequests = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 10 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 1
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 20
	}
	return &Breaker{cfg: cfg, state: StateClosed, now: time.Now}
}

// State 返回当前状态（打开超时后的状态迁移也在这里体现）。
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition()
	return b.state
}

// Execute 在熔断器的管控下执行 call。打开状态直接返回 ErrOpen
// 而不触碰下游，调用方据此走 fallback 路径。
func (b *Breaker) Execute(ctx context.Context, call func(ctx context.Context) error) error {
	if err := b.before(); err != nil {
		return err
	}
	err := call(ctx)
	b.after(err == nil)
	return err
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition()

	switch b.state {
	case StateOpen:
		return ErrOpen
	case StateHalfOpen:
		if b.probes >= b.cfg.HalfOpenMax {
			return ErrOpen
		}
		b.probes++
	}
	return nil
}

func (b *Breaker) after(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		if success {
			// 探测成功，闭合并清零统计
			b.reset(StateClosed)
		} else {
			b.trip()
		}
		return
	case StateClosed:
		if success {
			b.successes++
		} else {
			b.failures++
		}
		total := b.successes + b.failures
		if total > b.cfg.WindowSize {
			// 简单滑动：窗口满了折半，避免老样本永远压着失败率
			b.successes /= 2
			b.failures /= 2
			total = b.successes + b.failures
		}
		if total >= b.cfg.MinRequests &&
			float64(b.failures)/float64(total) >= b.cfg.FailureRate {
			b.trip()
		}
	}
}

// transition 检查打开状态是否到期，到期进入半开。调用方需持有 b.mu。
func (b *Breaker) transition() {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		b.reset(StateHalfOpen)
	}
}

func (b *Breaker) trip() {
	b.state = StateOpen
	b.openedAt = b.now()
	b.successes, b.failures, b.probes = 0, 0, 0
}

func (b *Breaker) reset(to State) {
	b.state = to
	b.successes, b.failures, b.probes = 0, 0, 0
}
