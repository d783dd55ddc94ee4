package timer

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Manager хранит запущенные таймеры попыток по идентификатору user_test.
// Для одной попытки может работать только один таймер.
type Manager struct {
	mu        sync.Mutex
	scheduler Scheduler
	interval  time.Duration
	guards    map[int]*Guard

	ticks  sync.RWMutex // тик держит RLock, Shutdown ждет текущие тики через Lock
	closed bool
}

// NewManager создает менеджер таймеров
func NewManager(scheduler Scheduler, interval time.Duration) *Manager {
	if interval <= 0 {
		interval = TickInterval
	}
	return &Manager{
		scheduler: scheduler,
		interval:  interval,
		guards:    make(map[int]*Guard),
	}
}

// Start запускает таймер для попытки. Если таймер для попытки уже существует, он останавливается.
// По истечении времени таймер сам удаляется из менеджера.
func (m *Manager) Start(ctx context.Context, userTestID int, minutes int, caps Capabilities, opts ...Option) (*Guard, error) {
	form := caps.Form
	var guard *Guard
	caps.Form = FormFunc(func(ctx context.Context) error {
		m.release(userTestID, guard)
		if form == nil {
			return nil
		}
		return form.Submit(ctx)
	})

	opts = append([]Option{WithName(fmt.Sprintf("user_test %d", userTestID))}, opts...)
	g, err := NewGuard(minutes, caps, opts...)
	if err != nil {
		return nil, fmt.Errorf("timer.Manager.Start: %w", err)
	}
	guard = g

	m.mu.Lock()
	previous, ok := m.guards[userTestID]
	m.guards[userTestID] = guard
	m.mu.Unlock()

	if ok {
		log.Printf("Replacing running timer for user_test %d", userTestID)
		previous.Stop()
	}

	guard.Start(ctx, m, m.interval)
	return guard, nil
}

// Every планирует тик через scheduler менеджера. После Shutdown тики не выполняются.
func (m *Manager) Every(interval time.Duration, fn func()) func() {
	return m.scheduler.Every(interval, func() {
		m.ticks.RLock()
		defer m.ticks.RUnlock()
		if m.closed {
			return
		}
		fn()
	})
}

// Stop останавливает таймер попытки без отправки результата
func (m *Manager) Stop(userTestID int) bool {
	m.mu.Lock()
	guard, ok := m.guards[userTestID]
	delete(m.guards, userTestID)
	m.mu.Unlock()

	if !ok {
		return false
	}
	guard.Stop()
	return true
}

// StopAll останавливает все таймеры (при завершении приложения)
func (m *Manager) StopAll() {
	m.mu.Lock()
	guards := m.guards
	m.guards = make(map[int]*Guard)
	m.mu.Unlock()

	for _, g := range guards {
		g.Stop()
	}
}

// Shutdown останавливает все таймеры и дожидается тиков, которые уже выполняются
// (в том числе сохранения результата по истечении времени)
func (m *Manager) Shutdown() {
	m.StopAll()

	m.ticks.Lock()
	m.closed = true
	m.ticks.Unlock()
}

// Get возвращает таймер попытки
func (m *Manager) Get(userTestID int) (*Guard, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.guards[userTestID]
	return g, ok
}

// Remaining возвращает оставшееся время попытки в секундах
func (m *Manager) Remaining(userTestID int) (int, bool) {
	g, ok := m.Get(userTestID)
	if !ok {
		return 0, false
	}
	return g.Remaining(), true
}

// Active количество работающих таймеров
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.guards)
}

func (m *Manager) release(userTestID int, guard *Guard) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if current, ok := m.guards[userTestID]; ok && current == guard {
		delete(m.guards, userTestID)
	}
}
