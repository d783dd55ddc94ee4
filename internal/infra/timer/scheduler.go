package timer

import (
	"sort"
	"sync"
	"time"
)

// Scheduler вызывает функцию периодически, пока не будет вызвана функция остановки
type Scheduler interface {
	Every(interval time.Duration, fn func()) (stop func())
}

// TickerScheduler планировщик на time.Ticker. Все вызовы одной задачи
// выполняются последовательно в ее горутине.
type TickerScheduler struct{}

func (TickerScheduler) Every(interval time.Duration, fn func()) func() {
	done := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				// После остановки тик, уже попавший в канал, не выполняем
				select {
				case <-done:
					return
				default:
				}
				fn()
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}

// ManualScheduler планировщик с симулированными часами для тестов.
// Время двигается только через Advance.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []*manualTask
}

type manualTask struct {
	id       int
	interval time.Duration
	next     time.Duration
	fn       func()
	stopped  bool
}

// NewManualScheduler создает планировщик с нулевым временем
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) Every(interval time.Duration, fn func()) func() {
	if interval <= 0 {
		interval = TickInterval
	}

	s.mu.Lock()
	s.seq++
	task := &manualTask{
		id:       s.seq,
		interval: interval,
		next:     s.now + interval,
		fn:       fn,
	}
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		task.stopped = true
		s.mu.Unlock()
	}
}

// Advance сдвигает часы на d и выполняет все наступившие вызовы по порядку времени
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		task := s.nextDue(target)
		if task == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		s.now = task.next
		task.next += task.interval
		fn := task.fn
		s.mu.Unlock()

		fn()
	}
}

// Tick сдвигает часы на n интервалов по одной секунде
func (s *ManualScheduler) Tick(n int) {
	for i := 0; i < n; i++ {
		s.Advance(TickInterval)
	}
}

// Pending количество активных задач
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range s.tasks {
		if !t.stopped {
			n++
		}
	}
	return n
}

// nextDue ищет ближайшую задачу, которая должна сработать не позже target. Вызывается под mu.
func (s *ManualScheduler) nextDue(target time.Duration) *manualTask {
	active := s.tasks[:0]
	for _, t := range s.tasks {
		if !t.stopped {
			active = append(active, t)
		}
	}
	s.tasks = active

	sort.SliceStable(active, func(i, j int) bool {
		if active[i].next == active[j].next {
			return active[i].id < active[j].id
		}
		return active[i].next < active[j].next
	})

	if len(active) == 0 || active[0].next > target {
		return nil
	}
	return active[0]
}
