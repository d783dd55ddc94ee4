package timer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// ErrInvalidLimit возвращается при отрицательном лимите времени
var ErrInvalidLimit = errors.New("time limit must not be negative")

// TickInterval интервал между тиками таймера теста
const TickInterval = time.Second

// State состояние таймера попытки
type State int

const (
	StateIdle State = iota
	StateRunning
	StateExpired
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateExpired:
		return "expired"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Capabilities внешние зависимости таймера. Любое поле может быть nil,
// тогда соответствующий побочный эффект просто пропускается.
type Capabilities struct {
	Display Display
	Field   Field
	Form    Form
}

// Guard отсчитывает лимит времени попытки, публикует остаток и принудительно
// отправляет результат, когда время вышло.
type Guard struct {
	mu sync.Mutex

	limit     int
	remaining int
	state     State

	caps Capabilities
	name string

	ctx  context.Context
	stop func()
}

// Option дополнительная настройка таймера
type Option func(*Guard)

// WithElapsed продолжает отсчет с уже прошедшего времени (восстановление после рестарта)
func WithElapsed(seconds int) Option {
	return func(g *Guard) {
		if seconds < 0 {
			seconds = 0
		}
		if seconds > g.limit {
			seconds = g.limit
		}
		g.remaining = g.limit - seconds
	}
}

// WithName задает имя таймера для логов
func WithName(name string) Option {
	return func(g *Guard) {
		g.name = name
	}
}

// NewGuard создает таймер на заданное количество минут
func NewGuard(minutes int, caps Capabilities, opts ...Option) (*Guard, error) {
	if minutes < 0 {
		return nil, fmt.Errorf("%w: %d minutes", ErrInvalidLimit, minutes)
	}

	g := &Guard{
		limit:     minutes * 60,
		remaining: minutes * 60,
		state:     StateIdle,
		caps:      caps,
		name:      "guard",
	}
	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// Start запускает периодический отсчет и возвращает функцию остановки.
// Повторный запуск не делает ничего и возвращает ту же функцию остановки.
func (g *Guard) Start(ctx context.Context, scheduler Scheduler, interval time.Duration) func() {
	g.mu.Lock()
	if g.state != StateIdle {
		g.mu.Unlock()
		return g.Stop
	}
	g.state = StateRunning
	g.ctx = ctx
	g.mu.Unlock()

	stop := scheduler.Every(interval, g.Tick)

	g.mu.Lock()
	g.stop = stop
	// Таймер мог истечь или быть остановлен до того, как планировщик вернул функцию остановки
	finished := g.state != StateRunning
	g.mu.Unlock()

	if finished {
		stop()
	}

	return g.Stop
}

// Stop останавливает отсчет без отправки результата. После истечения времени ничего не делает.
func (g *Guard) Stop() {
	g.mu.Lock()
	if g.state == StateRunning || g.state == StateIdle {
		g.state = StateStopped
	}
	stop := g.stop
	g.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// Tick один шаг отсчета
func (g *Guard) Tick() {
	g.mu.Lock()
	if g.state != StateRunning {
		g.mu.Unlock()
		return
	}

	if g.remaining > 0 {
		g.remaining--
	}
	remaining := g.remaining
	elapsed := g.limit - g.remaining
	expired := remaining <= 0
	if expired {
		g.state = StateExpired
	}
	stop := g.stop
	ctx := g.ctx
	g.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	if expired && stop != nil {
		stop()
	}

	if g.caps.Display != nil {
		if err := g.caps.Display.Show(ctx, FormatRemaining(remaining)); err != nil {
			log.Printf("%s: display skipped: %v", g.name, err)
		}
	}

	if g.caps.Field != nil {
		if err := g.caps.Field.Set(ctx, elapsed); err != nil {
			log.Printf("%s: elapsed field skipped: %v", g.name, err)
		}
	}

	if !expired {
		return
	}

	if g.caps.Form != nil {
		if err := g.caps.Form.Submit(ctx); err != nil {
			log.Printf("%s: auto-submit failed: %v", g.name, err)
		}
	}
}

// Remaining оставшееся время в секундах
func (g *Guard) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remaining
}

// Elapsed прошедшее время в секундах
func (g *Guard) Elapsed() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.limit - g.remaining
}

// Limit лимит времени в секундах
func (g *Guard) Limit() int {
	return g.limit
}

// State текущее состояние таймера
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}
