package gate

import (
	"sync"
	"time"
)

// State is the gate's position in the activation sequence
type State int

const (
	StateIdle State = iota
	StateCounting
	StateUnlocking
	StateLockedOut
)

var stateNames = [...]string{"idle", "counting", "unlocking", "locked_out"}

// String returns the lowercase state name
func (s State) String() string {
	if s < StateIdle || s > StateLockedOut {
		return "unknown"
	}
	return stateNames[s]
}

const (
	// DefaultTaps is the tap count that opens an unlock attempt
	DefaultTaps = 5

	// DefaultWindow is the rolling window between consecutive taps
	DefaultWindow = 2 * time.Second

	// DefaultLockoutDuration applies when lockout is enabled without
	// an explicit duration
	DefaultLockoutDuration = 30 * time.Second
)

// Config configures a Gate. The zero value gives the default
// five-taps-in-two-seconds gesture with no passcode and no lockout.
type Config struct {
	// Passcode, when non-empty, must be submitted after the gesture
	// before the gate unlocks. Compared by exact match.
	Passcode string

	Taps   int           // taps required, DefaultTaps when <= 0
	Window time.Duration // rolling tap window, DefaultWindow when <= 0

	// LockoutThreshold enables the lockout variant: after this many
	// consecutive wrong passcodes the gate ignores all events for
	// LockoutDuration. Zero disables lockout.
	LockoutThreshold int
	LockoutDuration  time.Duration

	// Clock supplies the current time; defaults to time.Now
	Clock func() time.Time

	// OnUnlock fires once per successful unlock, outside the gate's
	// lock, so it may call back into the gate or the console
	OnUnlock func()
}

// Status is a point-in-time view of the gate for UI surfaces
type Status struct {
	State       State
	TapCount    int
	FailCount   int
	LockedUntil time.Time
}

// Gate is the gesture state machine controlling console visibility.
// All state lives in memory only: tap counters and lockout deadlines
// never survive a process restart. The gate itself never flips the
// enabled flag; OnUnlock is its only effect channel.
type Gate struct {
	mu  sync.Mutex
	cfg Config

	state       State
	tapCount    int
	lastTap     time.Time
	failCount   int
	lockedUntil time.Time
}

// New creates a gate in StateIdle
func New(cfg Config) *Gate {
	if cfg.Taps <= 0 {
		cfg.Taps = DefaultTaps
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.LockoutThreshold > 0 && cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = DefaultLockoutDuration
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Gate{cfg: cfg}
}

// Tap registers one tap of the activation gesture. A tap arriving more
// than Window after the previous one restarts the count. Reaching the
// configured count opens an unlock attempt: with no passcode the gate
// unlocks immediately and returns to Idle, otherwise it moves to
// StateUnlocking and waits for Submit.
func (g *Gate) Tap() State {
	g.mu.Lock()
	now := g.cfg.Clock()
	g.expireLockout(now)

	if g.state == StateLockedOut || g.state == StateUnlocking {
		state := g.state
		g.mu.Unlock()
		return state
	}

	if g.lastTap.IsZero() || now.Sub(g.lastTap) > g.cfg.Window {
		g.tapCount = 0
	}
	g.lastTap = now
	g.tapCount++

	if g.tapCount < g.cfg.Taps {
		g.state = StateCounting
		state := g.state
		g.mu.Unlock()
		return state
	}

	g.tapCount = 0
	g.lastTap = time.Time{}
	state, fire := g.beginUnlock()
	g.mu.Unlock()

	if fire {
		g.fireUnlock()
	}
	return state
}

// LongPress opens an unlock attempt regardless of tap state
func (g *Gate) LongPress() State {
	g.mu.Lock()
	now := g.cfg.Clock()
	g.expireLockout(now)

	if g.state == StateLockedOut || g.state == StateUnlocking {
		state := g.state
		g.mu.Unlock()
		return state
	}

	g.tapCount = 0
	g.lastTap = time.Time{}
	state, fire := g.beginUnlock()
	g.mu.Unlock()

	if fire {
		g.fireUnlock()
	}
	return state
}

// Submit answers the passcode challenge. It is only meaningful in
// StateUnlocking. A match unlocks and returns to Idle. A mismatch is a
// normal negative outcome, not an error: the attempt is dismissed and
// the gate returns to Idle (or to LockedOut once the consecutive
// failure count reaches the configured threshold).
func (g *Gate) Submit(code string) (bool, State) {
	g.mu.Lock()
	now := g.cfg.Clock()
	g.expireLockout(now)

	if g.state != StateUnlocking {
		state := g.state
		g.mu.Unlock()
		return false, state
	}

	if code == g.cfg.Passcode {
		g.state = StateIdle
		g.failCount = 0
		g.mu.Unlock()
		g.fireUnlock()
		return true, StateIdle
	}

	g.failCount++
	if g.cfg.LockoutThreshold > 0 && g.failCount >= g.cfg.LockoutThreshold {
		g.state = StateLockedOut
		g.lockedUntil = now.Add(g.cfg.LockoutDuration)
		g.failCount = 0
		g.mu.Unlock()
		return false, StateLockedOut
	}

	g.state = StateIdle
	g.mu.Unlock()
	return false, StateIdle
}

// Abandon cancels an unlock attempt or a tap sequence in progress.
// Accumulated passcode failures are kept: abandoning does not launder
// progress toward lockout.
func (g *Gate) Abandon() State {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.expireLockout(g.cfg.Clock())
	if g.state == StateLockedOut {
		return g.state
	}

	g.state = StateIdle
	g.tapCount = 0
	g.lastTap = time.Time{}
	return g.state
}

// State returns the current state
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expireLockout(g.cfg.Clock())
	return g.state
}

// Snapshot returns a view of the gate for status surfaces
func (g *Gate) Snapshot() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expireLockout(g.cfg.Clock())
	return Status{
		State:       g.state,
		TapCount:    g.tapCount,
		FailCount:   g.failCount,
		LockedUntil: g.lockedUntil,
	}
}

// beginUnlock is called with the lock held once the gesture completes
func (g *Gate) beginUnlock() (State, bool) {
	if g.cfg.Passcode == "" {
		g.state = StateIdle
		return StateIdle, true
	}
	g.state = StateUnlocking
	return StateUnlocking, false
}

// expireLockout lazily returns the gate to Idle once the lockout
// deadline has passed; called with the lock held
func (g *Gate) expireLockout(now time.Time) {
	if g.state == StateLockedOut && !now.Before(g.lockedUntil) {
		g.state = StateIdle
		g.lockedUntil = time.Time{}
		g.tapCount = 0
		g.lastTap = time.Time{}
	}
}

func (g *Gate) fireUnlock() {
	if g.cfg.OnUnlock != nil {
		g.cfg.OnUnlock()
	}
}
