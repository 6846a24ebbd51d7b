// Package warmup tracks the bar count a strategy must see before it is
// allowed to trade. Grounded on
// original_source/aegisquant-core/src/warmup.rs.
package warmup

// Manager tracks warmup progress against a configured bar count.
type Manager struct {
	bars                  int
	currentBar            int
	warmedUp              bool
	completeAt            int64
	haveCompleteTimestamp bool
}

// NewManager creates a warmup tracker. A non-positive bar count is treated
// as "already warmed up", matching the original's zero-or-negative shortcut.
func NewManager(bars int) *Manager {
	m := &Manager{bars: bars}
	if bars <= 0 {
		m.bars = 0
		m.warmedUp = true
		m.completeAt = 0
		m.haveCompleteTimestamp = true
	}
	return m
}

// Tick advances progress by one bar and returns whether warmup is complete
// after this bar. Once warmed up, subsequent calls are no-ops.
func (m *Manager) Tick(timestamp int64) bool {
	if m.warmedUp {
		return true
	}
	m.currentBar++
	if m.currentBar >= m.bars {
		m.warmedUp = true
		m.completeAt = timestamp
		m.haveCompleteTimestamp = true
	}
	return m.warmedUp
}

func (m *Manager) IsWarmedUp() bool { return m.warmedUp }

func (m *Manager) RemainingBars() int {
	if m.warmedUp {
		return 0
	}
	remaining := m.bars - m.currentBar
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ActualStartBar is the bar index at which live trading should begin: it is
// always the configured warmup length, regardless of current progress.
func (m *Manager) ActualStartBar() int { return m.bars }

// CompleteTimestamp returns the timestamp warmup finished at, and whether it
// has finished yet.
func (m *Manager) CompleteTimestamp() (int64, bool) {
	return m.completeAt, m.haveCompleteTimestamp
}

func (m *Manager) Reset() {
	m.currentBar = 0
	m.warmedUp = m.bars <= 0
	m.haveCompleteTimestamp = m.warmedUp
	if m.warmedUp {
		m.completeAt = 0
	}
}
