package logger

import (
	"sync"
	"sync/atomic"
)

// Per-component warn/error tallies, updated by Entry.Warn/Entry.Error and
// read by the fetch-outcome summary in the aggregator logs.
var (
	warnCounts  sync.Map // map[string]*int64
	errorCounts sync.Map // map[string]*int64
)

func recordWarn(component string) {
	bump(&warnCounts, component)
}

func recordError(component string) {
	bump(&errorCounts, component)
}

func bump(m *sync.Map, component string) {
	v, _ := m.LoadOrStore(component, new(int64))
	atomic.AddInt64(v.(*int64), 1)
}

// WarnCount returns how many warnings a component has logged so far.
func WarnCount(component string) int64 {
	return load(&warnCounts, component)
}

// ErrorCount returns how many errors a component has logged so far.
func ErrorCount(component string) int64 {
	return load(&errorCounts, component)
}

func load(m *sync.Map, component string) int64 {
	if v, ok := m.Load(component); ok {
		return atomic.LoadInt64(v.(*int64))
	}
	return 0
}
