package monitor

import "github.com/cyclopcam/firewatch/pkg/gen"

// SYNC-WATCHER-CHANNEL-SIZE
const WatcherChannelSize = 100

// Register to receive the result of every submitted frame
func (m *Monitor) AddWatcher() chan *FrameResult {
	m.watchersLock.Lock()
	defer m.watchersLock.Unlock()
	ch := make(chan *FrameResult, WatcherChannelSize)
	m.watchers = append(m.watchers, ch)
	return ch
}

// Unregister from frame results
func (m *Monitor) RemoveWatcher(ch chan *FrameResult) {
	m.watchersLock.Lock()
	defer m.watchersLock.Unlock()
	for i, w := range m.watchers {
		if w == ch {
			m.watchers = gen.DeleteFromSliceUnordered(m.watchers, i)
			return
		}
	}
	m.Log.Warnf("Monitor.RemoveWatcher failed to find channel")
}

// Register to receive confirmed events
func (m *Monitor) AddEventWatcher() chan *ConfirmedEvent {
	m.watchersLock.Lock()
	defer m.watchersLock.Unlock()
	ch := make(chan *ConfirmedEvent, 20)
	m.eventWatchers = append(m.eventWatchers, ch)
	return ch
}

// Unregister an event watcher
func (m *Monitor) RemoveEventWatcher(ch chan *ConfirmedEvent) {
	m.watchersLock.Lock()
	defer m.watchersLock.Unlock()
	for i, wch := range m.eventWatchers {
		if wch == ch {
			m.eventWatchers = gen.DeleteFromSliceUnordered(m.eventWatchers, i)
			return
		}
	}
	m.Log.Warnf("Monitor.RemoveEventWatcher failed to find channel")
}

func (m *Monitor) sendToWatchers(result *FrameResult) {
	m.watchersLock.RLock()
	defer m.watchersLock.RUnlock()
	// A slow watcher must not stall the pipeline, so we drop frames instead of blocking.
	for _, ch := range m.watchers {
		// SYNC-WATCHER-CHANNEL-SIZE
		if len(ch) >= cap(ch)*9/10 {
			m.Log.Warnf("Monitor watcher is falling behind. I am going to drop frames.")
		} else {
			ch <- result
		}
	}
}

func (m *Monitor) sendToEventWatchers(event *ConfirmedEvent) {
	m.watchersLock.RLock()
	defer m.watchersLock.RUnlock()
	for _, ch := range m.eventWatchers {
		select {
		case ch <- event:
		default:
			m.Log.Warnf("Monitor event watcher is full. Dropping %v event", event.Class)
		}
	}
}
