package alert

import (
	"go.uber.org/zap"
)

// Message applies one stream event.
func (m *Manager) Message(msg Message) {
	switch msg.Action {
	case ActionSnapshot:
		m.snapshot(msg.Alerts)

	case ActionCreated, ActionUpdated:
		if msg.Alert == nil || msg.Alert.UUID == "" {
			m.logger.Warn("dropped message without alert", zap.String("action", string(msg.Action)))
			return
		}
		m.update(*msg.Alert)

	case ActionCanceled:
		m.canceled(msg.UUID)

	case ActionTriggered:
		if msg.Event == nil {
			m.logger.Warn("dropped triggered message without event")
			return
		}
		a := m.Find(msg.Event.Alert)
		if a == nil && m.backlog.index(msg.Event.Alert) >= 0 {
			m.logger.Warn("dropped trigger for alert with unresolved market",
				zap.String("uuid", msg.Event.Alert),
				zap.String("event", msg.Event.UUID),
			)
			return
		}
		if a == nil {
			m.logger.Warn("dropped trigger for unknown alert",
				zap.String("uuid", msg.Event.Alert),
				zap.String("event", msg.Event.UUID),
			)
			return
		}
		a.Trigger(*msg.Event)

	default:
		m.logger.Debug("ignored message with unknown action", zap.String("action", string(msg.Action)))
	}
}

// snapshot replaces all local state with descs.
func (m *Manager) snapshot(descs []Descriptor) {
	for _, a := range m.All() {
		a.Destroy()
	}
	m.backlog.clear()
	m.backlogCount.Store(0)

	for _, d := range descs {
		if d.UUID == "" {
			m.logger.Warn("dropped snapshot entry without uuid")
			continue
		}
		m.update(d)
	}

	m.logger.Info("applied alert snapshot",
		zap.Int("received", len(descs)),
		zap.Int("alerts", len(m.alerts)),
		zap.Int("backlog", m.backlog.len()),
	)
}

func (m *Manager) canceled(uuid string) {
	if a := m.Find(uuid); a != nil {
		a.Destroy()
		return
	}
	if _, ok := m.backlog.remove(uuid); ok {
		m.backlogCount.Store(int64(m.backlog.len()))
		return
	}
	m.logger.Warn("dropped cancel for unknown alert", zap.String("uuid", uuid))
}
