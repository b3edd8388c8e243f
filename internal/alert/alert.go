package alert

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rickgao/market-alerts/internal/model"
)

// Params describes a locally drafted alert.
type Params struct {
	UUID      string // generated when empty
	Market    *model.Market
	Type      Type      // default last-price
	Direction Direction // default above
	Value     decimal.Decimal
	Cooldown  time.Duration
	Kill      bool
	Email     bool
	SMS       bool
	Expires   Expires // default never
}

// Alert is a condition on a market value. All methods must be called on the
// Manager's executor.
type Alert struct {
	manager *Manager

	uuid       string
	market     *model.Market
	typ        Type
	direction  Direction
	value      decimal.Decimal
	status     Status
	created    *time.Time
	updated    *time.Time
	expiration *time.Time
	cooldown   time.Duration
	kill       bool
	email      bool
	sms        bool
	expires    Expires
	last       *model.TriggerEvent

	observers observers
	saveTimer *time.Timer
	saveGen   int
	destroyed bool
}

func newDraft(m *Manager, p Params) *Alert {
	a := &Alert{
		manager:   m,
		uuid:      p.UUID,
		market:    p.Market,
		typ:       p.Type,
		direction: p.Direction,
		status:    StatusPending,
		cooldown:  p.Cooldown,
		kill:      p.Kill,
		email:     p.Email,
		sms:       p.SMS,
		expires:   p.Expires,
	}
	if a.uuid == "" {
		a.uuid = uuid.NewString()
	}
	if a.typ == "" {
		a.typ = TypeLastPrice
	}
	if a.direction == "" {
		a.direction = DirectionAbove
	}
	if a.expires == "" {
		a.expires = ExpiresNever
	}
	if a.cooldown < 0 {
		a.cooldown = 0
	}
	if p.Value.IsNegative() {
		m.logger.Warn("rejected negative alert value",
			zap.String("uuid", a.uuid),
			zap.String("value", p.Value.String()),
		)
	} else {
		a.value = a.truncate(p.Value)
	}
	return a
}

// newRemote builds an alert from a descriptor whose market already resolved.
// Every present field is taken as reported.
func newRemote(m *Manager, d Descriptor, market *model.Market) *Alert {
	a := &Alert{
		manager: m,
		uuid:    d.UUID,
		market:  market,
		status:  StatusPending,
		expires: ExpiresNever,
	}
	if d.Type != nil {
		a.typ = *d.Type
	}
	if d.Direction != nil {
		a.direction = *d.Direction
	}
	if d.Status != nil && d.Status.Valid() {
		a.status = *d.Status
	}
	if d.Created != nil && !d.Created.IsZero() {
		a.created = timePtr(d.Created.Time)
	}
	if d.Updated != nil && !d.Updated.IsZero() {
		a.updated = timePtr(d.Updated.Time)
	}
	if d.Expiration != nil && !d.Expiration.IsZero() {
		a.expiration = timePtr(d.Expiration.Time)
	}
	if d.Cooldown != nil && d.Cooldown.Duration() > 0 {
		a.cooldown = d.Cooldown.Duration()
	}
	if d.Kill != nil {
		a.kill = *d.Kill
	}
	if d.Email != nil {
		a.email = *d.Email
	}
	if d.SMS != nil {
		a.sms = *d.SMS
	}
	if d.Expires != nil && d.Expires.Valid() {
		a.expires = *d.Expires
	}
	if d.Value != nil && !d.Value.IsNegative() {
		a.value = a.truncate(*d.Value)
	}
	return a
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// -----------------------------------------------------------------------------
// Accessors
// -----------------------------------------------------------------------------

func (a *Alert) UUID() string              { return a.uuid }
func (a *Alert) Market() *model.Market     { return a.market }
func (a *Alert) Type() Type                { return a.typ }
func (a *Alert) Direction() Direction      { return a.direction }
func (a *Alert) Value() decimal.Decimal    { return a.value }
func (a *Alert) Status() Status            { return a.status }
func (a *Alert) Cooldown() time.Duration   { return a.cooldown }
func (a *Alert) Kill() bool                { return a.kill }
func (a *Alert) Email() bool               { return a.email }
func (a *Alert) SMS() bool                 { return a.sms }
func (a *Alert) Expires() Expires          { return a.expires }
func (a *Alert) Last() *model.TriggerEvent { return a.last }
func (a *Alert) Destroyed() bool           { return a.destroyed }

// Created is the server creation time, if known.
func (a *Alert) Created() (time.Time, bool) { return deref(a.created) }

// Updated is the server's last modification time, if known.
func (a *Alert) Updated() (time.Time, bool) { return deref(a.updated) }

// Expiration is when the server will expire the alert, if known.
func (a *Alert) Expiration() (time.Time, bool) { return deref(a.expiration) }

func deref(t *time.Time) (time.Time, bool) {
	if t == nil {
		return time.Time{}, false
	}
	return *t, true
}

func (a *Alert) IsPending() bool { return a.status == StatusPending }
func (a *Alert) IsOpen() bool    { return a.status == StatusOpen }
func (a *Alert) IsDone() bool    { return a.status.Done() }

// String is used in logs.
func (a *Alert) String() string {
	return fmt.Sprintf("alert %s [%s] %s", a.uuid, a.status, a.describe())
}

// IsValid reports whether the alert may be transmitted.
func (a *Alert) IsValid() bool {
	if a.market == nil {
		return false
	}
	if !a.status.Valid() || !a.typ.Valid() || !a.direction.Valid() {
		return false
	}
	if !a.value.IsPositive() {
		return false
	}
	return a.manager.capability(a.market, a.typ, a.direction)
}

// Descriptor renders the alert in wire form.
func (a *Alert) Descriptor() Descriptor {
	d := Descriptor{
		UUID:      a.uuid,
		Type:      ptr(a.typ),
		Direction: ptr(a.direction),
		Value:     ptr(a.value),
		Status:    ptr(a.status),
		Cooldown:  ptr(model.Millis(a.cooldown)),
		Kill:      ptr(a.kill),
		Email:     ptr(a.email),
		SMS:       ptr(a.sms),
		Expires:   ptr(a.expires),
	}
	if a.market != nil {
		d.Market = ptr(a.market.Key())
	}
	if a.created != nil {
		d.Created = ptr(model.NewTimestamp(*a.created))
	}
	if a.updated != nil {
		d.Updated = ptr(model.NewTimestamp(*a.updated))
	}
	if a.expiration != nil {
		d.Expiration = ptr(model.NewTimestamp(*a.expiration))
	}
	return d
}

func ptr[T any](v T) *T {
	return &v
}

// -----------------------------------------------------------------------------
// Setters
// -----------------------------------------------------------------------------

// SetValue sets the threshold, truncated to market precision. Negative input
// is rejected.
func (a *Alert) SetValue(v decimal.Decimal) {
	if v.IsNegative() {
		a.manager.logger.Warn("rejected negative alert value",
			zap.String("uuid", a.uuid),
			zap.String("value", v.String()),
		)
		return
	}
	v = a.truncate(v)
	if v.Equal(a.value) {
		return
	}
	a.value = v
	a.didUpdate(FieldValue)
}

// SetCooldown sets the advisory re-trigger interval. Negative input is
// rejected.
func (a *Alert) SetCooldown(d time.Duration) {
	if d < 0 {
		a.manager.logger.Warn("rejected negative alert cooldown",
			zap.String("uuid", a.uuid),
			zap.Duration("cooldown", d),
		)
		return
	}
	if d == a.cooldown {
		return
	}
	a.cooldown = d
	a.didUpdate(FieldCooldown)
}

// SetType changes the watched value and re-truncates the threshold to the
// new dimension's precision.
func (a *Alert) SetType(t Type) {
	if !t.Valid() || t == a.typ {
		return
	}
	a.typ = t
	a.didUpdate(FieldType)
	a.retruncate()
}

func (a *Alert) SetDirection(d Direction) {
	if !d.Valid() || d == a.direction {
		return
	}
	a.direction = d
	a.didUpdate(FieldDirection)
}

func (a *Alert) SetExpires(e Expires) {
	if !e.Valid() || e == a.expires {
		return
	}
	a.expires = e
	a.didUpdate(FieldExpires)
}

func (a *Alert) SetKill(v bool) {
	if v == a.kill {
		return
	}
	a.kill = v
	a.didUpdate(FieldKill)
}

func (a *Alert) SetEmail(v bool) {
	if v == a.email {
		return
	}
	a.email = v
	a.didUpdate(FieldEmail)
}

func (a *Alert) SetSMS(v bool) {
	if v == a.sms {
		return
	}
	a.sms = v
	a.didUpdate(FieldSMS)
}

// SetMarket moves the alert to m and re-truncates the value. Markets are
// compared by key.
func (a *Alert) SetMarket(m *model.Market) {
	if m == a.market {
		return
	}
	if m != nil && a.market != nil && m.Key() == a.market.Key() {
		a.market = m
		return
	}
	a.market = m
	a.didUpdate(FieldMarket)
	a.retruncate()
}

func (a *Alert) retruncate() {
	v := a.truncate(a.value)
	if v.Equal(a.value) {
		return
	}
	a.value = v
	a.didUpdate(FieldValue)
}

func (a *Alert) truncate(v decimal.Decimal) decimal.Decimal {
	if a.market == nil {
		return v
	}
	switch a.typ {
	case TypeVolume24h:
		return v.Truncate(a.market.Precision.Amount)
	case TypeLastPrice:
		return v.Truncate(a.market.Precision.Price)
	}
	return v
}

func (a *Alert) setCreated(t time.Time) {
	if t.IsZero() || (a.created != nil && a.created.Equal(t)) {
		return
	}
	a.created = timePtr(t)
	a.didUpdate(FieldCreated)
}

func (a *Alert) setUpdated(t time.Time) {
	if t.IsZero() || (a.updated != nil && a.updated.Equal(t)) {
		return
	}
	a.updated = timePtr(t)
	a.didUpdate(FieldUpdated)
}

// setStatus installs forward transitions only.
func (a *Alert) setStatus(s Status) bool {
	if c := classifyTransition(a.status, s); c != transitionForward {
		if a.status != s {
			a.manager.logger.Debug("dropped status transition",
				zap.String("uuid", a.uuid),
				zap.String("from", string(a.status)),
				zap.String("to", string(s)),
				zap.Stringer("kind", c),
			)
		}
		return false
	}
	a.status = s
	a.didUpdate(FieldStatus)
	a.notifyStatus(s)
	return true
}

// rollbackStatus installs one of the sanctioned rollbacks only.
func (a *Alert) rollbackStatus(s Status) bool {
	if classifyTransition(a.status, s) != transitionRollback {
		a.manager.logger.Debug("dropped status rollback",
			zap.String("uuid", a.uuid),
			zap.String("from", string(a.status)),
			zap.String("to", string(s)),
		)
		return false
	}
	a.status = s
	a.didUpdate(FieldStatus)
	return true
}

func (a *Alert) notifyStatus(s Status) {
	n, ok := statusNotification(a, s, a.manager.opts.Notify)
	if !ok {
		return
	}
	a.manager.notify(n)
}

// -----------------------------------------------------------------------------
// Remote updates
// -----------------------------------------------------------------------------

// Update applies the fields the server is authoritative for: value, created,
// updated, status, type, uuid and market. Everything else in d is ignored.
// Applying the same descriptor twice has no further effect.
func (a *Alert) Update(d Descriptor) {
	if a.destroyed {
		return
	}

	if d.UUID != "" && d.UUID != a.uuid {
		if other := a.manager.Find(d.UUID); other == nil {
			a.uuid = d.UUID
			a.didUpdate(FieldUUID)
		} else {
			a.manager.logger.Warn("ignored uuid change to a tracked uuid",
				zap.String("uuid", a.uuid),
				zap.String("to", d.UUID),
			)
		}
	}
	if d.Market != nil {
		if m, ok := a.manager.resolve(*d.Market); ok {
			a.SetMarket(m)
		} else {
			a.manager.logger.Warn("ignored unresolved market in update",
				zap.String("uuid", a.uuid),
				zap.Stringer("market", d.Market),
			)
		}
	}
	if d.Type != nil {
		a.SetType(*d.Type)
	}
	if d.Value != nil {
		a.SetValue(*d.Value)
	}
	if d.Created != nil {
		a.setCreated(d.Created.Time)
	}
	if d.Updated != nil {
		a.setUpdated(d.Updated.Time)
	}
	if d.Status != nil {
		a.setStatus(*d.Status)
	}
}

// Trigger records a server trigger event. Status is left unchanged; kill and
// expiry arrive from the server as their own messages.
func (a *Alert) Trigger(ev model.TriggerEvent) {
	if a.destroyed {
		return
	}
	if ev.Created.IsZero() {
		ev.Created = model.NewTimestamp(a.manager.now())
	}
	a.last = &ev
	a.didUpdate(FieldLast)

	a.emit(func(o Observer) { o.AlertTriggered(a, ev) })

	a.manager.notify(Notification{
		Kind:  NotifyTriggered,
		Alert: a.uuid,
		Title: "Alert Triggered",
		Body:  a.triggerBody(ev),
	})
}

func (a *Alert) triggerBody(ev model.TriggerEvent) string {
	verb := "crossed"
	switch a.direction {
	case DirectionAbove:
		verb = "rose above"
	case DirectionBelow:
		verb = "fell below"
	}
	threshold := ev.Value
	if threshold.IsZero() {
		threshold = a.value
	}
	market := ""
	if a.market != nil {
		market = a.market.Title() + " "
	}
	return fmt.Sprintf("%s%s %s %s (now %s).", market, a.typ.Label(), verb, threshold.String(), ev.Price.String())
}

// Subscribe registers o for this alert's events. The returned func
// unsubscribes.
func (a *Alert) Subscribe(o Observer) func() {
	return a.observers.add(o)
}

// Destroy removes the alert from its Manager. It is idempotent.
func (a *Alert) Destroy() {
	if a.destroyed {
		return
	}
	a.destroyed = true
	a.stopSave()

	a.observers.each(func(o Observer) { o.AlertDestroyed(a) })
	a.observers.clear()
	a.manager.didDestroyAlert(a)
}

func (a *Alert) didUpdate(f Field) {
	a.emit(func(o Observer) { o.AlertUpdated(a, f) })
}

func (a *Alert) emit(fn func(Observer)) {
	a.observers.each(fn)
	a.manager.observers.each(fn)
}
