package alert

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rickgao/market-alerts/internal/model"
)

// CreateRequest is the POST /alerts body.
type CreateRequest struct {
	Value     decimal.Decimal `json:"value"`
	Type      Type            `json:"type"`
	UUID      string          `json:"uuid"`
	Market    string          `json:"market"`
	Exchange  string          `json:"exchange"`
	Direction Direction       `json:"direction"`
	SMS       bool            `json:"sms"`
	Email     bool            `json:"email"`
	Kill      bool            `json:"kill"`
	Expires   Expires         `json:"expires"`
	Cooldown  model.Millis    `json:"cooldown"`
}

// CreateResponse is the POST /alerts reply.
type CreateResponse struct {
	Created model.Timestamp `json:"created"`
}

// UpdateRequest is the PUT /alerts/{uuid} body.
type UpdateRequest struct {
	Value     decimal.Decimal `json:"value"`
	Type      Type            `json:"type"`
	Market    string          `json:"market"`
	Exchange  string          `json:"exchange"`
	Direction Direction       `json:"direction"`
}

// Remote is the alerts REST service.
type Remote interface {
	CreateAlert(ctx context.Context, req CreateRequest) (CreateResponse, error)
	UpdateAlert(ctx context.Context, uuid string, req UpdateRequest) error
	DeleteAlert(ctx context.Context, uuid string) error
}

// Future resolves once a network completion has been applied on the
// executor. It yields the request error, or nil, and is then closed.
type Future <-chan error

func resolved(err error) Future {
	ch := make(chan error, 1)
	ch <- err
	close(ch)
	return ch
}

// Wait blocks until f resolves or ctx is done.
func (f Future) Wait(ctx context.Context) error {
	select {
	case err := <-f:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Transmit creates the alert on the server. Precondition failures are
// returned immediately and nothing is sent. Request failures roll the alert
// back to pending and are reported through DidTransmitError and the Future.
func (a *Alert) Transmit() (Future, error) {
	if a.status != StatusPending {
		return nil, ErrNotPending
	}
	if a.market == nil {
		return nil, ErrNoMarket
	}
	if !a.IsValid() {
		return nil, ErrInvalidAlert
	}

	a.emit(func(o Observer) { o.WillTransmit(a) })
	a.setStatus(StatusTransmitting)

	req := CreateRequest{
		Value:     a.value,
		Type:      a.typ,
		UUID:      a.uuid,
		Market:    a.market.ID,
		Exchange:  a.market.Exchange.ID,
		Direction: a.direction,
		SMS:       a.sms,
		Email:     a.email,
		Kill:      a.kill,
		Expires:   a.expires,
		Cooldown:  model.Millis(a.cooldown),
	}

	m := a.manager
	return m.async(func(ctx context.Context) func() error {
		resp, err := m.remote.CreateAlert(ctx, req)
		return func() error {
			a.completeTransmit(resp, err)
			return err
		}
	}), nil
}

func (a *Alert) completeTransmit(resp CreateResponse, err error) {
	if a.destroyed {
		a.manager.logger.Debug("ignored transmit completion for destroyed alert", zap.String("uuid", a.uuid))
		return
	}

	if err != nil {
		a.rollbackStatus(StatusPending)
		a.emit(func(o Observer) { o.DidTransmitError(a, err) })
		a.manager.logger.Error("alert transmit failed", zap.String("uuid", a.uuid), zap.Error(err))
		return
	}

	a.setCreated(resp.Created.Time)
	a.setStatus(StatusOpen)
	a.emit(func(o Observer) { o.DidTransmit(a) })
}

// Cancel removes the alert from the server. An alert that was never
// confirmed by the server is destroyed locally without a request. When
// confirm is set and the Confirmer declines, nothing happens.
func (a *Alert) Cancel(confirm bool) (Future, error) {
	if a.status.Before(StatusOpen) {
		a.Destroy()
		return resolved(nil), nil
	}
	if a.status == StatusCanceling || a.status.Done() {
		return nil, ErrNotCancelable
	}

	if confirm && !a.manager.confirm(cancelPrompt) {
		return resolved(nil), nil
	}

	a.emit(func(o Observer) { o.WillCancel(a) })
	a.setStatus(StatusCanceling)

	m := a.manager
	id := a.uuid
	return m.async(func(ctx context.Context) func() error {
		err := m.remote.DeleteAlert(ctx, id)
		return func() error {
			a.completeCancel(err)
			return err
		}
	}), nil
}

// CancelDefault cancels using the configured confirm-on-cancel setting.
func (a *Alert) CancelDefault() (Future, error) {
	return a.Cancel(a.manager.opts.ConfirmCancel)
}

func (a *Alert) completeCancel(err error) {
	if a.destroyed {
		a.manager.logger.Debug("ignored cancel completion for destroyed alert", zap.String("uuid", a.uuid))
		return
	}

	if err != nil {
		a.rollbackStatus(StatusOpen)
		a.manager.logger.Error("alert cancel failed", zap.String("uuid", a.uuid), zap.Error(err))
		return
	}

	a.setStatus(StatusCanceled)
	a.emit(func(o Observer) { o.DidCancel(a) })
}

// Save schedules a PUT with the alert's current definition. Calls within
// the debounce window collapse into one request. Only open alerts are saved.
func (a *Alert) Save() {
	if a.destroyed || a.status != StatusOpen {
		a.manager.logger.Debug("skipped save for alert that is not open",
			zap.String("uuid", a.uuid),
			zap.String("status", string(a.status)),
		)
		return
	}

	a.stopSave()
	a.saveGen++
	gen := a.saveGen
	m := a.manager
	a.saveTimer = time.AfterFunc(m.opts.SaveDebounce, func() {
		m.executor.Submit(func() { a.flushSave(gen) })
	})
}

func (a *Alert) stopSave() {
	if a.saveTimer != nil {
		a.saveTimer.Stop()
		a.saveTimer = nil
	}
}

func (a *Alert) flushSave(gen int) {
	if gen != a.saveGen || a.destroyed || a.status != StatusOpen || a.market == nil {
		return
	}
	a.saveTimer = nil

	req := UpdateRequest{
		Value:     a.value,
		Type:      a.typ,
		Market:    a.market.ID,
		Exchange:  a.market.Exchange.ID,
		Direction: a.direction,
	}

	m := a.manager
	id := a.uuid
	m.async(func(ctx context.Context) func() error {
		err := m.remote.UpdateAlert(ctx, id, req)
		return func() error {
			if err != nil {
				m.logger.Error("alert save failed", zap.String("uuid", id), zap.Error(err))
			}
			return err
		}
	})
}
