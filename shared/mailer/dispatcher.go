package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrQueueFull        = errors.New("mail queue is full")
	ErrDispatcherClosed = errors.New("mail dispatcher is closed")
)

// DeliveryError describes an email that could not be delivered.
type DeliveryError struct {
	Email Email
	Err   error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %q to %s: %v", e.Email.Subject, strings.Join(e.Email.To, ","), e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Dispatcher sends emails in the background. Callers never see delivery
// errors; those go to the error handler passed to NewDispatcher.
type Dispatcher struct {
	sender  Sender
	jobs    chan Email
	errs    chan *DeliveryError
	onError func(*DeliveryError)

	mu     sync.RWMutex
	closed bool

	workers sync.WaitGroup
	drained chan struct{}
}

// NewDispatcher starts workers goroutines that deliver queued emails through
// sender. At most buffer emails wait in the queue.
func NewDispatcher(sender Sender, workers, buffer int, onError func(*DeliveryError)) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	if onError == nil {
		onError = func(*DeliveryError) {}
	}

	d := &Dispatcher{
		sender:  sender,
		jobs:    make(chan Email, buffer),
		errs:    make(chan *DeliveryError, workers),
		onError: onError,
		drained: make(chan struct{}),
	}

	d.workers.Add(workers)
	for range workers {
		go d.work()
	}

	go d.reportErrors()

	return d
}

// Enqueue schedules email for delivery without waiting for it to be sent.
// A full queue or a closed dispatcher is reported through the error handler.
func (d *Dispatcher) Enqueue(email Email) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.onError(&DeliveryError{Email: email, Err: ErrDispatcherClosed})
		return
	}

	select {
	case d.jobs <- email:
	default:
		d.onError(&DeliveryError{Email: email, Err: ErrQueueFull})
	}
}

// Close stops accepting emails and waits until queued emails are delivered
// or ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	select {
	case <-d.drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.workers.Done()

	for email := range d.jobs {
		if err := d.sender.Send(email); err != nil {
			d.errs <- &DeliveryError{Email: email, Err: err}
		}
	}
}

func (d *Dispatcher) reportErrors() {
	go func() {
		d.workers.Wait()
		close(d.errs)
	}()

	for err := range d.errs {
		d.onError(err)
	}

	close(d.drained)
}
