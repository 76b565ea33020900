package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/erain9/pricetime/pkg/messaging"
	"github.com/rs/zerolog/log"
)

// DefaultPoolSize is the number of senders kept by NewSenderPool when size <= 0
const DefaultPoolSize = 4

// ErrPoolClosed is returned by a pool after Close
var ErrPoolClosed = errors.New("sender pool is closed")

// SenderFactory creates one pooled sender
type SenderFactory func() (messaging.ExecutionSender, error)

// SenderPool hands out senders from a fixed-size pool. A sender that fails
// to send is closed and replaced on its next use.
type SenderPool struct {
	factory SenderFactory
	pool    chan messaging.ExecutionSender
	mu      sync.RWMutex
	closed  bool
}

// NewSenderPool creates a pool and pre-populates it
func NewSenderPool(size int, factory SenderFactory) (*SenderPool, error) {
	if size <= 0 {
		size = DefaultPoolSize
	}

	p := &SenderPool{
		factory: factory,
		pool:    make(chan messaging.ExecutionSender, size),
	}
	for i := 0; i < size; i++ {
		sender, err := factory()
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("failed to create sender %d: %w", i, err)
		}
		p.pool <- sender
	}
	return p, nil
}

// SendExecution sends msg using a pooled sender, waiting for a free one
func (p *SenderPool) SendExecution(ctx context.Context, msg *messaging.ExecutionMessage) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	var sender messaging.ExecutionSender
	select {
	case sender = <-p.pool:
	case <-ctx.Done():
		return ctx.Err()
	}

	if sender == nil {
		var err error
		sender, err = p.factory()
		if err != nil {
			p.pool <- nil
			return fmt.Errorf("failed to replace sender: %w", err)
		}
	}

	if err := sender.SendExecution(ctx, msg); err != nil {
		log.Warn().Err(err).Str("order_id", msg.OrderID).Msg("Dropping failed sender from pool")
		_ = sender.Close()
		p.pool <- nil
		return err
	}

	p.pool <- sender
	return nil
}

// Close closes every pooled sender
func (p *SenderPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	for {
		select {
		case sender := <-p.pool:
			if sender != nil {
				if err := sender.Close(); err != nil {
					errs = append(errs, err)
				}
			}
		default:
			return errors.Join(errs...)
		}
	}
}

var _ messaging.ExecutionSender = (*SenderPool)(nil)
