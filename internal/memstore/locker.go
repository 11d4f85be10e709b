package memstore

import (
	"context"
	"sync"
	"time"

	"materials_market/internal/errs"
	"materials_market/internal/models"
)

// LocalLocker serializes work per key inside one process.
type LocalLocker struct {
	mu   sync.Mutex
	keys map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{keys: make(map[string]chan struct{})}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	sem, ok := l.keys[key]
	if !ok {
		sem = make(chan struct{}, 1)
		l.keys[key] = sem
	}
	l.mu.Unlock()

	select {
	case sem <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-sem }) }, nil
	case <-ctx.Done():
		return nil, errs.Wrap(errs.KindConflict, "lock.obtain", ctx.Err(), "order "+key+" is being modified, retry")
	}
}

// ProposalStore keeps payment proposals in memory until they expire.
type ProposalStore struct {
	mu        sync.Mutex
	now       func() time.Time
	proposals map[string]models.PaymentProposal
}

func NewProposalStore(now func() time.Time) *ProposalStore {
	if now == nil {
		now = time.Now
	}
	return &ProposalStore{now: now, proposals: make(map[string]models.PaymentProposal)}
}

func (p *ProposalStore) SaveProposal(ctx context.Context, proposal *models.PaymentProposal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !proposal.ExpiresAt.After(p.now()) {
		return errs.Validation("proposal.save", "proposal already expired")
	}
	p.proposals[proposal.Token] = *proposal
	return nil
}

func (p *ProposalStore) TakeProposal(ctx context.Context, token string) (*models.PaymentProposal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	proposal, ok := p.proposals[token]
	delete(p.proposals, token)
	if !ok || !proposal.ExpiresAt.After(p.now()) {
		return nil, errs.NotFound("proposal.take", "payment proposal not found or expired")
	}
	return &proposal, nil
}
