package workflow

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

// NOTE: These tests are intentionally DB-free. They validate the intended
// approval semantics:
// - a retried approval is safe via durable idempotency
// - per-organization serialization prevents racey interleavings in the ledger
//
// Full DB integration tests should be added in an environment that can run
// MySQL.

type fakeApprover struct {
	muByOrg map[string]*sync.Mutex
	mu      sync.Mutex
	seen    map[string]bool
	ledger  map[string]decimal.Decimal
	posts   int
}

func newFakeApprover() *fakeApprover {
	return &fakeApprover{
		muByOrg: map[string]*sync.Mutex{},
		seen:    map[string]bool{},
		ledger:  map[string]decimal.Decimal{},
	}
}

// approve mirrors ApproveAllocation: acquire the organization's posting lock,
// dedupe on (org, handler, request id), then post additively to the ledger.
func (p *fakeApprover) approve(orgID, requestID, ledgerKey string, amount decimal.Decimal) {
	p.mu.Lock()
	om := p.muByOrg[orgID]
	if om == nil {
		om = &sync.Mutex{}
		p.muByOrg[orgID] = om
	}
	p.mu.Unlock()

	om.Lock()
	defer om.Unlock()

	key := orgID + "|" + allocationApprovalHandler + "|" + requestID
	p.mu.Lock()
	if p.seen[key] {
		p.mu.Unlock()
		return
	}
	p.seen[key] = true
	p.mu.Unlock()

	p.mu.Lock()
	existing, ok := p.ledger[ledgerKey]
	if !ok {
		existing = decimal.Zero
	}
	p.ledger[ledgerKey] = existing.Add(amount)
	p.posts++
	p.mu.Unlock()
}

func TestApproval_DuplicateDelivery_PostsOnce(t *testing.T) {
	p := newFakeApprover()

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.approve("org-1", "42", "org-1|youth|2026", decimal.NewFromInt(3000))
		}()
	}
	wg.Wait()

	if p.posts != 1 {
		t.Fatalf("expected exactly 1 ledger post, got %d", p.posts)
	}
	if got := p.ledger["org-1|youth|2026"]; !got.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("expected ledger 3000, got %s", got)
	}
}

func TestApproval_DistinctRequests_Accumulate(t *testing.T) {
	for run := 0; run < 100; run++ {
		p := newFakeApprover()
		var wg sync.WaitGroup

		// two unrelated approvals for the same ministry/fiscal-year, each
		// delivered multiple times concurrently
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if i%2 == 0 {
					p.approve("org-1", "1", "org-1|youth|2026", decimal.NewFromInt(5000))
				} else {
					p.approve("org-1", "2", "org-1|youth|2026", decimal.NewFromInt(3000))
				}
			}(i)
		}
		wg.Wait()

		if p.posts != 2 {
			t.Fatalf("run %d: expected 2 ledger posts, got %d", run, p.posts)
		}
		if got := p.ledger["org-1|youth|2026"]; !got.Equal(decimal.NewFromInt(8000)) {
			t.Fatalf("run %d: expected ledger 8000, got %s", run, got)
		}
	}
}
