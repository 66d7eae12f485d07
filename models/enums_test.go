package models

import "testing"

func TestExpenseTransitions_DocumentedEdges(t *testing.T) {
	allowed := []struct {
		from, to ExpenseStatus
	}{
		{ExpenseStatusDraft, ExpenseStatusPendingLeader},
		{ExpenseStatusPendingLeader, ExpenseStatusLeaderApproved},
		{ExpenseStatusPendingLeader, ExpenseStatusLeaderDenied},
		{ExpenseStatusPendingLeader, ExpenseStatusCancelled},
		{ExpenseStatusLeaderApproved, ExpenseStatusTreasuryApproved},
		{ExpenseStatusLeaderApproved, ExpenseStatusTreasuryDenied},
		{ExpenseStatusPendingTreasury, ExpenseStatusTreasuryApproved},
		{ExpenseStatusTreasuryApproved, ExpenseStatusCompleted},
		{ExpenseStatusPendingFinance, ExpenseStatusCompleted},
	}
	for _, e := range allowed {
		if !e.from.CanTransition(e.to) {
			t.Errorf("expected %s -> %s to be allowed", e.from, e.to)
		}
	}

	denied := []struct {
		from, to ExpenseStatus
	}{
		{ExpenseStatusDraft, ExpenseStatusCompleted},
		{ExpenseStatusDraft, ExpenseStatusLeaderApproved},
		{ExpenseStatusDraft, ExpenseStatusCancelled},
		{ExpenseStatusLeaderApproved, ExpenseStatusCompleted},
		{ExpenseStatusLeaderApproved, ExpenseStatusCancelled},
		{ExpenseStatusCompleted, ExpenseStatusPendingLeader},
		{ExpenseStatusCancelled, ExpenseStatusPendingLeader},
		{ExpenseStatusLeaderDenied, ExpenseStatusPendingLeader},
		{ExpenseStatusTreasuryDenied, ExpenseStatusPendingTreasury},
	}
	for _, e := range denied {
		if e.from.CanTransition(e.to) {
			t.Errorf("expected %s -> %s to be rejected", e.from, e.to)
		}
	}
}

func TestExpenseStatus_Terminality(t *testing.T) {
	terminals := []ExpenseStatus{
		ExpenseStatusCompleted,
		ExpenseStatusLeaderDenied,
		ExpenseStatusTreasuryDenied,
		ExpenseStatusCancelled,
	}
	for _, s := range terminals {
		if !s.IsTerminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for s := range expenseTransitions {
		if s.IsTerminal() {
			continue
		}
		if len(expenseTransitions[s]) == 0 {
			t.Errorf("non-terminal status %s has no outgoing edges", s)
		}
	}
}

func TestAllocationTransitions(t *testing.T) {
	if !AllocationStatusDraft.CanTransition(AllocationStatusPending) {
		t.Error("draft -> pending must be allowed")
	}
	if !AllocationStatusPending.CanTransition(AllocationStatusPartiallyApproved) {
		t.Error("pending -> partially_approved must be allowed")
	}
	if !AllocationStatusPending.CanTransition(AllocationStatusCancelled) {
		t.Error("pending -> cancelled must be allowed")
	}
	if AllocationStatusDraft.CanTransition(AllocationStatusApproved) {
		t.Error("draft -> approved must be rejected")
	}
	if AllocationStatusApproved.CanTransition(AllocationStatusPending) {
		t.Error("approved is terminal")
	}
	if AllocationStatusCancelled.CanTransition(AllocationStatusPending) {
		t.Error("cancelled is terminal")
	}
}

func TestExpenseStatus_Scan(t *testing.T) {
	var s ExpenseStatus
	if err := s.Scan("pending_leader"); err != nil {
		t.Fatalf("scan valid status: %v", err)
	}
	if s != ExpenseStatusPendingLeader {
		t.Fatalf("got %s", s)
	}
	if err := s.Scan("shipped"); err == nil {
		t.Fatal("expected error scanning unknown status")
	}
}
