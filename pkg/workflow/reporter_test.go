package workflow

import (
	"context"
	"errors"
	"testing"
)

func TestReporterMessages(test *testing.T) {
	test.Parallel()
	reporter := NewReporter()
	borrow, err := NewBorrowRequest("member-1", mustDecimal(test, "2"))
	if err != nil {
		test.Fatalf("borrow request: %v", err)
	}
	withdrawal, err := NewWithdrawalRequest("atm", mustDecimal(test, "50"))
	if err != nil {
		test.Fatalf("withdrawal request: %v", err)
	}

	testCases := []struct {
		name         string
		outcome      Outcome
		wantMessage  string
		wantHeadline string
		wantNotice   string
	}{
		{
			name:         "order success",
			outcome:      Outcome{Flow: FlowOrder, State: StateSucceeded},
			wantMessage:  "Order succeeded!",
			wantHeadline: "Order succeeded!",
			wantNotice:   "Order process complete.",
		},
		{
			name:         "order failure",
			outcome:      Outcome{Flow: FlowOrder, State: StateFailed, Err: NewInvalidFormatError("Boulevard Raya")},
			wantMessage:  "Invalid shipping address: 'Boulevard Raya'.",
			wantHeadline: "Order failed: Invalid shipping address: 'Boulevard Raya'.",
			wantNotice:   "Order process complete.",
		},
		{
			name:         "borrow success",
			outcome:      Outcome{Flow: FlowBorrow, State: StateSucceeded, Request: borrow},
			wantMessage:  "Borrowed 2 book(s).",
			wantHeadline: "Borrowed 2 book(s).",
			wantNotice:   "Borrow process complete.",
		},
		{
			name:         "withdrawal success",
			outcome:      Outcome{Flow: FlowWithdrawal, State: StateSucceeded, Request: withdrawal},
			wantMessage:  "Dispensed $50.",
			wantHeadline: "Dispensed $50.",
			wantNotice:   "Withdrawal process complete.",
		},
		{
			name:         "login lockout",
			outcome:      Outcome{Flow: FlowLogin, State: StateFailed, Err: NewAccountLockedError("alice")},
			wantMessage:  "Account is locked due to multiple failed login attempts.",
			wantHeadline: "Login failed: Account is locked due to multiple failed login attempts.",
			wantNotice:   "Login process complete.",
		},
		{
			name:         "unexpected failure",
			outcome:      Outcome{Flow: "custom", State: StateFailed, Err: errors.New("disk gone")},
			wantMessage:  "Unexpected error: disk gone",
			wantHeadline: "Operation failed: Unexpected error: disk gone",
			wantNotice:   "Operation process complete.",
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			if got := reporter.Message(testCase.outcome); got != testCase.wantMessage {
				test.Fatalf("message: expected %q, got %q", testCase.wantMessage, got)
			}
			if got := reporter.Headline(testCase.outcome); got != testCase.wantHeadline {
				test.Fatalf("headline: expected %q, got %q", testCase.wantHeadline, got)
			}
			if got := reporter.Notice(testCase.outcome); got != testCase.wantNotice {
				test.Fatalf("notice: expected %q, got %q", testCase.wantNotice, got)
			}
		})
	}
}

func TestReporterDoesNotTouchTheStore(test *testing.T) {
	test.Parallel()
	store := newOrderStore(test)
	reporter := NewReporter()
	outcome := NewExecutor().Run(context.Background(), OrderPipeline(), store, mustOrderRequest(test, "SKU123", "2", "20.00", validAddress), nil)
	before := store.Snapshot()

	first := reporter.Message(outcome)
	second := reporter.Message(outcome)

	if first != second {
		test.Fatalf("reporting must be idempotent: %q vs %q", first, second)
	}
	after := store.Snapshot()
	for key, quantity := range before {
		if !after[key].Equal(quantity) {
			test.Fatalf("reporting changed %s from %s to %s", key, quantity, after[key])
		}
	}
}

func TestReporterRegisterOverridesFlow(test *testing.T) {
	test.Parallel()
	reporter := NewReporter()
	reporter.Register("refund", "Refund", func(request Request) string {
		return "Refunded " + request.Amount.String() + "."
	})
	request, err := NewDepositRequest("wallet", mustDecimal(test, "12.50"))
	if err != nil {
		test.Fatalf("deposit request: %v", err)
	}
	outcome := Outcome{Flow: "refund", State: StateSucceeded, Request: request}
	if got := reporter.Message(outcome); got != "Refunded 12.5." {
		test.Fatalf("unexpected message %q", got)
	}
	if got := reporter.Notice(outcome); got != "Refund process complete." {
		test.Fatalf("unexpected notice %q", got)
	}
}
