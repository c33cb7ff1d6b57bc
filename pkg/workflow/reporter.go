package workflow

import (
	"fmt"
	"sync"
)

const (
	defaultLabel          = "Operation"
	defaultSuccessMessage = "Operation succeeded."
	unexpectedTemplate    = "Unexpected error: %v"
	failureTemplate       = "%s failed: %s"
	noticeTemplate        = "%s process complete."
)

// SuccessMessage renders the success phrase of a flow from its request.
type SuccessMessage func(request Request) string

type flowReport struct {
	label   string
	success SuccessMessage
}

// Reporter maps outcomes to user-facing text. It never touches a store.
type Reporter struct {
	mutex   sync.RWMutex
	reports map[string]flowReport
}

// NewReporter returns a reporter that knows the built-in flows.
func NewReporter() *Reporter {
	reporter := &Reporter{reports: make(map[string]flowReport)}
	reporter.Register(FlowOrder, "Order", func(Request) string {
		return "Order succeeded!"
	})
	reporter.Register(FlowBorrow, "Borrow", func(request Request) string {
		return fmt.Sprintf("Borrowed %s book(s).", request.Quantity)
	})
	reporter.Register(FlowReturn, "Return", func(request Request) string {
		return fmt.Sprintf("Returned %s book(s).", request.Quantity)
	})
	reporter.Register(FlowWithdrawal, "Withdrawal", func(request Request) string {
		return fmt.Sprintf("Dispensed $%s.", request.Amount)
	})
	reporter.Register(FlowDeposit, "Deposit", func(request Request) string {
		return fmt.Sprintf("Deposited $%s.", request.Amount)
	})
	reporter.Register(FlowLogin, "Login", func(request Request) string {
		return fmt.Sprintf("Welcome, %s!", request.Username)
	})
	reporter.Register(FlowBackup, "Backup", func(request Request) string {
		return fmt.Sprintf("'%s' backed up.", request.FilePath)
	})
	return reporter
}

// Register sets the label and success phrase of a flow.
func (reporter *Reporter) Register(flow string, label string, success SuccessMessage) {
	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()
	reporter.reports[flow] = flowReport{label: label, success: success}
}

// Message returns the success phrase or the failure message of outcome.
func (reporter *Reporter) Message(outcome Outcome) string {
	report := reporter.lookup(outcome.Flow)
	if outcome.Succeeded() {
		if report.success == nil {
			return defaultSuccessMessage
		}
		return report.success(outcome.Request)
	}
	if guardError, ok := outcome.GuardError(); ok {
		return guardError.Error()
	}
	return fmt.Sprintf(unexpectedTemplate, outcome.Err)
}

// Headline prefixes failures with the flow label, e.g. "Order failed: ...".
func (reporter *Reporter) Headline(outcome Outcome) string {
	message := reporter.Message(outcome)
	if outcome.Succeeded() {
		return message
	}
	return fmt.Sprintf(failureTemplate, reporter.lookup(outcome.Flow).label, message)
}

// Notice is the completion line printed after every run, e.g. "Order process complete.".
func (reporter *Reporter) Notice(outcome Outcome) string {
	return fmt.Sprintf(noticeTemplate, reporter.lookup(outcome.Flow).label)
}

func (reporter *Reporter) lookup(flow string) flowReport {
	reporter.mutex.RLock()
	defer reporter.mutex.RUnlock()
	report, found := reporter.reports[flow]
	if !found || report.label == "" {
		report.label = defaultLabel
	}
	return report
}
