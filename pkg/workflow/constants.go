package workflow

const (
	operationRun = "run"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	resourceKeyDelimiter = ":"

	lockoutThreshold = 3

	declineReasonInsufficientFunds = "Insufficient funds"

	tracerName = "github.com/MarkoPoloResearchLab/frontdesk/pkg/workflow"
)

// Flow names identify the pipelines built by this package.
const (
	FlowOrder      = "order"
	FlowBorrow     = "borrow"
	FlowReturn     = "return"
	FlowWithdrawal = "withdrawal"
	FlowDeposit    = "deposit"
	FlowLogin      = "login"
	FlowBackup     = "backup"
)
