package workflow

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// OrderPipeline reserves stock, validates the shipping address, then charges the account.
func OrderPipeline() Pipeline {
	return Pipeline{Name: FlowOrder, Guards: []Guard{StockGuard{}, FormatGuard{}, BalanceGuard{Variant: BalancePayment}}}
}

// BorrowPipeline authorizes a loan against the member registry.
func BorrowPipeline(members *MemberRegistry) Pipeline {
	return Pipeline{Name: FlowBorrow, Guards: []Guard{MembershipGuard{Members: members}}}
}

// ReturnPipeline records returned books.
func ReturnPipeline() Pipeline {
	return Pipeline{Name: FlowReturn, Guards: []Guard{ReturnGuard{}}}
}

// WithdrawalPipeline dispenses cash under a daily limit.
func WithdrawalPipeline(dailyLimit Quantity) Pipeline {
	return Pipeline{Name: FlowWithdrawal, Guards: []Guard{BalanceGuard{Variant: BalanceWithdrawal, DailyLimit: dailyLimit}}}
}

// DepositPipeline credits an account.
func DepositPipeline() Pipeline {
	return Pipeline{Name: FlowDeposit, Guards: []Guard{DepositGuard{}}}
}

// LoginPipeline authenticates against the user table.
func LoginPipeline(users *UserTable) Pipeline {
	return Pipeline{Name: FlowLogin, Guards: []Guard{AuthGuard{Users: users}}}
}

// BackupPipeline copies a known file onto a storage volume.
func BackupPipeline(files *FileSet) Pipeline {
	return Pipeline{Name: FlowBackup, Guards: []Guard{StorageGuard{Files: files}}}
}

// FlowDependencies are the collaborators the built-in pipelines close over.
type FlowDependencies struct {
	Members    *MemberRegistry
	Users      *UserTable
	Files      *FileSet
	DailyLimit Quantity
}

// Flows bundles every built-in pipeline.
type Flows struct {
	Order      Pipeline
	Borrow     Pipeline
	Return     Pipeline
	Withdrawal Pipeline
	Deposit    Pipeline
	Login      Pipeline
	Backup     Pipeline
}

// NewFlows builds every pipeline over dependencies.
func NewFlows(dependencies FlowDependencies) Flows {
	return Flows{
		Order:      OrderPipeline(),
		Borrow:     BorrowPipeline(dependencies.Members),
		Return:     ReturnPipeline(),
		Withdrawal: WithdrawalPipeline(dependencies.DailyLimit),
		Deposit:    DepositPipeline(),
		Login:      LoginPipeline(dependencies.Users),
		Backup:     BackupPipeline(dependencies.Files),
	}
}

// NewOrderRequest validates an order: a whole positive quantity of item at
// unitPrice, shipped to address and charged to account.
func NewOrderRequest(item string, account string, quantity decimal.Decimal, unitPrice decimal.Decimal, address string) (Request, error) {
	itemID, err := NewResourceID(item)
	if err != nil {
		return Request{}, err
	}
	accountID, err := NewResourceID(account)
	if err != nil {
		return Request{}, err
	}
	count, err := NewCount(quantity)
	if err != nil {
		return Request{}, err
	}
	price, err := NewQuantity(unitPrice)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Item:      itemID,
		Account:   accountID,
		Quantity:  count,
		UnitPrice: price,
		Amount:    count.Mul(price),
		Address:   address,
	}, nil
}

// NewBorrowRequest validates a loan of quantity books to member.
func NewBorrowRequest(member string, quantity decimal.Decimal) (Request, error) {
	return newMemberRequest(member, quantity)
}

// NewReturnRequest validates a return of quantity books by member.
func NewReturnRequest(member string, quantity decimal.Decimal) (Request, error) {
	return newMemberRequest(member, quantity)
}

func newMemberRequest(member string, quantity decimal.Decimal) (Request, error) {
	memberID, err := NewResourceID(member)
	if err != nil {
		return Request{}, err
	}
	count, err := NewCount(quantity)
	if err != nil {
		return Request{}, err
	}
	return Request{Member: memberID, Quantity: count}, nil
}

// NewWithdrawalRequest validates a cash withdrawal.
func NewWithdrawalRequest(account string, amount decimal.Decimal) (Request, error) {
	return newAccountRequest(account, amount)
}

// NewDepositRequest validates a deposit.
func NewDepositRequest(account string, amount decimal.Decimal) (Request, error) {
	return newAccountRequest(account, amount)
}

func newAccountRequest(account string, amount decimal.Decimal) (Request, error) {
	accountID, err := NewResourceID(account)
	if err != nil {
		return Request{}, err
	}
	validated, err := NewPositiveQuantity(amount)
	if err != nil {
		return Request{}, err
	}
	return Request{Account: accountID, Amount: validated}, nil
}

// NewLoginRequest validates a login attempt.
func NewLoginRequest(username string, password string) (Request, error) {
	if strings.TrimSpace(username) == "" {
		return Request{}, fmt.Errorf("%w: empty value", ErrInvalidUsername)
	}
	return Request{Username: username, Password: password}, nil
}

// NewBackupRequest validates a backup of path (sizeMB megabytes) onto volume.
func NewBackupRequest(volume string, path string, sizeMB decimal.Decimal) (Request, error) {
	volumeID, err := NewResourceID(volume)
	if err != nil {
		return Request{}, err
	}
	size, err := NewPositiveQuantity(sizeMB)
	if err != nil {
		return Request{}, err
	}
	if strings.TrimSpace(path) == "" {
		return Request{}, fmt.Errorf("%w: empty file path", ErrInvalidRequest)
	}
	return Request{Volume: volumeID, FilePath: path, Quantity: size}, nil
}
