package workflow

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

const (
	guardNameStock      = "stock"
	guardNameFormat     = "address"
	guardNamePayment    = "payment"
	guardNameWithdrawal = "withdrawal"
	guardNameMembership = "membership"
	guardNameReturn     = "return"
	guardNameAuth       = "auth"
	guardNameStorage    = "storage"
	guardNameDeposit    = "deposit"

	namespaceBorrowed = "borrowed"

	minimumAddressTokens = 2
)

// Guard is one validation or reservation step. Check either commits its
// mutation to the store and describes it in the returned Commit, or returns an
// error and leaves its own resource untouched.
type Guard interface {
	Name() string
	Check(ctx context.Context, store ResourceStore, request Request) (Commit, error)
}

// GuardFunc adapts a function into a Guard.
type GuardFunc func(ctx context.Context, store ResourceStore, request Request) (Commit, error)

type namedGuard struct {
	name  string
	check GuardFunc
}

// NewGuard names a GuardFunc.
func NewGuard(name string, check GuardFunc) Guard {
	return namedGuard{name: name, check: check}
}

func (guard namedGuard) Name() string {
	return guard.name
}

func (guard namedGuard) Check(ctx context.Context, store ResourceStore, request Request) (Commit, error) {
	return guard.check(ctx, store, request)
}

// CommitAction is the kind of mutation a guard applied.
type CommitAction string

const (
	CommitNone   CommitAction = "none"
	CommitDebit  CommitAction = "debit"
	CommitCredit CommitAction = "credit"
)

// Commit describes the store mutation made by a successful guard.
type Commit struct {
	Action   CommitAction
	Resource ResourceID
	Amount   Quantity
}

// NoCommit is returned by guards that only validate.
func NoCommit() Commit {
	return Commit{Action: CommitNone}
}

// Undo applies the inverse mutation.
func (commit Commit) Undo(store ResourceStore) error {
	switch commit.Action {
	case CommitDebit:
		return store.Credit(commit.Resource, commit.Amount)
	case CommitCredit:
		return store.Debit(commit.Resource, commit.Amount)
	default:
		return nil
	}
}

func debit(store ResourceStore, id ResourceID, amount Quantity) (Commit, error) {
	if err := store.Debit(id, amount); err != nil {
		return Commit{}, err
	}
	return Commit{Action: CommitDebit, Resource: id, Amount: amount}, nil
}

func credit(store ResourceStore, id ResourceID, amount Quantity) (Commit, error) {
	if err := store.Credit(id, amount); err != nil {
		return Commit{}, err
	}
	return Commit{Action: CommitCredit, Resource: id, Amount: amount}, nil
}

func requireResource(id ResourceID, field string) error {
	if id.IsZero() {
		return fmt.Errorf("%w: %s is required", ErrInvalidRequest, field)
	}
	return nil
}

// StockGuard reserves request.Quantity units of request.Item.
type StockGuard struct{}

// Name returns the step name.
func (StockGuard) Name() string { return guardNameStock }

// Check fails with OutOfStock when the requested quantity exceeds the stock on hand.
func (StockGuard) Check(_ context.Context, store ResourceStore, request Request) (Commit, error) {
	if err := requireResource(request.Item, "item"); err != nil {
		return Commit{}, err
	}
	available := store.Get(request.Item)
	if request.Quantity.GreaterThan(available) {
		return Commit{}, NewOutOfStockError(request.Item, request.Quantity, available)
	}
	return debit(store, request.Item, request.Quantity)
}

// FormatGuard validates a shipping address: at least two whitespace separated
// tokens, the last one a postal code made only of digits.
type FormatGuard struct{}

// Name returns the step name.
func (FormatGuard) Name() string { return guardNameFormat }

// Check never mutates the store.
func (FormatGuard) Check(_ context.Context, _ ResourceStore, request Request) (Commit, error) {
	if !IsValidAddress(request.Address) {
		return Commit{}, NewInvalidFormatError(request.Address)
	}
	return NoCommit(), nil
}

// IsValidAddress reports whether address passes FormatGuard.
func IsValidAddress(address string) bool {
	tokens := strings.Fields(address)
	if len(tokens) < minimumAddressTokens {
		return false
	}
	for _, character := range tokens[len(tokens)-1] {
		if !unicode.IsDigit(character) {
			return false
		}
	}
	return true
}

// BalanceVariant selects the failure semantics of a BalanceGuard.
type BalanceVariant string

const (
	// BalancePayment declines with "Insufficient funds" when the balance is short.
	BalancePayment BalanceVariant = "payment"
	// BalanceWithdrawal reports InsufficientFunds, then checks DailyLimit.
	BalanceWithdrawal BalanceVariant = "withdrawal"
)

// BalanceGuard debits request.Amount from request.Account.
type BalanceGuard struct {
	Variant    BalanceVariant
	DailyLimit Quantity
}

// Name returns the step name.
func (guard BalanceGuard) Name() string {
	if guard.Variant == BalanceWithdrawal {
		return guardNameWithdrawal
	}
	return guardNamePayment
}

// Check verifies the balance (and, for withdrawals, the daily limit) before debiting.
// When a withdrawal exceeds both, the balance failure is reported.
func (guard BalanceGuard) Check(_ context.Context, store ResourceStore, request Request) (Commit, error) {
	if err := requireResource(request.Account, "account"); err != nil {
		return Commit{}, err
	}
	balance := store.Get(request.Account)
	switch guard.Variant {
	case BalanceWithdrawal:
		if request.Amount.GreaterThan(balance) {
			return Commit{}, NewInsufficientFundsError(request.Account, request.Amount, balance)
		}
		if request.Amount.GreaterThan(guard.DailyLimit) {
			return Commit{}, NewDailyLimitExceededError(request.Account, request.Amount, guard.DailyLimit)
		}
	default:
		if request.Amount.GreaterThan(balance) {
			return Commit{}, NewDeclinedError(declineReasonInsufficientFunds)
		}
	}
	return debit(store, request.Account, request.Amount)
}

// DepositGuard credits request.Amount to request.Account.
type DepositGuard struct{}

// Name returns the step name.
func (DepositGuard) Name() string { return guardNameDeposit }

// Check credits the account.
func (DepositGuard) Check(_ context.Context, store ResourceStore, request Request) (Commit, error) {
	if err := requireResource(request.Account, "account"); err != nil {
		return Commit{}, err
	}
	return credit(store, request.Account, request.Amount)
}

// MembershipGuard authorizes a loan of request.Quantity books to request.Member.
type MembershipGuard struct {
	Members *MemberRegistry
}

// Name returns the step name.
func (MembershipGuard) Name() string { return guardNameMembership }

// Check fails with MembershipExpired for inactive or unknown members and with
// BorrowLimitExceeded when the loan would pass the member's limit. On success
// the borrowed count grows by the requested quantity.
func (guard MembershipGuard) Check(_ context.Context, store ResourceStore, request Request) (Commit, error) {
	if err := requireResource(request.Member, "member"); err != nil {
		return Commit{}, err
	}
	membership, found := guard.Members.Lookup(request.Member)
	if !found || !membership.Active {
		return Commit{}, NewMembershipExpiredError(request.Member)
	}
	borrowedKey := BorrowedKey(request.Member)
	current := store.Get(borrowedKey)
	if current.Add(request.Quantity).GreaterThan(membership.BorrowLimit) {
		return Commit{}, NewBorrowLimitExceededError(request.Member, request.Quantity, membership.BorrowLimit)
	}
	return credit(store, borrowedKey, request.Quantity)
}

// ReturnGuard records request.Quantity books returned by request.Member.
type ReturnGuard struct{}

// Name returns the step name.
func (ReturnGuard) Name() string { return guardNameReturn }

// Check fails with NotBorrowed when the member holds fewer books than returned.
func (ReturnGuard) Check(_ context.Context, store ResourceStore, request Request) (Commit, error) {
	if err := requireResource(request.Member, "member"); err != nil {
		return Commit{}, err
	}
	borrowedKey := BorrowedKey(request.Member)
	borrowed := store.Get(borrowedKey)
	if request.Quantity.GreaterThan(borrowed) {
		return Commit{}, NewNotBorrowedError(request.Member, request.Quantity, borrowed)
	}
	return debit(store, borrowedKey, request.Quantity)
}

// BorrowedKey is the store id holding a member's borrowed count.
func BorrowedKey(memberID ResourceID) ResourceID {
	return memberID.Scoped(namespaceBorrowed)
}

// AuthGuard logs request.Username in against a UserTable.
type AuthGuard struct {
	Users *UserTable
}

// Name returns the step name.
func (AuthGuard) Name() string { return guardNameAuth }

// Check fails with UserNotFound, AccountLocked or InvalidPassword. A wrong
// password increments the failed-attempt counter and locks the account on the
// third consecutive failure; a correct one resets the counter.
func (guard AuthGuard) Check(_ context.Context, _ ResourceStore, request Request) (Commit, error) {
	found, err := guard.Users.withUser(request.Username, func(record *userRecord) error {
		if record.locked {
			return NewAccountLockedError(request.Username)
		}
		if !record.matches(request.Password) {
			record.failedAttempts++
			if record.failedAttempts >= lockoutThreshold {
				record.locked = true
			}
			return NewInvalidPasswordError(request.Username)
		}
		record.failedAttempts = 0
		return nil
	})
	if !found {
		return Commit{}, NewUserNotFoundError(request.Username)
	}
	if err != nil {
		return Commit{}, err
	}
	return NoCommit(), nil
}

// StorageGuard backs up request.FilePath (request.Quantity megabytes) onto request.Volume.
type StorageGuard struct {
	Files *FileSet
}

// Name returns the step name.
func (StorageGuard) Name() string { return guardNameStorage }

// Check fails with FileNotFound when the file is unknown and with
// InsufficientStorage when the volume cannot hold it; otherwise debits the size.
func (guard StorageGuard) Check(_ context.Context, store ResourceStore, request Request) (Commit, error) {
	if err := requireResource(request.Volume, "volume"); err != nil {
		return Commit{}, err
	}
	if !guard.Files.Contains(request.FilePath) {
		return Commit{}, NewFileNotFoundError(request.FilePath)
	}
	capacity := store.Get(request.Volume)
	if request.Quantity.GreaterThan(capacity) {
		return Commit{}, NewInsufficientStorageError(request.Volume, request.Quantity, capacity)
	}
	return debit(store, request.Volume, request.Quantity)
}
