package workflow

import (
	"context"
	"errors"
	"testing"
)

func TestStockGuardReservesStock(test *testing.T) {
	test.Parallel()
	store := newSeededStore(test, map[string]string{"SKU123": "5"})
	request := Request{Item: mustResourceID(test, "SKU123"), Quantity: mustQuantity(test, "2")}

	commit, err := StockGuard{}.Check(context.Background(), store, request)
	if err != nil {
		test.Fatalf("stock guard: %v", err)
	}
	if commit.Action != CommitDebit || commit.Resource.String() != "SKU123" || commit.Amount.String() != "2" {
		test.Fatalf("unexpected commit %+v", commit)
	}
	expectQuantity(test, store, "SKU123", "3")
}

func TestStockGuardOutOfStockLeavesStoreUnchanged(test *testing.T) {
	test.Parallel()
	store := newSeededStore(test, map[string]string{"SKU999": "0"})
	request := Request{Item: mustResourceID(test, "SKU999"), Quantity: mustQuantity(test, "1")}

	_, err := StockGuard{}.Check(context.Background(), store, request)
	guardError, ok := AsGuardError(err)
	if !ok || guardError.Kind() != KindOutOfStock {
		test.Fatalf("expected out of stock, got %v", err)
	}
	if guardError.Resource() != "SKU999" || guardError.Requested().String() != "1" || guardError.Available().String() != "0" {
		test.Fatalf("unexpected payload %+v", guardError)
	}
	expectQuantity(test, store, "SKU999", "0")
}

func TestStockGuardRequiresItem(test *testing.T) {
	test.Parallel()
	_, err := StockGuard{}.Check(context.Background(), NewMemoryStore(nil), Request{Quantity: mustQuantity(test, "1")})
	if !errors.Is(err, ErrInvalidRequest) {
		test.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestFormatGuard(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name    string
		address string
		valid   bool
	}{
		{name: "street with postal code", address: "10 Merdeka St 10110", valid: true},
		{name: "surrounding whitespace", address: "  Jalan Sudirman\t12190  ", valid: true},
		{name: "last token not digits", address: "Boulevard Raya", valid: false},
		{name: "single token", address: "10110", valid: false},
		{name: "empty", address: "", valid: false},
		{name: "postal code with letters", address: "221B Baker Street NW1", valid: false},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			store := newSeededStore(test, map[string]string{"SKU123": "5"})
			before := store.Snapshot()
			commit, err := FormatGuard{}.Check(context.Background(), store, Request{Address: testCase.address})
			if testCase.valid {
				if err != nil {
					test.Fatalf("expected valid address, got %v", err)
				}
				if commit.Action != CommitNone {
					test.Fatalf("format guard must not commit, got %+v", commit)
				}
			} else {
				guardError, ok := AsGuardError(err)
				if !ok || guardError.Kind() != KindInvalidFormat || guardError.Input() != testCase.address {
					test.Fatalf("expected invalid format for %q, got %v", testCase.address, err)
				}
			}
			if len(store.Snapshot()) != len(before) {
				test.Fatalf("format guard mutated the store")
			}
		})
	}
}

func TestPaymentGuardDeclinesWithoutCharging(test *testing.T) {
	test.Parallel()
	store := newSeededStore(test, map[string]string{"wallet": "34.00"})
	request := Request{Account: mustResourceID(test, "wallet"), Amount: mustQuantity(test, "90.00")}

	_, err := BalanceGuard{Variant: BalancePayment}.Check(context.Background(), store, request)
	guardError, ok := AsGuardError(err)
	if !ok || guardError.Kind() != KindDeclined || guardError.Reason() != "Insufficient funds" {
		test.Fatalf("expected declined payment, got %v", err)
	}
	expectQuantity(test, store, "wallet", "34")
}

func TestPaymentGuardCharges(test *testing.T) {
	test.Parallel()
	store := newSeededStore(test, map[string]string{"wallet": "100.00"})
	request := Request{Account: mustResourceID(test, "wallet"), Amount: mustQuantity(test, "40.00")}

	if _, err := (BalanceGuard{Variant: BalancePayment}).Check(context.Background(), store, request); err != nil {
		test.Fatalf("charge: %v", err)
	}
	expectQuantity(test, store, "wallet", "60")
}

func TestWithdrawalGuard(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name        string
		balance     string
		amount      string
		wantKind    ErrorKind
		wantBalance string
	}{
		{name: "dispenses", balance: "500", amount: "200", wantBalance: "300"},
		{name: "over daily limit", balance: "500", amount: "350", wantKind: KindDailyLimitExceeded, wantBalance: "500"},
		{name: "over balance", balance: "100", amount: "150", wantKind: KindInsufficientFunds, wantBalance: "100"},
		{name: "over both reports balance", balance: "200", amount: "350", wantKind: KindInsufficientFunds, wantBalance: "200"},
		{name: "exactly the limit", balance: "500", amount: "300", wantBalance: "200"},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			store := newSeededStore(test, map[string]string{"atm": testCase.balance})
			guard := BalanceGuard{Variant: BalanceWithdrawal, DailyLimit: mustQuantity(test, "300")}
			request := Request{Account: mustResourceID(test, "atm"), Amount: mustQuantity(test, testCase.amount)}

			_, err := guard.Check(context.Background(), store, request)
			if testCase.wantKind == "" {
				if err != nil {
					test.Fatalf("unexpected error: %v", err)
				}
			} else if !errors.Is(err, testCase.wantKind) {
				test.Fatalf("expected %s, got %v", testCase.wantKind, err)
			}
			expectQuantity(test, store, "atm", testCase.wantBalance)
		})
	}
}

func TestDepositGuardCredits(test *testing.T) {
	test.Parallel()
	store := newSeededStore(test, map[string]string{"atm": "10"})
	commit, err := DepositGuard{}.Check(context.Background(), store, Request{Account: mustResourceID(test, "atm"), Amount: mustQuantity(test, "2.5")})
	if err != nil {
		test.Fatalf("deposit: %v", err)
	}
	if commit.Action != CommitCredit {
		test.Fatalf("expected credit commit, got %+v", commit)
	}
	expectQuantity(test, store, "atm", "12.5")
}

func newTestMembers(test *testing.T, active bool) *MemberRegistry {
	test.Helper()
	members := NewMemberRegistry()
	if err := members.Register(mustResourceID(test, "reader-1"), Membership{Active: active, BorrowLimit: mustQuantity(test, "5")}); err != nil {
		test.Fatalf("register member: %v", err)
	}
	return members
}

func TestMembershipGuardBorrowLimit(test *testing.T) {
	test.Parallel()
	store := newSeededStore(test, map[string]string{"borrowed:reader-1": "4"})
	guard := MembershipGuard{Members: newTestMembers(test, true)}
	request := Request{Member: mustResourceID(test, "reader-1"), Quantity: mustQuantity(test, "2")}

	_, err := guard.Check(context.Background(), store, request)
	guardError, ok := AsGuardError(err)
	if !ok || guardError.Kind() != KindBorrowLimitExceeded || guardError.Limit().String() != "5" {
		test.Fatalf("expected borrow limit exceeded, got %v", err)
	}
	expectQuantity(test, store, "borrowed:reader-1", "4")
}

func TestMembershipGuardIncrementsBorrowedCount(test *testing.T) {
	test.Parallel()
	store := newSeededStore(test, map[string]string{"borrowed:reader-1": "3"})
	guard := MembershipGuard{Members: newTestMembers(test, true)}
	request := Request{Member: mustResourceID(test, "reader-1"), Quantity: mustQuantity(test, "2")}

	if _, err := guard.Check(context.Background(), store, request); err != nil {
		test.Fatalf("borrow: %v", err)
	}
	expectQuantity(test, store, "borrowed:reader-1", "5")
}

func TestMembershipGuardExpired(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name    string
		members *MemberRegistry
		member  string
	}{
		{name: "inactive", members: newTestMembers(test, false), member: "reader-1"},
		{name: "unknown", members: newTestMembers(test, true), member: "stranger"},
		{name: "no registry", members: nil, member: "reader-1"},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			store := NewMemoryStore(nil)
			guard := MembershipGuard{Members: testCase.members}
			request := Request{Member: mustResourceID(test, testCase.member), Quantity: mustQuantity(test, "1")}
			_, err := guard.Check(context.Background(), store, request)
			if !errors.Is(err, KindMembershipExpired) {
				test.Fatalf("expected membership expired, got %v", err)
			}
			if len(store.Snapshot()) != 0 {
				test.Fatalf("expired membership must not mutate the store")
			}
		})
	}
}

func TestReturnGuard(test *testing.T) {
	test.Parallel()
	store := newSeededStore(test, map[string]string{"borrowed:reader-1": "1"})
	request := Request{Member: mustResourceID(test, "reader-1"), Quantity: mustQuantity(test, "2")}

	_, err := ReturnGuard{}.Check(context.Background(), store, request)
	if !errors.Is(err, KindNotBorrowed) {
		test.Fatalf("expected not borrowed, got %v", err)
	}
	expectQuantity(test, store, "borrowed:reader-1", "1")

	request.Quantity = mustQuantity(test, "1")
	if _, err := (ReturnGuard{}).Check(context.Background(), store, request); err != nil {
		test.Fatalf("return: %v", err)
	}
	expectQuantity(test, store, "borrowed:reader-1", "0")
}

func TestAuthGuardLockout(test *testing.T) {
	test.Parallel()
	users := newTestUsers(test)
	guard := AuthGuard{Users: users}
	wrong := Request{Username: "alice", Password: "wrongpass"}

	for attempt := 1; attempt <= 3; attempt++ {
		_, err := guard.Check(context.Background(), nil, wrong)
		if !errors.Is(err, KindInvalidPassword) {
			test.Fatalf("attempt %d: expected invalid password, got %v", attempt, err)
		}
		status, _ := users.Status("alice")
		if status.Locked != (attempt == 3) {
			test.Fatalf("attempt %d: unexpected lock state %+v", attempt, status)
		}
	}

	_, err := guard.Check(context.Background(), nil, Request{Username: "alice", Password: "secret123"})
	if !errors.Is(err, KindAccountLocked) {
		test.Fatalf("expected account locked, got %v", err)
	}
}

func TestAuthGuardSuccessResetsAttempts(test *testing.T) {
	test.Parallel()
	users := newTestUsers(test)
	guard := AuthGuard{Users: users}

	for attempt := 0; attempt < 2; attempt++ {
		if _, err := guard.Check(context.Background(), nil, Request{Username: "alice", Password: "nope"}); !errors.Is(err, KindInvalidPassword) {
			test.Fatalf("expected invalid password, got %v", err)
		}
	}
	if _, err := guard.Check(context.Background(), nil, Request{Username: "alice", Password: "secret123"}); err != nil {
		test.Fatalf("login: %v", err)
	}
	status, found := users.Status("alice")
	if !found || status.FailedAttempts != 0 || status.Locked {
		test.Fatalf("expected counter reset, got %+v", status)
	}
}

func TestAuthGuardUnknownUser(test *testing.T) {
	test.Parallel()
	_, err := AuthGuard{Users: newTestUsers(test)}.Check(context.Background(), nil, Request{Username: "bob", Password: "wrongpass"})
	guardError, ok := AsGuardError(err)
	if !ok || guardError.Kind() != KindUserNotFound || guardError.Error() != "User 'bob' not found." {
		test.Fatalf("expected user not found, got %v", err)
	}
}

func TestUserTableUnlock(test *testing.T) {
	test.Parallel()
	users := newTestUsers(test)
	guard := AuthGuard{Users: users}
	for attempt := 0; attempt < 3; attempt++ {
		_, _ = guard.Check(context.Background(), nil, Request{Username: "alice", Password: "nope"})
	}
	if !users.Unlock("alice") {
		test.Fatalf("expected unlock to find alice")
	}
	if _, err := guard.Check(context.Background(), nil, Request{Username: "alice", Password: "secret123"}); err != nil {
		test.Fatalf("login after unlock: %v", err)
	}
	if err := users.Register("alice", "other"); !errors.Is(err, ErrDuplicateUser) {
		test.Fatalf("expected ErrDuplicateUser, got %v", err)
	}
}

func TestStorageGuard(test *testing.T) {
	test.Parallel()
	files := NewFileSet("important.docx")
	testCases := []struct {
		name      string
		path      string
		size      string
		wantKind  ErrorKind
		wantSpace string
	}{
		{name: "backs up", path: "important.docx", size: "20", wantSpace: "80"},
		{name: "unknown file", path: "unknown.docx", size: "20", wantKind: KindFileNotFound, wantSpace: "100"},
		{name: "too large", path: "important.docx", size: "120", wantKind: KindInsufficientStorage, wantSpace: "100"},
		{name: "unknown and too large reports file", path: "unknown.docx", size: "120", wantKind: KindFileNotFound, wantSpace: "100"},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			store := newSeededStore(test, map[string]string{"disk": "100"})
			request := Request{Volume: mustResourceID(test, "disk"), FilePath: testCase.path, Quantity: mustQuantity(test, testCase.size)}
			_, err := StorageGuard{Files: files}.Check(context.Background(), store, request)
			if testCase.wantKind == "" {
				if err != nil {
					test.Fatalf("unexpected error: %v", err)
				}
			} else if !errors.Is(err, testCase.wantKind) {
				test.Fatalf("expected %s, got %v", testCase.wantKind, err)
			}
			expectQuantity(test, store, "disk", testCase.wantSpace)
		})
	}
}
