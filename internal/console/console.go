// Package console drives the reservation pipelines and the book catalog from
// a line-oriented terminal session.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MarkoPoloResearchLab/frontdesk/internal/catalog"
	"github.com/MarkoPoloResearchLab/frontdesk/internal/seed"
	"github.com/MarkoPoloResearchLab/frontdesk/pkg/workflow"
	"github.com/shopspring/decimal"
)

var ErrMissingDependency = errors.New("missing console dependency")

// Store is a ResourceStore that can enumerate its counters.
type Store interface {
	workflow.ResourceStore
	Keys() []string
}

// Desk bundles what a session runs against. Books is optional.
type Desk struct {
	Executor *workflow.Executor
	Reporter *workflow.Reporter
	Store    Store
	Flows    workflow.Flows
	Defaults seed.Defaults
	Books    *catalog.Service
}

// Session is one interactive conversation over in and out.
type Session struct {
	desk    Desk
	scanner *bufio.Scanner
	out     io.Writer
}

var errInputClosed = errors.New("input closed")

// NewSession validates desk and binds it to in and out.
func NewSession(desk Desk, in io.Reader, out io.Writer) (*Session, error) {
	if desk.Store == nil {
		return nil, fmt.Errorf("%w: store", ErrMissingDependency)
	}
	if desk.Executor == nil {
		desk.Executor = workflow.NewExecutor()
	}
	if desk.Reporter == nil {
		desk.Reporter = workflow.NewReporter()
	}
	return &Session{desk: desk, scanner: bufio.NewScanner(in), out: out}, nil
}

// Run shows the main menu until the user exits or input ends.
func (session *Session) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		session.println("")
		session.println("Front desk menu:")
		session.println("1. Place Order")
		session.println("2. Borrow Books")
		session.println("3. Return Books")
		session.println("4. Withdraw Cash")
		session.println("5. Deposit")
		session.println("6. Log In")
		session.println("7. Back Up File")
		session.println("8. Show Resources")
		session.println("9. Book Catalog")
		session.println("0. Exit")
		choice, err := session.prompt("Enter your choice: ")
		if err != nil {
			return ignoreClosed(err)
		}
		switch choice {
		case "1":
			err = session.placeOrder(ctx)
		case "2":
			err = session.memberFlow(ctx, session.desk.Flows.Borrow, workflow.NewBorrowRequest)
		case "3":
			err = session.memberFlow(ctx, session.desk.Flows.Return, workflow.NewReturnRequest)
		case "4":
			err = session.accountFlow(ctx, session.desk.Flows.Withdrawal, session.desk.Defaults.ATM, workflow.NewWithdrawalRequest)
		case "5":
			err = session.accountFlow(ctx, session.desk.Flows.Deposit, session.desk.Defaults.Wallet, workflow.NewDepositRequest)
		case "6":
			err = session.logIn(ctx)
		case "7":
			err = session.backUp(ctx)
		case "8":
			session.showResources()
		case "9":
			err = session.catalogMenu(ctx)
		case "0":
			session.println("Exiting the program.")
			return nil
		default:
			session.println("Invalid choice, please try again.")
		}
		if err != nil {
			return ignoreClosed(err)
		}
	}
}

func (session *Session) placeOrder(ctx context.Context) error {
	item, err := session.prompt("Product ID: ")
	if err != nil {
		return err
	}
	quantity, err := session.promptDecimal("Quantity: ")
	if err != nil || quantity == nil {
		return err
	}
	unitPrice, err := session.promptDecimal("Unit price: ")
	if err != nil || unitPrice == nil {
		return err
	}
	address, err := session.prompt("Shipping address: ")
	if err != nil {
		return err
	}
	request, err := workflow.NewOrderRequest(item, session.desk.Defaults.Wallet, *quantity, *unitPrice, address)
	if err != nil {
		session.invalid(err)
		return nil
	}
	session.execute(ctx, session.desk.Flows.Order, request, true)
	return nil
}

func (session *Session) memberFlow(ctx context.Context, pipeline workflow.Pipeline, build func(string, decimal.Decimal) (workflow.Request, error)) error {
	member, err := session.prompt("Member ID: ")
	if err != nil {
		return err
	}
	quantity, err := session.promptDecimal("Number of books: ")
	if err != nil || quantity == nil {
		return err
	}
	request, err := build(member, *quantity)
	if err != nil {
		session.invalid(err)
		return nil
	}
	session.execute(ctx, pipeline, request, false)
	return nil
}

func (session *Session) accountFlow(ctx context.Context, pipeline workflow.Pipeline, account string, build func(string, decimal.Decimal) (workflow.Request, error)) error {
	amount, err := session.promptDecimal("Amount: ")
	if err != nil || amount == nil {
		return err
	}
	request, err := build(account, *amount)
	if err != nil {
		session.invalid(err)
		return nil
	}
	session.execute(ctx, pipeline, request, false)
	return nil
}

func (session *Session) logIn(ctx context.Context) error {
	username, err := session.prompt("Username: ")
	if err != nil {
		return err
	}
	password, err := session.prompt("Password: ")
	if err != nil {
		return err
	}
	request, err := workflow.NewLoginRequest(username, password)
	if err != nil {
		session.invalid(err)
		return nil
	}
	session.execute(ctx, session.desk.Flows.Login, request, false)
	return nil
}

func (session *Session) backUp(ctx context.Context) error {
	path, err := session.prompt("File path: ")
	if err != nil {
		return err
	}
	size, err := session.promptDecimal("Size (MB): ")
	if err != nil || size == nil {
		return err
	}
	request, err := workflow.NewBackupRequest(session.desk.Defaults.Volume, path, *size)
	if err != nil {
		session.invalid(err)
		return nil
	}
	session.execute(ctx, session.desk.Flows.Backup, request, false)
	return nil
}

func (session *Session) showResources() {
	keys := session.desk.Store.Keys()
	if len(keys) == 0 {
		session.println("No resources.")
		return
	}
	for _, key := range keys {
		id, err := workflow.NewResourceID(key)
		if err != nil {
			continue
		}
		session.printf("%s: %s\n", key, session.desk.Store.Get(id))
	}
}

// execute runs pipeline and prints the rendered outcome. withNotice adds the
// completion line the order flow always prints.
func (session *Session) execute(ctx context.Context, pipeline workflow.Pipeline, request workflow.Request, withNotice bool) workflow.Outcome {
	outcome := session.desk.Executor.Run(ctx, pipeline, session.desk.Store, request, nil)
	session.println(session.desk.Reporter.Headline(outcome))
	if withNotice {
		session.println(session.desk.Reporter.Notice(outcome))
	}
	return outcome
}

func (session *Session) prompt(label string) (string, error) {
	session.printf("%s", label)
	if !session.scanner.Scan() {
		if err := session.scanner.Err(); err != nil {
			return "", err
		}
		return "", errInputClosed
	}
	return strings.TrimSpace(session.scanner.Text()), nil
}

// promptDecimal returns nil without error when the answer is not a number.
func (session *Session) promptDecimal(label string) (*decimal.Decimal, error) {
	raw, err := session.prompt(label)
	if err != nil {
		return nil, err
	}
	value, parseErr := decimal.NewFromString(raw)
	if parseErr != nil {
		session.println("Invalid input. Please enter a valid number.")
		return nil, nil
	}
	return &value, nil
}

func (session *Session) invalid(err error) {
	session.printf("Invalid input: %v\n", err)
}

func (session *Session) println(line string) {
	fmt.Fprintln(session.out, line)
}

func (session *Session) printf(format string, args ...any) {
	fmt.Fprintf(session.out, format, args...)
}

func ignoreClosed(err error) error {
	if errors.Is(err, errInputClosed) {
		return nil
	}
	return err
}
