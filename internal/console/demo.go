package console

import (
	"context"
	"fmt"
	"io"

	"github.com/MarkoPoloResearchLab/frontdesk/pkg/workflow"
	"github.com/shopspring/decimal"
)

type demoStep struct {
	pipeline func(flows workflow.Flows) workflow.Pipeline
	request  func(defaults demoDefaults) (workflow.Request, error)
	notice   bool
	blank    bool
}

type demoDefaults struct {
	wallet string
	atm    string
	volume string
}

func demoOrder(item string, quantity int64, unitPrice string, address string) demoStep {
	return demoStep{
		pipeline: func(flows workflow.Flows) workflow.Pipeline { return flows.Order },
		request: func(defaults demoDefaults) (workflow.Request, error) {
			price, err := decimal.NewFromString(unitPrice)
			if err != nil {
				return workflow.Request{}, err
			}
			return workflow.NewOrderRequest(item, defaults.wallet, decimal.NewFromInt(quantity), price, address)
		},
		notice: true,
		blank:  true,
	}
}

// demoScript is the example session: four orders against stock SKU123=5,
// SKU999=0 and a 100.00 wallet, then one login, one backup and one ATM
// withdrawal.
func demoScript() []demoStep {
	return []demoStep{
		demoOrder("SKU123", 2, "20.00", "10 Merdeka St 10110"),
		demoOrder("SKU999", 1, "50.00", "10 Merdeka St 10110"),
		demoOrder("SKU123", 1, "20.00", "Boulevard Raya"),
		demoOrder("SKU123", 3, "30.00", "10 Merdeka St 10110"),
		{
			pipeline: func(flows workflow.Flows) workflow.Pipeline { return flows.Login },
			request: func(demoDefaults) (workflow.Request, error) {
				return workflow.NewLoginRequest("bob", "wrongpass")
			},
		},
		{
			pipeline: func(flows workflow.Flows) workflow.Pipeline { return flows.Backup },
			request: func(defaults demoDefaults) (workflow.Request, error) {
				return workflow.NewBackupRequest(defaults.volume, "unknown.docx", decimal.NewFromInt(20))
			},
		},
		{
			pipeline: func(flows workflow.Flows) workflow.Pipeline { return flows.Withdrawal },
			request: func(defaults demoDefaults) (workflow.Request, error) {
				return workflow.NewWithdrawalRequest(defaults.atm, decimal.NewFromInt(350))
			},
		},
	}
}

// RunDemo replays the example session against desk and writes one line per
// outcome to out. It returns the outcomes in order.
func RunDemo(ctx context.Context, desk Desk, out io.Writer) ([]workflow.Outcome, error) {
	session, err := NewSession(desk, nil, out)
	if err != nil {
		return nil, err
	}
	defaults := demoDefaults{wallet: desk.Defaults.Wallet, atm: desk.Defaults.ATM, volume: desk.Defaults.Volume}
	script := demoScript()
	outcomes := make([]workflow.Outcome, 0, len(script))
	for _, step := range script {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		request, err := step.request(defaults)
		if err != nil {
			return outcomes, fmt.Errorf("demo request: %w", err)
		}
		outcomes = append(outcomes, session.execute(ctx, step.pipeline(session.desk.Flows), request, step.notice))
		if step.blank {
			session.println("")
		}
	}
	return outcomes, nil
}
