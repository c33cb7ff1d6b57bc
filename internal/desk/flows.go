package desk

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/MarkoPoloResearchLab/frontdesk/pkg/workflow"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type orderRequest struct {
	Item      string          `json:"item"`
	Account   string          `json:"account"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Address   string          `json:"address"`
}

type memberRequest struct {
	Member   string          `json:"member"`
	Quantity decimal.Decimal `json:"quantity"`
}

type accountRequest struct {
	Account string          `json:"account"`
	Amount  decimal.Decimal `json:"amount"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type backupRequest struct {
	Volume string          `json:"volume"`
	Path   string          `json:"path"`
	SizeMB decimal.Decimal `json:"size_mb"`
}

type outcomeResponse struct {
	RunID       string          `json:"run_id"`
	Flow        string          `json:"flow"`
	State       string          `json:"state"`
	Message     string          `json:"message"`
	Notice      string          `json:"notice"`
	FailedStep  string          `json:"failed_step,omitempty"`
	Compensated bool            `json:"compensated,omitempty"`
	Error       *outcomeFailure `json:"error,omitempty"`
	Session     *sessionPayload `json:"session,omitempty"`
}

type outcomeFailure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type sessionPayload struct {
	Token   string `json:"token"`
	Expires int64  `json:"expires"`
}

func (handler *httpHandler) handleOrder(ctx *gin.Context) {
	var payload orderRequest
	if !bindJSON(ctx, &payload) {
		return
	}
	request, err := workflow.NewOrderRequest(payload.Item, defaultIfEmpty(payload.Account, handler.defaults.Wallet), payload.Quantity, payload.UnitPrice, payload.Address)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	handler.run(ctx, handler.flows.Order, request)
}

func (handler *httpHandler) handleLoan(ctx *gin.Context) {
	var payload memberRequest
	if !bindJSON(ctx, &payload) {
		return
	}
	request, err := workflow.NewBorrowRequest(payload.Member, payload.Quantity)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	handler.run(ctx, handler.flows.Borrow, request)
}

func (handler *httpHandler) handleReturn(ctx *gin.Context) {
	var payload memberRequest
	if !bindJSON(ctx, &payload) {
		return
	}
	request, err := workflow.NewReturnRequest(payload.Member, payload.Quantity)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	handler.run(ctx, handler.flows.Return, request)
}

func (handler *httpHandler) handleWithdrawal(ctx *gin.Context) {
	var payload accountRequest
	if !bindJSON(ctx, &payload) {
		return
	}
	request, err := workflow.NewWithdrawalRequest(defaultIfEmpty(payload.Account, handler.defaults.ATM), payload.Amount)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	handler.run(ctx, handler.flows.Withdrawal, request)
}

func (handler *httpHandler) handleDeposit(ctx *gin.Context) {
	var payload accountRequest
	if !bindJSON(ctx, &payload) {
		return
	}
	request, err := workflow.NewDepositRequest(defaultIfEmpty(payload.Account, handler.defaults.Wallet), payload.Amount)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	handler.run(ctx, handler.flows.Deposit, request)
}

func (handler *httpHandler) handleLogin(ctx *gin.Context) {
	var payload loginRequest
	if !bindJSON(ctx, &payload) {
		return
	}
	request, err := workflow.NewLoginRequest(payload.Username, payload.Password)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	handler.run(ctx, handler.flows.Login, request)
}

func (handler *httpHandler) handleBackup(ctx *gin.Context) {
	var payload backupRequest
	if !bindJSON(ctx, &payload) {
		return
	}
	request, err := workflow.NewBackupRequest(defaultIfEmpty(payload.Volume, handler.defaults.Volume), payload.Path, payload.SizeMB)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	handler.run(ctx, handler.flows.Backup, request)
}

// run executes pipeline and renders the outcome. Guard failures are 422,
// anything else that stops a run is 500.
func (handler *httpHandler) run(ctx *gin.Context, pipeline workflow.Pipeline, request workflow.Request) {
	outcome := handler.executor.Run(ctx.Request.Context(), pipeline, handler.store, request, nil)
	response := outcomeResponse{
		RunID:       outcome.RunID,
		Flow:        outcome.Flow,
		State:       string(outcome.State),
		Message:     handler.reporter.Message(outcome),
		Notice:      handler.reporter.Notice(outcome),
		FailedStep:  outcome.FailedStep,
		Compensated: outcome.Compensated,
	}
	if outcome.Succeeded() {
		if outcome.Flow == workflow.FlowLogin {
			session, err := handler.startSession(ctx, outcome.Request.Username)
			if err != nil {
				handler.logger.Error("session issue failed", zap.Error(err))
				ctx.JSON(http.StatusInternalServerError, errorResponse(errorSession, "session unavailable"))
				return
			}
			response.Session = session
		}
		ctx.JSON(http.StatusOK, response)
		return
	}
	if guardError, ok := outcome.GuardError(); ok {
		response.Error = &outcomeFailure{Code: guardError.Kind().String(), Message: handler.reporter.Headline(outcome)}
		ctx.JSON(http.StatusUnprocessableEntity, response)
		return
	}
	handler.logger.Error("pipeline run failed", zap.String("flow", outcome.Flow), zap.String("run_id", outcome.RunID), zap.Error(outcome.Err))
	response.Error = &outcomeFailure{Code: errorPipeline, Message: handler.reporter.Headline(outcome)}
	ctx.JSON(http.StatusInternalServerError, response)
}

func (handler *httpHandler) startSession(ctx *gin.Context, username string) (*sessionPayload, error) {
	token, expiresAt, err := handler.sessions.issue(username)
	if err != nil {
		return nil, err
	}
	handler.sessions.setCookie(ctx, token)
	return &sessionPayload{Token: token, Expires: expiresAt.Unix()}, nil
}

func bindJSON(ctx *gin.Context, target any) bool {
	if err := ctx.ShouldBindJSON(target); err != nil {
		message := "expected JSON body"
		if !errors.Is(err, io.EOF) {
			message = strings.TrimSpace(message + ": " + err.Error())
		}
		ctx.JSON(http.StatusBadRequest, errorResponse(errorInvalidPayload, message))
		return false
	}
	return true
}
