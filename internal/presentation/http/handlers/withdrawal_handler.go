package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo"
	"github.com/shopspring/decimal"

	"github.com/brinegold/jarvis-settlement/internal/application/services"
	"github.com/brinegold/jarvis-settlement/internal/container"
	domainRepos "github.com/brinegold/jarvis-settlement/internal/domain/repositories"
	"github.com/brinegold/jarvis-settlement/pkg/logger"
)

type submitWithdrawRequest struct {
	UserID  int    `json:"user_id" form:"user_id"`
	Amount  string `json:"amount" form:"amount"`
	ToAddr  string `json:"to_address" form:"to_address"`
}

type resolveWithdrawRequest struct {
	RequestID int    `json:"request_id" form:"request_id"`
	Action    string `json:"action" form:"action"`
	Reason    string `json:"reason" form:"reason"`
}

// SubmitWithdraw records a new withdrawal request for the user. The amount
// is debited up front and the request waits for admin approval.
func SubmitWithdraw(ct *container.Container) func(c echo.Context) error {
	return func(c echo.Context) error {
		var req submitWithdrawRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		}
		if req.UserID <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		}

		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid amount"})
		}

		request, err := ct.Orchestrator.Submit(context.Background(), req.UserID, amount, req.ToAddr, c.RealIP())
		if err != nil {
			switch {
			case errors.Is(err, services.ErrPendingWithdrawalExists):
				return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
			case errors.Is(err, domainRepos.ErrInsufficientBalance):
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "insufficient balance"})
			case errors.Is(err, domainRepos.ErrNotFound):
				return c.JSON(http.StatusNotFound, map[string]string{"error": "user not found"})
			}
			logger.RequestLogger(c).WithError(err).WithField("user_id", req.UserID).Warn("Withdrawal submit rejected")
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}

		return c.JSON(http.StatusOK, request)
	}
}

// ResolveWithdraw approves or rejects a pending withdrawal. Admin only.
func ResolveWithdraw(ct *container.Container) func(c echo.Context) error {
	return func(c echo.Context) error {
		if c.Request().Header.Get("TOKEN") != ct.Config.Settlement.AdminToken {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		}

		var req resolveWithdrawRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		}
		if req.RequestID <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "request_id is required"})
		}

		var (
			request interface{}
			err     error
		)
		switch req.Action {
		case "approve":
			request, err = ct.Orchestrator.Approve(context.Background(), req.RequestID)
		case "reject":
			request, err = ct.Orchestrator.Reject(context.Background(), req.RequestID, req.Reason)
		default:
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "action must be approve or reject"})
		}

		if err != nil {
			var secErr *services.SecurityViolationError
			switch {
			case errors.Is(err, domainRepos.ErrNotFound):
				return c.JSON(http.StatusNotFound, map[string]string{"error": "withdrawal not found"})
			case errors.Is(err, domainRepos.ErrAlreadyProcessed):
				return c.JSON(http.StatusConflict, map[string]string{"error": "withdrawal already processed"})
			case errors.As(err, &secErr):
				return c.JSON(http.StatusForbidden, map[string]string{"error": secErr.Error()})
			}
			logger.RequestLogger(c).WithError(err).WithField("request_id", req.RequestID).Error("Withdrawal settlement failed")
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}

		return c.JSON(http.StatusOK, request)
	}
}

// WithdrawHistory lists the user's withdrawal requests, newest first.
func WithdrawHistory(ct *container.Container) func(c echo.Context) error {
	return func(c echo.Context) error {
		userID, err := strconv.Atoi(c.QueryParam("user_id"))
		if err != nil || userID <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		}

		limit, _ := strconv.Atoi(c.QueryParam("limit"))
		if limit <= 0 || limit > 100 {
			limit = 20
		}
		offset, _ := strconv.Atoi(c.QueryParam("offset"))
		if offset < 0 {
			offset = 0
		}

		history, err := ct.WithdrawalRepo.GetByUserID(context.Background(), userID, limit, offset)
		if err != nil {
			logger.RequestLogger(c).WithError(err).Error("Failed to load withdrawal history")
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load history"})
		}

		return c.JSON(http.StatusOK, map[string]interface{}{"withdrawals": history})
	}
}
