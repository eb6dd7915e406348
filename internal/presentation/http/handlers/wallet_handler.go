package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo"

	"github.com/brinegold/jarvis-settlement/internal/container"
	walletcrypto "github.com/brinegold/jarvis-settlement/internal/crypto"
	"github.com/brinegold/jarvis-settlement/pkg/logger"
)

// DepositAddress returns the user's deposit address, deriving and storing
// it on first call.
func DepositAddress(ct *container.Container) func(c echo.Context) error {
	return func(c echo.Context) error {
		userID, err := strconv.Atoi(c.QueryParam("user_id"))
		if err != nil || userID <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		}

		wallet, err := ct.WalletSvc.GetOrCreateDepositAddress(context.Background(), userID)
		if err != nil {
			logger.RequestLogger(c).WithError(err).WithField("user_id", userID).Error("Failed to provision deposit address")
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to provision deposit address"})
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"user_id": userID,
			"address": wallet.DepositAddress,
		})
	}
}

// Balance returns the on-chain token balance of an address, defaulting to
// the custody wallet when no address is given.
func Balance(ct *container.Container) func(c echo.Context) error {
	return func(c echo.Context) error {
		address := c.QueryParam("address")
		if address == "" {
			address = ct.Gateway.CustodyAddress()
		}

		canonical, err := walletcrypto.ValidateAddress(address)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}

		balance, err := ct.Gateway.TokenBalanceOf(context.Background(), canonical)
		if err != nil {
			logger.RequestLogger(c).WithError(err).WithField("address", canonical).Error("Failed to query token balance")
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to query balance"})
		}

		return c.JSON(http.StatusOK, map[string]string{
			"address": canonical,
			"balance": balance.String(),
		})
	}
}
