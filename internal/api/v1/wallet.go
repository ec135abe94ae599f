package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/settlehq/settle/internal/logger"
	"github.com/settlehq/settle/internal/service"
)

type WalletHandler struct {
	walletService service.WalletService
	logger        *logger.Logger
}

func NewWalletHandler(walletService service.WalletService, logger *logger.Logger) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
		logger:        logger,
	}
}

// GetBalances godoc
// @Summary Token and gas balances of a wallet
// @Tags Wallets
// @Produce json
// @Security ApiKeyAuth
// @Param address path string true "Wallet address"
// @Success 200 {object} dto.WalletBalanceResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 503 {object} ierr.ErrorResponse
// @Router /wallets/{address}/balances [get]
func (h *WalletHandler) GetBalances(c *gin.Context) {
	resp, err := h.walletService.GetBalances(c.Request.Context(), c.Param("address"))
	if err != nil {
		h.logger.Errorw("failed to read wallet balances", "address", c.Param("address"), "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
