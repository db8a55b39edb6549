package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/ozidan13/codehub/internal/models"
	"github.com/ozidan13/codehub/internal/services"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type walletApplicationService interface {
	Wallet(ctx context.Context, userID int64, page, limit int) (*models.WalletView, error)
	RequestTopUp(ctx context.Context, userID int64, input services.RequestTopUpInput) (*models.Transaction, error)
	ReceiptURL(ctx context.Context, transactionID int64) (string, error)
	Transactions(ctx context.Context, status models.TransactionStatus, page, limit int) ([]models.Transaction, models.PaginationMeta, error)
	ResolveTransaction(ctx context.Context, transactionID int64, decision models.TransactionStatus, adminWalletRef *string) (*models.Transaction, error)
}

type WalletHandler struct {
	service walletApplicationService
	log     zerolog.Logger
}

func NewWalletHandler(service *services.WalletService, log zerolog.Logger) *WalletHandler {
	return &WalletHandler{service: service, log: log}
}

type topUpRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	SenderWalletRef string          `json:"senderWalletRef" validate:"required"`
}

type resolveTransactionRequest struct {
	TransactionID  int64   `json:"transactionId" validate:"required,gt=0"`
	Status         string  `json:"status" validate:"required"`
	AdminWalletRef *string `json:"adminWalletRef"`
}

func (h *WalletHandler) Wallet(c *fiber.Ctx) error {
	userID, _, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}

	page, limit := parsePage(c)
	wallet, err := h.service.Wallet(c.Context(), userID, page, limit)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(wallet)
}

// TopUp accepts JSON or a multipart form carrying an optional receipt file.
func (h *WalletHandler) TopUp(c *fiber.Ctx) error {
	userID, _, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}

	input, closeReceipt, err := h.parseTopUp(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	defer closeReceipt()

	txn, err := h.service.RequestTopUp(c.Context(), userID, input)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"transaction": txn})
}

func (h *WalletHandler) parseTopUp(c *fiber.Ctx) (services.RequestTopUpInput, func(), error) {
	noop := func() {}
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		var req topUpRequest
		if err := bindJSON(c, &req); err != nil {
			return services.RequestTopUpInput{}, noop, err
		}
		return services.RequestTopUpInput{
			TopUpInput: services.TopUpInput{Amount: req.Amount, SenderWalletRef: req.SenderWalletRef},
		}, noop, nil
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(c.FormValue("amount")))
	if err != nil {
		return services.RequestTopUpInput{}, noop, services.ErrValidation.WithMessage("amount must be a decimal number")
	}
	req := topUpRequest{Amount: amount, SenderWalletRef: c.FormValue("senderWalletRef")}
	if err := validateStruct(&req); err != nil {
		return services.RequestTopUpInput{}, noop, err
	}

	input := services.RequestTopUpInput{
		TopUpInput: services.TopUpInput{Amount: req.Amount, SenderWalletRef: req.SenderWalletRef},
	}
	header, err := c.FormFile("receipt")
	if err != nil {
		return input, noop, nil
	}
	file, err := header.Open()
	if err != nil {
		return services.RequestTopUpInput{}, noop, services.ErrValidation.WithMessage("receipt could not be read")
	}
	input.Receipt = file
	return input, func() { _ = file.Close() }, nil
}

func (h *WalletHandler) Transactions(c *fiber.Ctx) error {
	var status models.TransactionStatus
	if raw := strings.ToUpper(strings.TrimSpace(c.Query("status"))); raw != "" {
		status = models.TransactionStatus(raw)
		if !validTransactionStatus(status) {
			return writeError(c, h.log, services.ErrValidation.WithMessage("status must be PENDING, APPROVED or REJECTED"))
		}
	}

	page, limit := parsePage(c)
	transactions, meta, err := h.service.Transactions(c.Context(), status, page, limit)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"transactions": transactions, "meta": meta})
}

func (h *WalletHandler) Resolve(c *fiber.Ctx) error {
	var req resolveTransactionRequest
	if err := bindJSON(c, &req); err != nil {
		return writeError(c, h.log, err)
	}

	txn, err := h.service.ResolveTransaction(
		c.Context(),
		req.TransactionID,
		models.TransactionStatus(strings.ToUpper(strings.TrimSpace(req.Status))),
		req.AdminWalletRef,
	)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"transaction": txn})
}

func (h *WalletHandler) Receipt(c *fiber.Ctx) error {
	transactionID, err := parseIDParam(c, "id")
	if err != nil {
		return writeError(c, h.log, err)
	}

	url, err := h.service.ReceiptURL(c.Context(), transactionID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"url": url})
}

func validTransactionStatus(status models.TransactionStatus) bool {
	switch status {
	case models.TransactionPending, models.TransactionApproved, models.TransactionRejected:
		return true
	}
	return false
}
