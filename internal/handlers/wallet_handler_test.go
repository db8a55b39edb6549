package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ozidan13/codehub/internal/models"
	"github.com/ozidan13/codehub/internal/services"
	"github.com/ozidan13/codehub/pkg/utils"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type stubWalletService struct {
	topUpResult     *models.Transaction
	resolveErr      error
	lastUserID      int64
	lastTopUp       services.RequestTopUpInput
	lastReceipt     []byte
	lastStatus      models.TransactionStatus
	lastPage        int
	lastLimit       int
	lastTransaction int64
}

func (s *stubWalletService) Wallet(_ context.Context, userID int64, page, limit int) (*models.WalletView, error) {
	s.lastUserID = userID
	s.lastPage = page
	s.lastLimit = limit
	return &models.WalletView{Balance: models.MustMoney("100"), Transactions: []models.Transaction{}}, nil
}

func (s *stubWalletService) RequestTopUp(_ context.Context, userID int64, input services.RequestTopUpInput) (*models.Transaction, error) {
	s.lastUserID = userID
	s.lastTopUp = input
	if input.Receipt != nil {
		s.lastReceipt, _ = io.ReadAll(input.Receipt)
	}
	return s.topUpResult, nil
}

func (s *stubWalletService) ReceiptURL(_ context.Context, transactionID int64) (string, error) {
	s.lastTransaction = transactionID
	return "https://storage.test/signed", nil
}

func (s *stubWalletService) Transactions(_ context.Context, status models.TransactionStatus, page, limit int) ([]models.Transaction, models.PaginationMeta, error) {
	s.lastStatus = status
	s.lastPage = page
	s.lastLimit = limit
	return []models.Transaction{}, models.NewPaginationMeta(page, limit, 0), nil
}

func (s *stubWalletService) ResolveTransaction(_ context.Context, transactionID int64, decision models.TransactionStatus, _ *string) (*models.Transaction, error) {
	s.lastTransaction = transactionID
	s.lastStatus = decision
	return &models.Transaction{ID: transactionID, Status: decision}, s.resolveErr
}

func TestTopUpJSON(t *testing.T) {
	service := &stubWalletService{topUpResult: &models.Transaction{ID: 9, Status: models.TransactionPending}}
	handler := &WalletHandler{service: service, log: zerolog.Nop()}

	app := newActorApp(utils.RoleStudent, "42")
	app.Post("/api/v1/wallet/topup", handler.TopUp)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/wallet/topup", strings.NewReader(`{"amount":"500.50","senderWalletRef":"01000000000"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if !service.lastTopUp.Amount.Equal(decimal.RequireFromString("500.50")) || service.lastTopUp.SenderWalletRef != "01000000000" {
		t.Fatalf("unexpected top-up input %+v", service.lastTopUp.TopUpInput)
	}
	if service.lastTopUp.Receipt != nil {
		t.Fatalf("expected no receipt for JSON request")
	}
}

func TestTopUpMultipartWithReceipt(t *testing.T) {
	service := &stubWalletService{topUpResult: &models.Transaction{ID: 9}}
	handler := &WalletHandler{service: service, log: zerolog.Nop()}

	app := newActorApp(utils.RoleStudent, "42")
	app.Post("/api/v1/wallet/topup", handler.TopUp)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("amount", "250")
	_ = writer.WriteField("senderWalletRef", "01000000000")
	part, _ := writer.CreateFormFile("receipt", "receipt.png")
	_, _ = part.Write([]byte("image-bytes"))
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/wallet/topup", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if string(service.lastReceipt) != "image-bytes" {
		t.Fatalf("expected receipt to reach the service, got %q", service.lastReceipt)
	}
	if !service.lastTopUp.Amount.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("unexpected amount %s", service.lastTopUp.Amount)
	}
}

func TestWalletPaginationIsCapped(t *testing.T) {
	service := &stubWalletService{}
	handler := &WalletHandler{service: service, log: zerolog.Nop()}

	app := newActorApp(utils.RoleStudent, "42")
	app.Get("/api/v1/wallet", handler.Wallet)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/wallet?page=2&limit=500", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastPage != 2 || service.lastLimit != maxPageLimit {
		t.Fatalf("unexpected pagination page=%d limit=%d", service.lastPage, service.lastLimit)
	}
}

func TestResolveTransactionAlreadyResolved(t *testing.T) {
	service := &stubWalletService{resolveErr: services.ErrAlreadyResolved}
	handler := &WalletHandler{service: service, log: zerolog.Nop()}

	app := newActorApp(utils.RoleAdmin, "1")
	app.Patch("/api/v1/transaction", handler.Resolve)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/transaction", strings.NewReader(`{"transactionId": 9, "status": "approved"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if service.lastStatus != models.TransactionApproved || service.lastTransaction != 9 {
		t.Fatalf("unexpected resolve call status=%q id=%d", service.lastStatus, service.lastTransaction)
	}
}

func TestTransactionsRejectsUnknownStatus(t *testing.T) {
	handler := &WalletHandler{service: &stubWalletService{}, log: zerolog.Nop()}

	app := newActorApp(utils.RoleAdmin, "1")
	app.Get("/api/v1/transaction", handler.Transactions)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/transaction?status=LOST", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
