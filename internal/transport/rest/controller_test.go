package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kiwicapital/portfolio_manager/config"
	"github.com/kiwicapital/portfolio_manager/internal/model"
	"github.com/kiwicapital/portfolio_manager/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serviceStub returns canned values, one field per call family.
type serviceStub struct {
	user         model.User
	users        []model.User
	portfolio    model.Portfolio
	portfolios   []model.Portfolio
	security     model.Security
	securities   []model.Security
	quote        model.Quote
	transaction  model.Transaction
	transactions []model.Transaction
	fileBytes    []byte
	fileName     string
	err          error

	lastActingUser string
}

func (s *serviceStub) RegisterUser(ctx context.Context, username, password, firstName, lastName string, balance decimal.Decimal, role string) (model.User, error) {
	return s.user, s.err
}

func (s *serviceStub) GetUser(ctx context.Context, username string) (model.User, error) {
	return s.user, s.err
}

func (s *serviceStub) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.users, s.err
}

func (s *serviceStub) DeleteUser(ctx context.Context, username string) error {
	return s.err
}

func (s *serviceStub) ChangeUserRole(ctx context.Context, username, role string) error {
	return s.err
}

func (s *serviceStub) SetUserBalance(ctx context.Context, username string, balance decimal.Decimal) error {
	return s.err
}

func (s *serviceStub) CreatePortfolio(ctx context.Context, actingUser, name, description, strategy string) (model.Portfolio, error) {
	s.lastActingUser = actingUser
	return s.portfolio, s.err
}

func (s *serviceStub) GetPortfolio(ctx context.Context, portfolioID int64) (model.Portfolio, error) {
	return s.portfolio, s.err
}

func (s *serviceStub) ListPortfolios(ctx context.Context) ([]model.Portfolio, error) {
	return s.portfolios, s.err
}

func (s *serviceStub) ListPortfoliosByUser(ctx context.Context, username string) ([]model.Portfolio, error) {
	return s.portfolios, s.err
}

func (s *serviceStub) UpdatePortfolio(ctx context.Context, actingUser string, portfolioID int64, name, description, strategy *string) error {
	s.lastActingUser = actingUser
	return s.err
}

func (s *serviceStub) DeletePortfolio(ctx context.Context, actingUser string, portfolioID int64) error {
	s.lastActingUser = actingUser
	return s.err
}

func (s *serviceStub) AddHolding(ctx context.Context, actingUser string, portfolioID int64, ticker string, quantity int) error {
	s.lastActingUser = actingUser
	return s.err
}

func (s *serviceStub) RemoveHolding(ctx context.Context, actingUser string, portfolioID int64, ticker string) error {
	s.lastActingUser = actingUser
	return s.err
}

func (s *serviceStub) BuySecurity(ctx context.Context, username string, portfolioID int64, ticker string, quantity int, price *decimal.Decimal) (model.Transaction, error) {
	s.lastActingUser = username
	return s.transaction, s.err
}

func (s *serviceStub) SellSecurity(ctx context.Context, username string, portfolioID int64, ticker string, quantity int, price *decimal.Decimal) (model.Transaction, error) {
	s.lastActingUser = username
	return s.transaction, s.err
}

func (s *serviceStub) CreateSecurity(ctx context.Context, ticker, name string, referencePrice decimal.Decimal) (model.Security, error) {
	return s.security, s.err
}

func (s *serviceStub) GetSecurity(ctx context.Context, ticker string) (model.Security, error) {
	return s.security, s.err
}

func (s *serviceStub) ListSecurities(ctx context.Context) ([]model.Security, error) {
	return s.securities, s.err
}

func (s *serviceStub) GetSecurityQuote(ctx context.Context, ticker string) (model.Quote, error) {
	return s.quote, s.err
}

func (s *serviceStub) TransactionsByUser(ctx context.Context, username string) ([]model.Transaction, error) {
	return s.transactions, s.err
}

func (s *serviceStub) TransactionsByPortfolio(ctx context.Context, portfolioID int64) ([]model.Transaction, error) {
	return s.transactions, s.err
}

func (s *serviceStub) TransactionsBySecurity(ctx context.Context, ticker string) ([]model.Transaction, error) {
	return s.transactions, s.err
}

func (s *serviceStub) PortfolioReport(ctx context.Context, actingUser string, portfolioID int64) ([]byte, string, error) {
	s.lastActingUser = actingUser
	return s.fileBytes, s.fileName, s.err
}

func newTestRouter(stub *serviceStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(&config.Config{}, NewController(stub))
}

func doRequest(router *gin.Engine, method, path string, body any, actingUser string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		raw, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(raw)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	if actingUser != "" {
		req.Header.Set(actingUserHeader, actingUser)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := doRequest(newTestRouter(&serviceStub{}), http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterUser_Created(t *testing.T) {
	stub := &serviceStub{user: model.User{ID: 1, Username: "alice", Role: model.RoleUser}}
	rec := doRequest(newTestRouter(stub), http.MethodPost, "/users", gin.H{"username": "alice", "password": "secret"}, "")

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp["username"])
}

func TestRegisterUser_MissingFields(t *testing.T) {
	rec := doRequest(newTestRouter(&serviceStub{}), http.MethodPost, "/users", gin.H{"username": "alice"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", service.ErrNotFound, http.StatusNotFound},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"already exists", service.ErrAlreadyExists, http.StatusConflict},
		{"insufficient funds", service.ErrInsufficientFunds, http.StatusConflict},
		{"insufficient holdings", service.ErrInsufficientHoldings, http.StatusConflict},
		{"last admin", service.ErrLastAdmin, http.StatusConflict},
		{"invalid quantity", service.ErrInvalidQuantity, http.StatusBadRequest},
		{"invalid price", service.ErrInvalidPrice, http.StatusBadRequest},
		{"invalid role", service.ErrInvalidRole, http.StatusBadRequest},
		{"internal", context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stub := &serviceStub{err: tc.err}
			rec := doRequest(
				newTestRouter(stub),
				http.MethodPost,
				"/portfolios/1/buy",
				gin.H{"ticker": "AAPL", "quantity": 1},
				"alice",
			)
			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestBuySecurity_RequiresActingUser(t *testing.T) {
	rec := doRequest(newTestRouter(&serviceStub{}), http.MethodPost, "/portfolios/1/buy", gin.H{"ticker": "AAPL", "quantity": 1}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBuySecurity_PassesActingUser(t *testing.T) {
	stub := &serviceStub{transaction: model.Transaction{ID: 7, Ticker: "AAPL", Type: model.TransactionBuy}}
	rec := doRequest(newTestRouter(stub), http.MethodPost, "/portfolios/1/buy", gin.H{"ticker": "AAPL", "quantity": 1}, "alice")

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "alice", stub.lastActingUser)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "BUY", resp["type"])
}

func TestBuySecurity_InvalidPortfolioID(t *testing.T) {
	rec := doRequest(newTestRouter(&serviceStub{}), http.MethodPost, "/portfolios/abc/buy", gin.H{"ticker": "AAPL", "quantity": 1}, "alice")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPortfolio(t *testing.T) {
	stub := &serviceStub{portfolio: model.Portfolio{
		ID:            1,
		Name:          "long term",
		OwnerUsername: "alice",
		Holdings:      []model.Holding{{Ticker: "AAPL", SecurityName: "Apple Inc.", Quantity: 2}},
	}}
	rec := doRequest(newTestRouter(stub), http.MethodGet, "/portfolios/1", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp["owner"])
	assert.Len(t, resp["holdings"], 1)
}

func TestPortfolioReport_ServesAttachment(t *testing.T) {
	stub := &serviceStub{fileBytes: []byte("xlsx-bytes"), fileName: "portfolio_long term.xlsx"}
	rec := doRequest(newTestRouter(stub), http.MethodGet, "/portfolios/1/report", nil, "alice")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "portfolio_long term.xlsx")
	assert.Equal(t, "xlsx-bytes", rec.Body.String())
}

func TestTransactionsBySecurity(t *testing.T) {
	stub := &serviceStub{transactions: []model.Transaction{
		{ID: 1, Ticker: "AAPL", Type: model.TransactionBuy},
		{ID: 2, Ticker: "AAPL", Type: model.TransactionSell},
	}}
	rec := doRequest(newTestRouter(stub), http.MethodGet, "/securities/AAPL/transactions", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "BUY", resp[0]["type"])
	assert.Equal(t, "SELL", resp[1]["type"])
}
