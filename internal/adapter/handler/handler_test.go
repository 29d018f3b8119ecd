package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GudaSiva/Bank-App-Transactions/internal/adapter/handler"
	"github.com/GudaSiva/Bank-App-Transactions/internal/adapter/middleware"
	"github.com/GudaSiva/Bank-App-Transactions/internal/adapter/storage/memory"
	"github.com/GudaSiva/Bank-App-Transactions/internal/core/account"
	"github.com/GudaSiva/Bank-App-Transactions/internal/core/notification"
	"github.com/GudaSiva/Bank-App-Transactions/internal/core/transfer"
)

// newApp wires the full route table over the in-memory backend, the same
// way the server binary does.
func newApp(t *testing.T) *fiber.App {
	t.Helper()
	store := memory.New()
	notificationService := notification.NewService(store)
	engine := transfer.NewEngine(store, store, store, notificationService, nil)
	accountService := account.NewService(store, store, 10_000, 3)

	userHandler := &handler.UserHandler{Store: store}
	accountHandler := &handler.AccountHandler{Service: accountService}
	transactionHandler := &handler.TransactionHandler{Engine: engine}
	notificationHandler := &handler.NotificationHandler{Service: notificationService}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	api := app.Group("/v1")
	api.Post("/users", userHandler.Register)

	private := api.Use(middleware.Protected(store))
	private.Post("/accounts", accountHandler.CreateAccount)
	private.Get("/accounts", accountHandler.GetAccounts)
	private.Get("/accounts/lookup", accountHandler.GetAccountByNumber)
	private.Delete("/accounts/:id", accountHandler.DeactivateAccount)
	private.Post("/transactions", transactionHandler.Transfer)
	private.Get("/transactions", transactionHandler.GetTransactions)
	private.Get("/notifications", notificationHandler.GetNotifications)
	private.Patch("/notifications/:id", notificationHandler.MarkRead)
	private.Delete("/notifications/:id", notificationHandler.DeleteNotification)
	return app
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *string         `json:"error"`
}

func do(t *testing.T, app *fiber.App, method, path, apiKey string, body interface{}) (int, envelope) {
	t.Helper()
	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

type registered struct {
	apiKey string
	userID string
}

func register(t *testing.T, app *fiber.App, email, first, last string) registered {
	t.Helper()
	code, env := do(t, app, http.MethodPost, "/v1/users", "", fiber.Map{
		"email": email, "firstName": first, "lastName": last,
	})
	require.Equal(t, http.StatusCreated, code)
	var data struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		APIKey string `json:"api_key"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.APIKey)
	return registered{apiKey: data.APIKey, userID: data.User.ID}
}

type accountView struct {
	ID      string `json:"id"`
	Number  string `json:"number"`
	Balance int64  `json:"balance"`
	Active  bool   `json:"active"`
}

func createAccount(t *testing.T, app *fiber.App, apiKey string) accountView {
	t.Helper()
	code, env := do(t, app, http.MethodPost, "/v1/accounts", apiKey, nil)
	require.Equal(t, http.StatusCreated, code)
	var acc accountView
	require.NoError(t, json.Unmarshal(env.Data, &acc))
	return acc
}

func listAccounts(t *testing.T, app *fiber.App, apiKey string) []accountView {
	t.Helper()
	code, env := do(t, app, http.MethodGet, "/v1/accounts", apiKey, nil)
	require.Equal(t, http.StatusOK, code)
	var accounts []accountView
	require.NoError(t, json.Unmarshal(env.Data, &accounts))
	return accounts
}

func TestAuth(t *testing.T) {
	t.Parallel()
	app := newApp(t)

	code, env := do(t, app, http.MethodGet, "/v1/accounts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Unauthorized", *env.Error)

	code, _ = do(t, app, http.MethodGet, "/v1/accounts", "bk_live_bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	user := register(t, app, "erin@example.com", "Erin", "Walsh")
	code, env = do(t, app, http.MethodGet, "/v1/accounts", user.apiKey, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "succeeded", env.Status)
}

func TestTransferFlow(t *testing.T) {
	t.Parallel()
	app := newApp(t)
	alice := register(t, app, "alice@example.com", "Alice", "Martin")
	bob := register(t, app, "bob@example.com", "Bob", "Iyer")

	src := createAccount(t, app, alice.apiKey)
	dst := createAccount(t, app, bob.apiKey)
	assert.Equal(t, int64(10_000), src.Balance)

	// Resolve the counterparty by number, as a sender would.
	code, env := do(t, app, http.MethodGet, "/v1/accounts/lookup?number="+url.QueryEscape(dst.Number), alice.apiKey, nil)
	require.Equal(t, http.StatusOK, code)
	var info struct {
		ID    string `json:"id"`
		Owner string `json:"owner"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &info))
	assert.Equal(t, dst.ID, info.ID)
	assert.Equal(t, "Bob Iyer", info.Owner)

	code, env = do(t, app, http.MethodPost, "/v1/transactions", alice.apiKey, fiber.Map{
		"sourceAcc":      src.ID,
		"destinationAcc": dst.ID,
		"amount":         2_500,
		"description":    "rent payment",
	})
	require.Equal(t, http.StatusOK, code)
	var result struct {
		Transaction struct {
			Status string `json:"status"`
			Amount int64  `json:"amount"`
		} `json:"transaction"`
		Destination struct {
			Owner string `json:"owner"`
		} `json:"destination"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "completed", result.Transaction.Status)
	assert.Equal(t, "Bob Iyer", result.Destination.Owner)

	aliceAccounts := listAccounts(t, app, alice.apiKey)
	require.Len(t, aliceAccounts, 1)
	assert.Equal(t, int64(7_500), aliceAccounts[0].Balance)
	bobAccounts := listAccounts(t, app, bob.apiKey)
	require.Len(t, bobAccounts, 1)
	assert.Equal(t, int64(12_500), bobAccounts[0].Balance)

	// Bob's statement shows the credit; Bob can read and dismiss the
	// notification, Alice cannot touch it.
	code, env = do(t, app, http.MethodGet, "/v1/transactions", bob.apiKey, nil)
	require.Equal(t, http.StatusOK, code)
	var stmt struct {
		Incoming []json.RawMessage `json:"incomingTransactions"`
		Outgoing []json.RawMessage `json:"outgoingTransactions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stmt))
	assert.Len(t, stmt.Incoming, 1)
	assert.Empty(t, stmt.Outgoing)

	code, env = do(t, app, http.MethodGet, "/v1/notifications", bob.apiKey, nil)
	require.Equal(t, http.StatusOK, code)
	var notifications []struct {
		ID      string `json:"id"`
		Message string `json:"message"`
		Read    bool   `json:"read"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &notifications))
	require.Len(t, notifications, 1)
	assert.Contains(t, notifications[0].Message, "Alice Martin")
	assert.False(t, notifications[0].Read)

	code, _ = do(t, app, http.MethodPatch, "/v1/notifications/"+notifications[0].ID, alice.apiKey, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, env = do(t, app, http.MethodPatch, "/v1/notifications/"+notifications[0].ID, bob.apiKey, nil)
	require.Equal(t, http.StatusOK, code)
	var read struct {
		Read bool `json:"read"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &read))
	assert.True(t, read.Read)

	code, _ = do(t, app, http.MethodDelete, "/v1/notifications/"+notifications[0].ID, bob.apiKey, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestTransferRejections(t *testing.T) {
	t.Parallel()
	app := newApp(t)
	alice := register(t, app, "alice@example.com", "Alice", "Martin")
	bob := register(t, app, "bob@example.com", "Bob", "Iyer")
	src := createAccount(t, app, alice.apiKey)
	dst := createAccount(t, app, bob.apiKey)

	tests := []struct {
		name    string
		body    fiber.Map
		message string
	}{
		{
			name:    "short description",
			body:    fiber.Map{"sourceAcc": src.ID, "destinationAcc": dst.ID, "amount": 100, "description": "hi"},
			message: "description must be between 5 and 100 characters",
		},
		{
			name:    "insufficient balance",
			body:    fiber.Map{"sourceAcc": src.ID, "destinationAcc": dst.ID, "amount": 999_999, "description": "rent payment"},
			message: "source account does not have enough balance",
		},
		{
			name:    "garbage source id",
			body:    fiber.Map{"sourceAcc": "not-a-uuid", "destinationAcc": dst.ID, "amount": 100, "description": "rent payment"},
			message: "transaction information is incomplete",
		},
		{
			name:    "not the source owner",
			body:    fiber.Map{"sourceAcc": dst.ID, "destinationAcc": src.ID, "amount": 100, "description": "rent payment"},
			message: "source account does not belong to the user",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := do(t, app, http.MethodPost, "/v1/transactions", alice.apiKey, tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.message, *env.Error)
		})
	}

	// Balances untouched after every rejection.
	accounts := listAccounts(t, app, alice.apiKey)
	require.Len(t, accounts, 1)
	assert.Equal(t, int64(10_000), accounts[0].Balance)
}

func TestAccountLifecycle(t *testing.T) {
	t.Parallel()
	app := newApp(t)
	user := register(t, app, "carol@example.com", "Carol", "Nwosu")

	first := createAccount(t, app, user.apiKey)
	second := createAccount(t, app, user.apiKey)
	createAccount(t, app, user.apiKey)

	// The cap is three active accounts.
	code, env := do(t, app, http.MethodPost, "/v1/accounts", user.apiKey, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "You can't have more accounts", *env.Error)

	// A loaded account cannot be closed.
	code, env = do(t, app, http.MethodDelete, "/v1/accounts/"+first.ID, user.apiKey, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Account not empty", *env.Error)

	// Empty it into the second account, then close it.
	code, _ = do(t, app, http.MethodPost, "/v1/transactions", user.apiKey, fiber.Map{
		"sourceAcc": first.ID, "destinationAcc": second.ID, "amount": 10_000, "description": "closing account",
	})
	require.Equal(t, http.StatusOK, code)
	code, _ = do(t, app, http.MethodDelete, "/v1/accounts/"+first.ID, user.apiKey, nil)
	assert.Equal(t, http.StatusOK, code)

	accounts := listAccounts(t, app, user.apiKey)
	assert.Len(t, accounts, 2)

	// Deactivation frees a slot under the cap.
	code, _ = do(t, app, http.MethodPost, "/v1/accounts", user.apiKey, nil)
	assert.Equal(t, http.StatusCreated, code)

	// Someone else's account cannot be closed.
	other := register(t, app, "dave@example.com", "Dave", "Okafor")
	code, _ = do(t, app, http.MethodDelete, "/v1/accounts/"+second.ID, other.apiKey, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}
