package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radventure/engine/api"
	"github.com/radventure/engine/challenge"
	"github.com/radventure/engine/events"
	"github.com/radventure/engine/helpaid"
	"github.com/radventure/engine/radcoin"
	"github.com/radventure/engine/shop"
	"github.com/radventure/engine/store/sqlite"
	"github.com/radventure/engine/tutor"
)

// =============================================================================
// TEST SERVER
// =============================================================================

type fakeChatClient struct {
	reply string
}

func (f *fakeChatClient) CreateChatCompletion(context.Context, tutor.ChatRequest) (*tutor.ChatResponse, error) {
	return &tutor.ChatResponse{
		Choices: []tutor.ChatChoice{{Message: tutor.Message{Role: "assistant", Content: f.reply}}},
	}, nil
}

// newTestServer wires the full stack against an in-memory database with
// dev-mode header authentication (empty JWT secret).
func newTestServer(t *testing.T) (*httptest.Server, *sqlite.Store) {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ledger := radcoin.NewLedger(store)
	generator := challenge.NewGenerator(store, store)

	h := &api.Handler{
		Store:           store,
		Settler:         shop.NewSettler(store, store, ledger, store),
		Registrar:       events.NewRegistrar(store, store),
		Generator:       generator,
		Grantor:         radcoin.NewGrantor(store, ledger),
		Auditor:         &radcoin.Auditor{Ledger: ledger},
		Tutor:           tutor.New(&fakeChatClient{reply: "The answer."}, store, tutor.NewRateLimiter(5, time.Minute), "gpt-4o-mini"),
		DailyLoginBonus: 5,
	}

	srv := httptest.NewServer(api.NewRouter(h, ""))
	t.Cleanup(srv.Close)
	return srv, store
}

func doRequest(t *testing.T, srv *httptest.Server, method, path, userID, role string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
		req.Header.Set("X-User-Role", role)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

func seedUser(t *testing.T, store *sqlite.Store, id string, coins int64) {
	t.Helper()
	err := store.CreateUser(context.Background(), sqlite.User{ID: id, Name: id, Role: "USER"}, coins)
	require.NoError(t, err)
}

func seedItem(t *testing.T, store *sqlite.Store) shop.Item {
	t.Helper()
	item := shop.Item{
		ID:       "elim-pack",
		Name:     "Elimination Pack",
		Category: shop.CategoryHelpAids,
		Price:    25,
		Benefits: helpaid.Grant{Elimination: 5},
		Active:   true,
	}
	require.NoError(t, store.SaveItem(context.Background(), item))
	return item
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

func TestAPI_MissingCredentials(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doRequest(t, srv, http.MethodGet, "/api/me/balance", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_AdminRoutesRequireAdminRole(t *testing.T) {
	srv, store := newTestServer(t)
	seedUser(t, store, "player", 0)

	resp := doRequest(t, srv, http.MethodPost, "/api/admin/users", "player", "USER",
		api.CreateUserRequest{ID: "x", Name: "x"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodPost, "/api/admin/users", "boss", "ADMIN",
		api.CreateUserRequest{ID: "newbie", Name: "Newbie", InitialCoins: 50})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

// =============================================================================
// WALLET AND DAILY LOGIN
// =============================================================================

func TestAPI_GetBalance(t *testing.T) {
	srv, store := newTestServer(t)
	seedUser(t, store, "player", 75)

	resp := doRequest(t, srv, http.MethodGet, "/api/me/balance", "player", "USER", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dto api.BalanceDTO
	decode(t, resp, &dto)
	assert.Equal(t, "player", dto.UserID)
	assert.Equal(t, int64(75), dto.RadCoins)
}

func TestAPI_DailyLogin_OncePerDay(t *testing.T) {
	// GIVEN: A player who has not claimed today's bonus
	// WHEN: Claiming twice
	// THEN: First claim pays 5 coins, second reports granted=false

	srv, store := newTestServer(t)
	seedUser(t, store, "player", 0)

	resp := doRequest(t, srv, http.MethodPost, "/api/me/daily-login", "player", "USER", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var first struct {
		Granted      bool  `json:"granted"`
		Amount       int64 `json:"amount"`
		BalanceAfter int64 `json:"balance_after"`
	}
	decode(t, resp, &first)
	assert.True(t, first.Granted)
	assert.Equal(t, int64(5), first.Amount)
	assert.Equal(t, int64(5), first.BalanceAfter)

	resp = doRequest(t, srv, http.MethodPost, "/api/me/daily-login", "player", "USER", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var second struct {
		Granted bool `json:"granted"`
	}
	decode(t, resp, &second)
	assert.False(t, second.Granted)

	balance, _ := store.GetBalance(context.Background(), "player")
	assert.Equal(t, int64(5), balance.RadCoins.Int64())
}

// =============================================================================
// SHOP
// =============================================================================

func TestAPI_Purchase_EndToEnd(t *testing.T) {
	// GIVEN: A player with 100 coins and a 25-coin elimination pack
	// WHEN: Purchasing through the API
	// THEN: 200 with the settlement, wallet at 75, inventory updated

	srv, store := newTestServer(t)
	seedUser(t, store, "player", 100)
	seedItem(t, store)

	resp := doRequest(t, srv, http.MethodPost, "/api/shop/purchase", "player", "USER",
		api.PurchaseRequest{ItemID: "elim-pack"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dto api.SettlementDTO
	decode(t, resp, &dto)
	assert.Equal(t, "elim-pack", dto.ItemID)
	assert.Equal(t, int64(25), dto.FinalPrice)
	assert.Equal(t, int64(75), dto.NewBalance)
	assert.Equal(t, 5, dto.Inventory.Elimination)

	txs, _ := store.Load(context.Background(), "player")
	require.Len(t, txs, 1)
	assert.Equal(t, radcoin.TxHelpPurchase, txs[0].Type)
}

func TestAPI_Purchase_InsufficientBalance(t *testing.T) {
	srv, store := newTestServer(t)
	seedUser(t, store, "player", 10)
	seedItem(t, store)

	resp := doRequest(t, srv, http.MethodPost, "/api/shop/purchase", "player", "USER",
		api.PurchaseRequest{ItemID: "elim-pack"})
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	balance, _ := store.GetBalance(context.Background(), "player")
	assert.Equal(t, int64(10), balance.RadCoins.Int64())
}

func TestAPI_Purchase_UnknownItem(t *testing.T) {
	srv, store := newTestServer(t)
	seedUser(t, store, "player", 100)

	resp := doRequest(t, srv, http.MethodPost, "/api/shop/purchase", "player", "USER",
		api.PurchaseRequest{ItemID: "nope"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_ListItems_IncludesFinalPrice(t *testing.T) {
	srv, store := newTestServer(t)
	sale := int64(40)
	require.NoError(t, store.SaveItem(context.Background(), shop.Item{
		ID: "credits", Name: "Tutor Credits", Category: shop.CategoryOffer,
		Price: 50, SalePrice: &sale, Benefits: helpaid.Grant{AITutor: 5}, Active: true,
	}))
	seedUser(t, store, "player", 0)

	resp := doRequest(t, srv, http.MethodGet, "/api/shop/items", "player", "USER", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var items []api.ItemDTO
	decode(t, resp, &items)
	require.Len(t, items, 1)
	assert.Equal(t, int64(50), items[0].Price)
	assert.Equal(t, int64(40), items[0].FinalPrice)
}

// =============================================================================
// EVENTS
// =============================================================================

func TestAPI_RegisterForEvent_ThenConflict(t *testing.T) {
	// GIVEN: An active event
	// WHEN: Registering twice
	// THEN: 201 then 409

	srv, store := newTestServer(t)
	seedUser(t, store, "player", 0)
	require.NoError(t, store.SaveEvent(context.Background(), events.Event{
		ID: "quiz-night", Title: "Quiz Night",
		StartsAt: time.Now().Add(time.Hour), EndsAt: time.Now().Add(2 * time.Hour),
		MaxParticipants: 10, PrizeRadCoins: 100, Active: true,
	}))

	resp := doRequest(t, srv, http.MethodPost, "/api/events/quiz-night/register", "player", "USER", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var reg api.RegistrationDTO
	decode(t, resp, &reg)
	assert.Equal(t, "quiz-night", reg.EventID)
	assert.Equal(t, "player", reg.UserID)

	resp = doRequest(t, srv, http.MethodPost, "/api/events/quiz-night/register", "player", "USER", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_RegisterForEvent_NotFound(t *testing.T) {
	srv, store := newTestServer(t)
	seedUser(t, store, "player", 0)

	resp := doRequest(t, srv, http.MethodPost, "/api/events/ghost/register", "player", "USER", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// CHALLENGES
// =============================================================================

func TestAPI_TodayChallenge_HidesAnswer(t *testing.T) {
	// GIVEN: No challenge generated yet
	// WHEN: A player asks for today's challenge
	// THEN: One is generated on demand with the answer withheld

	srv, store := newTestServer(t)
	seedUser(t, store, "player", 0)

	resp := doRequest(t, srv, http.MethodGet, "/api/challenges/today", "player", "USER", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var raw map[string]any
	decode(t, resp, &raw)
	assert.NotEmpty(t, raw["question"])
	assert.NotContains(t, raw, "correct_answer")
	assert.NotContains(t, raw, "explanation")
}

func TestAPI_GenerateChallenge_AdminSeesAnswer(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doRequest(t, srv, http.MethodPost, "/api/admin/challenges/generate", "boss", "ADMIN", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Created   bool             `json:"created"`
		Challenge api.ChallengeDTO `json:"challenge"`
	}
	decode(t, resp, &out)
	assert.True(t, out.Created)
	require.NotNil(t, out.Challenge.CorrectAnswer)
	assert.NotEmpty(t, out.Challenge.Explanation)
}

// =============================================================================
// TUTOR
// =============================================================================

func TestAPI_AskTutor(t *testing.T) {
	// GIVEN: A player with one tutor credit
	// WHEN: Asking a question
	// THEN: The answer comes back and the credit is spent; the next ask is 402

	srv, store := newTestServer(t)
	seedUser(t, store, "player", 0)
	require.NoError(t, store.Grant(context.Background(), "player", helpaid.Grant{AITutor: 1}))

	resp := doRequest(t, srv, http.MethodPost, "/api/tutor/ask", "player", "USER",
		api.TutorRequestDTO{Question: "What is a pleural line?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dto api.TutorAnswerDTO
	decode(t, resp, &dto)
	assert.Equal(t, "The answer.", dto.Answer)
	assert.Equal(t, 0, dto.CreditsRemaining)

	resp = doRequest(t, srv, http.MethodPost, "/api/tutor/ask", "player", "USER",
		api.TutorRequestDTO{Question: "Another?"})
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
}

// =============================================================================
// ADMIN: REWARDS AND AUDIT
// =============================================================================

func TestAPI_DistributeRewardsAndAudit(t *testing.T) {
	// GIVEN: A finished event with a ranked podium
	// WHEN: Distributing rewards and then auditing the winner
	// THEN: The winner holds 50% of the prize and the ledger chain is clean

	srv, store := newTestServer(t)
	seedUser(t, store, "first", 0)
	seedUser(t, store, "second", 0)
	require.NoError(t, store.SaveEvent(context.Background(), events.Event{
		ID: "finished", Title: "Finished",
		StartsAt: time.Now().Add(-2 * time.Hour), EndsAt: time.Now().Add(-time.Hour),
		MaxParticipants: 10, PrizeRadCoins: 100, Active: true,
	}))

	resp := doRequest(t, srv, http.MethodPost, "/api/admin/events/finished/rewards", "boss", "ADMIN",
		api.RewardResultsRequest{Results: []api.RankedResultDTO{
			{UserID: "first", Rank: 1},
			{UserID: "second", Rank: 2},
		}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dist struct {
		Status string `json:"status"`
		Paid   int    `json:"paid"`
	}
	decode(t, resp, &dist)
	assert.Equal(t, 2, dist.Paid)

	balance, _ := store.GetBalance(context.Background(), "first")
	assert.Equal(t, int64(50), balance.RadCoins.Int64())

	resp = doRequest(t, srv, http.MethodGet, "/api/admin/audit/first", "boss", "ADMIN", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report api.AuditReportDTO
	decode(t, resp, &report)
	assert.True(t, report.Clean)
	assert.Equal(t, 1, report.Entries)
	assert.Equal(t, int64(50), report.FinalBalance)
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

func TestAPI_Notifications_ListAndMarkRead(t *testing.T) {
	// GIVEN: A purchase that emitted a notification
	// WHEN: Listing and marking it read
	// THEN: The notification appears newest-first and the flag sticks

	srv, store := newTestServer(t)
	seedUser(t, store, "player", 100)
	seedItem(t, store)
	doRequest(t, srv, http.MethodPost, "/api/shop/purchase", "player", "USER",
		api.PurchaseRequest{ItemID: "elim-pack"})

	resp := doRequest(t, srv, http.MethodGet, "/api/me/notifications", "player", "USER", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ns []api.NotificationDTO
	decode(t, resp, &ns)
	require.NotEmpty(t, ns)
	assert.Equal(t, "help_purchase", ns[0].Type)
	assert.False(t, ns[0].Read)

	resp = doRequest(t, srv, http.MethodPost, "/api/me/notifications/"+ns[0].ID+"/read", "player", "USER", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodGet, "/api/me/notifications", "player", "USER", nil)
	decode(t, resp, &ns)
	assert.True(t, ns[0].Read)
}
