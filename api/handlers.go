/*
handlers.go - HTTP API handlers for the RadVenture engine

PURPOSE:
  Exposes the economy engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Me (authenticated user):
    GET  /api/me/balance                 Wallet
    GET  /api/me/transactions            Ledger history
    GET  /api/me/aids                    Help-aid inventory
    GET  /api/me/notifications           Notifications (newest first)
    POST /api/me/notifications/{id}/read Mark one read
    POST /api/me/daily-login             Claim the daily login bonus

  Shop:
    GET  /api/shop/items                 Catalog with derived final prices
    POST /api/shop/purchase              Buy one item

  Events:
    GET  /api/events                     Active events
    POST /api/events/{id}/register       Register for an event

  Challenges:
    GET  /api/challenges/today           Today's challenge (generated on demand)

  Tutor:
    POST /api/tutor/ask                  Ask the AI tutor (costs one credit)

  Admin:
    POST /api/admin/users                Create account (wallet + inventory)
    POST /api/admin/items                Create/update catalog item
    POST /api/admin/events               Create/update event
    POST /api/admin/events/{id}/rewards  Distribute podium prizes
    POST /api/admin/challenges/generate  Force today's challenge
    GET  /api/admin/audit/{userID}       Verify a user's ledger chain

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 402: Insufficient RadCoin balance
  - 404: Resource not found
  - 409: Conflict (duplicate registration, event full)
  - 429: Tutor rate limit
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - auth.go: Bearer-token middleware
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/radventure/engine/challenge"
	"github.com/radventure/engine/events"
	"github.com/radventure/engine/helpaid"
	"github.com/radventure/engine/observe"
	"github.com/radventure/engine/radcoin"
	"github.com/radventure/engine/shop"
	"github.com/radventure/engine/store/sqlite"
	"github.com/radventure/engine/tutor"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Settler   *shop.Settler
	Registrar *events.Registrar
	Generator *challenge.Generator
	Grantor   *radcoin.Grantor
	Auditor   *radcoin.Auditor
	Tutor     *tutor.Tutor

	DailyLoginBonus int64
}

// =============================================================================
// ME: WALLET, LEDGER, AIDS, NOTIFICATIONS
// =============================================================================

// GetBalance returns the caller's wallet.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := radcoin.UserID(UserID(r.Context()))

	balance, err := h.Store.GetBalance(r.Context(), userID)
	if err != nil {
		if errors.Is(err, radcoin.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(balance))
}

// GetTransactions returns the caller's ledger history, oldest first.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID := radcoin.UserID(UserID(r.Context()))

	txs, err := h.Store.Load(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// GetAids returns the caller's help-aid inventory.
func (h *Handler) GetAids(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	inv, err := h.Store.Get(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get inventory", err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryDTO(inv))
}

// ListNotifications returns the caller's notifications, newest first.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	ns, err := h.Store.ListNotifications(r.Context(), userID, 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, toNotificationDTOs(ns))
}

// MarkNotificationRead flags one of the caller's notifications as read.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.Store.MarkNotificationRead(r.Context(), userID, id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to mark notification read", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "read"})
}

// ClaimDailyLogin grants the daily login bonus. Idempotent per calendar
// day: the second claim of the day reports granted=false without a write.
func (h *Handler) ClaimDailyLogin(w http.ResponseWriter, r *http.Request) {
	userID := radcoin.UserID(UserID(r.Context()))

	tx, err := h.Grantor.DailyLoginBonus(r.Context(), userID,
		radcoin.NewCoins(h.DailyLoginBonus), time.Now().UTC())
	if err != nil {
		if errors.Is(err, radcoin.ErrDuplicateIdempotencyKey) {
			writeJSON(w, http.StatusOK, map[string]any{"granted": false})
			return
		}
		if errors.Is(err, radcoin.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to grant daily bonus", err)
		return
	}

	observe.LedgerAppends.WithLabelValues(string(radcoin.TxDailyLogin)).Inc()
	writeJSON(w, http.StatusOK, map[string]any{
		"granted":       true,
		"amount":        tx.Amount.Int64(),
		"balance_after": tx.BalanceAfter.Int64(),
	})
}

// =============================================================================
// SHOP
// =============================================================================

// ListItems returns the active catalog with derived final prices.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Store.ListItems(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list items", err)
		return
	}

	dtos := make([]ItemDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, toItemDTO(item))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Purchase settles one catalog purchase for the caller.
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	userID := radcoin.UserID(UserID(r.Context()))

	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ItemID == "" {
		writeError(w, http.StatusBadRequest, "item_id is required", nil)
		return
	}

	item, err := h.Store.GetItem(r.Context(), req.ItemID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load item", err)
		return
	}
	if item == nil || !item.Active {
		writeError(w, http.StatusNotFound, "Item not found", nil)
		return
	}

	settlement, err := h.Settler.Settle(r.Context(), userID, *item)
	if err != nil {
		switch {
		case errors.Is(err, radcoin.ErrInsufficientBalance):
			observe.Settlements.WithLabelValues(observe.OutcomeInsufficientBalance).Inc()
			writeError(w, http.StatusPaymentRequired, "Insufficient RadCoin balance", err)
		case errors.Is(err, radcoin.ErrUserNotFound):
			observe.Settlements.WithLabelValues(observe.OutcomeError).Inc()
			writeError(w, http.StatusNotFound, "User not found", nil)
		case errors.Is(err, radcoin.ErrCompensationFailed):
			observe.Settlements.WithLabelValues(observe.OutcomeReconcilePending).Inc()
			writeError(w, http.StatusInternalServerError, "Purchase failed; balance restoration pending", err)
		case errors.Is(err, radcoin.ErrBenefitCreditFailed):
			observe.Settlements.WithLabelValues(observe.OutcomeCompensated).Inc()
			writeError(w, http.StatusInternalServerError, "Purchase failed; balance restored", err)
		default:
			observe.Settlements.WithLabelValues(observe.OutcomeError).Inc()
			writeError(w, http.StatusInternalServerError, "Purchase failed", err)
		}
		return
	}

	observe.Settlements.WithLabelValues(observe.OutcomeSettled).Inc()
	observe.LedgerAppends.WithLabelValues(string(radcoin.TxHelpPurchase)).Inc()

	inv, err := h.Store.Get(r.Context(), string(userID))
	if err != nil {
		inv = helpaid.Inventory{UserID: string(userID)}
	}
	writeJSON(w, http.StatusOK, SettlementDTO{
		ItemID:      settlement.ItemID,
		FinalPrice:  settlement.FinalPrice.Int64(),
		NewBalance:  settlement.NewBalance.Int64(),
		Elimination: settlement.Benefits.Elimination,
		Skip:        settlement.Benefits.Skip,
		AITutor:     settlement.Benefits.AITutor,
		Inventory:   toInventoryDTO(inv),
	})
}

// =============================================================================
// EVENTS
// =============================================================================

// ListEvents returns active events with registration counts.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	evs, err := h.Store.ListEvents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events", err)
		return
	}

	dtos := make([]EventDTO, 0, len(evs))
	for _, e := range evs {
		count, err := h.Store.CountRegistrations(r.Context(), e.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to count registrations", err)
			return
		}
		dtos = append(dtos, toEventDTO(e, count))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RegisterForEvent signs the caller up for an event.
func (h *Handler) RegisterForEvent(w http.ResponseWriter, r *http.Request) {
	userID := radcoin.UserID(UserID(r.Context()))
	eventID := chi.URLParam(r, "id")

	reg, err := h.Registrar.Register(r.Context(), eventID, userID)
	if err != nil {
		switch {
		case errors.Is(err, events.ErrEventNotFound):
			writeError(w, http.StatusNotFound, "Event not found", nil)
		case errors.Is(err, events.ErrAlreadyRegistered):
			writeError(w, http.StatusConflict, "Already registered", nil)
		case errors.Is(err, events.ErrEventFull):
			writeError(w, http.StatusConflict, "Event is at capacity", nil)
		default:
			writeError(w, http.StatusInternalServerError, "Registration failed", err)
		}
		return
	}

	observe.Registrations.Inc()
	writeJSON(w, http.StatusCreated, RegistrationDTO{
		ID:           reg.ID,
		EventID:      reg.EventID,
		UserID:       string(reg.UserID),
		RegisteredAt: reg.RegisteredAt.Format(time.RFC3339),
	})
}

// =============================================================================
// CHALLENGES
// =============================================================================

// TodayChallenge returns today's challenge, generating it on first access.
// The correct answer stays hidden from players.
func (h *Handler) TodayChallenge(w http.ResponseWriter, r *http.Request) {
	c, created, err := h.Generator.EnsureToday(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get today's challenge", err)
		return
	}
	if created {
		observe.ChallengesGenerated.WithLabelValues("fallback").Inc()
	}
	writeJSON(w, http.StatusOK, toChallengeDTO(c, false))
}

// =============================================================================
// TUTOR
// =============================================================================

// AskTutor answers one question through the LLM gateway, consuming one
// ai_tutor_credit.
func (h *Handler) AskTutor(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	var req TutorRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required", nil)
		return
	}

	answer, err := h.Tutor.Ask(r.Context(), userID, req.Question)
	if err != nil {
		switch {
		case errors.Is(err, tutor.ErrRateLimited):
			observe.TutorRequests.WithLabelValues("rate_limited").Inc()
			writeError(w, http.StatusTooManyRequests, "Tutor rate limit exceeded", nil)
		case errors.Is(err, tutor.ErrNoCredits):
			observe.TutorRequests.WithLabelValues("no_credits").Inc()
			writeError(w, http.StatusPaymentRequired, "No AI tutor credits left", nil)
		default:
			observe.TutorRequests.WithLabelValues("error").Inc()
			writeError(w, http.StatusInternalServerError, "Tutor request failed", err)
		}
		return
	}

	observe.TutorRequests.WithLabelValues("answered").Inc()
	writeJSON(w, http.StatusOK, TutorAnswerDTO{
		Answer:           answer.Text,
		CreditsRemaining: answer.CreditsRemaining,
	})
}

// =============================================================================
// ADMIN
// =============================================================================

// CreateUser creates an account with its wallet and inventory.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}
	if req.Role == "" {
		req.Role = "USER"
	}
	if req.InitialCoins < 0 {
		writeError(w, http.StatusBadRequest, "initial_coins must be non-negative", nil)
		return
	}

	u := sqlite.User{ID: req.ID, Name: req.Name, Role: req.Role}
	if err := h.Store.CreateUser(r.Context(), u, req.InitialCoins); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":            req.ID,
		"role":          req.Role,
		"initial_coins": req.InitialCoins,
	})
}

// SaveItem creates or updates a catalog item.
func (h *Handler) SaveItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	item := shop.Item{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Category:    shop.Category(req.Category),
		Price:       req.Price,
		SalePrice:   req.SalePrice,
		Discount:    req.Discount,
		Benefits: helpaid.Grant{
			Elimination: req.Elimination,
			Skip:        req.Skip,
			AITutor:     req.AITutor,
		},
		Active: true,
	}
	if item.Price < 0 || !item.Benefits.Valid() {
		writeError(w, http.StatusBadRequest, "price and benefits must be non-negative", nil)
		return
	}

	if err := h.Store.SaveItem(r.Context(), item); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save item", err)
		return
	}
	writeJSON(w, http.StatusCreated, toItemDTO(item))
}

// SaveEvent creates or updates an event.
func (h *Handler) SaveEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Title == "" {
		writeError(w, http.StatusBadRequest, "id and title are required", nil)
		return
	}

	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid starts_at (use RFC3339)", err)
		return
	}
	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ends_at (use RFC3339)", err)
		return
	}
	if !endsAt.After(startsAt) {
		writeError(w, http.StatusBadRequest, "ends_at must be after starts_at", nil)
		return
	}

	e := events.Event{
		ID:              req.ID,
		Title:           req.Title,
		StartsAt:        startsAt,
		EndsAt:          endsAt,
		MaxParticipants: req.MaxParticipants,
		PrizeRadCoins:   req.PrizeRadCoins,
		Active:          true,
	}
	if err := h.Store.SaveEvent(r.Context(), e); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save event", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventDTO(e, 0))
}

// DistributeRewards pays the podium for a finished event.
func (h *Handler) DistributeRewards(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	event, err := h.Store.GetEvent(r.Context(), eventID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load event", err)
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "Event not found", nil)
		return
	}

	var req RewardResultsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	results := make([]events.RankedResult, 0, len(req.Results))
	for _, res := range req.Results {
		results = append(results, events.RankedResult{
			UserID: radcoin.UserID(res.UserID),
			Rank:   res.Rank,
		})
	}

	paid, err := events.DistributeRewards(r.Context(), h.Grantor, *event, results)
	observe.LedgerAppends.WithLabelValues(string(radcoin.TxEventReward)).Add(float64(paid))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Reward distribution incomplete", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "distributed", "paid": paid})
}

// GenerateChallenge forces generation of today's challenge and reveals the
// answer to the admin.
func (h *Handler) GenerateChallenge(w http.ResponseWriter, r *http.Request) {
	c, created, err := h.Generator.EnsureToday(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate challenge", err)
		return
	}
	if created {
		observe.ChallengesGenerated.WithLabelValues("fallback").Inc()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"created":   created,
		"challenge": toChallengeDTO(c, true),
	})
}

// AuditUser replays a user's ledger chain and reports breaks.
func (h *Handler) AuditUser(w http.ResponseWriter, r *http.Request) {
	userID := radcoin.UserID(chi.URLParam(r, "userID"))

	report, err := h.Auditor.Verify(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Audit failed", err)
		return
	}

	dto := AuditReportDTO{
		UserID:       string(report.UserID),
		Entries:      report.Entries,
		FinalBalance: report.FinalBalance.Int64(),
		Clean:        report.Clean(),
	}
	for _, b := range report.Breaks {
		dto.Breaks = append(dto.Breaks, b.Error())
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// HEALTH
// =============================================================================

// Health is the liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// JSON HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
