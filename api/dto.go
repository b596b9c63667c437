/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/radventure/engine/challenge"
	"github.com/radventure/engine/events"
	"github.com/radventure/engine/helpaid"
	"github.com/radventure/engine/notify"
	"github.com/radventure/engine/radcoin"
	"github.com/radventure/engine/shop"
)

// =============================================================================
// WALLET
// =============================================================================

// BalanceDTO represents a user's wallet in API responses.
type BalanceDTO struct {
	UserID    string `json:"user_id"`
	RadCoins  int64  `json:"radcoins"`
	Points    int64  `json:"points"`
	UpdatedAt string `json:"updated_at"`
}

func toBalanceDTO(b radcoin.Balance) BalanceDTO {
	return BalanceDTO{
		UserID:    string(b.UserID),
		RadCoins:  b.RadCoins.Int64(),
		Points:    b.Points.Int64(),
		UpdatedAt: b.UpdatedAt.Format(time.RFC3339),
	}
}

// TransactionDTO represents one ledger entry.
type TransactionDTO struct {
	ID           string            `json:"id"`
	Type         string            `json:"type"`
	Amount       int64             `json:"amount"`
	BalanceAfter int64             `json:"balance_after"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    string            `json:"created_at"`
}

func toTransactionDTOs(txs []radcoin.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, 0, len(txs))
	for _, tx := range txs {
		dtos = append(dtos, TransactionDTO{
			ID:           string(tx.ID),
			Type:         string(tx.Type),
			Amount:       tx.Amount.Int64(),
			BalanceAfter: tx.BalanceAfter.Int64(),
			Metadata:     tx.Metadata,
			CreatedAt:    tx.CreatedAt.Format(time.RFC3339),
		})
	}
	return dtos
}

// =============================================================================
// HELP AIDS AND SHOP
// =============================================================================

// InventoryDTO represents a user's help-aid counts.
type InventoryDTO struct {
	UserID      string `json:"user_id"`
	Elimination int    `json:"elimination_aids"`
	Skip        int    `json:"skip_aids"`
	AITutor     int    `json:"ai_tutor_credits"`
}

func toInventoryDTO(inv helpaid.Inventory) InventoryDTO {
	return InventoryDTO{
		UserID:      inv.UserID,
		Elimination: inv.Elimination,
		Skip:        inv.Skip,
		AITutor:     inv.AITutor,
	}
}

// ItemDTO represents a catalog item with its derived final price.
type ItemDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
	Price       int64  `json:"price"`
	FinalPrice  int64  `json:"final_price"`
	SalePrice   *int64 `json:"sale_price,omitempty"`
	Discount    *int   `json:"discount,omitempty"`
	Elimination int    `json:"elimination_aids"`
	Skip        int    `json:"skip_aids"`
	AITutor     int    `json:"ai_tutor_credits"`
}

func toItemDTO(item shop.Item) ItemDTO {
	return ItemDTO{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Category:    string(item.Category),
		Price:       item.Price,
		FinalPrice:  item.FinalPrice().Int64(),
		SalePrice:   item.SalePrice,
		Discount:    item.Discount,
		Elimination: item.Benefits.Elimination,
		Skip:        item.Benefits.Skip,
		AITutor:     item.Benefits.AITutor,
	}
}

// CreateItemRequest creates or updates a catalog item (admin).
type CreateItemRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       int64  `json:"price"`
	SalePrice   *int64 `json:"sale_price"`
	Discount    *int   `json:"discount"`
	Elimination int    `json:"elimination_aids"`
	Skip        int    `json:"skip_aids"`
	AITutor     int    `json:"ai_tutor_credits"`
}

// PurchaseRequest asks to buy one catalog item.
type PurchaseRequest struct {
	ItemID string `json:"item_id"`
}

// SettlementDTO is the successful outcome of a purchase.
type SettlementDTO struct {
	ItemID      string       `json:"item_id"`
	FinalPrice  int64        `json:"final_price"`
	NewBalance  int64        `json:"new_balance"`
	Elimination int          `json:"elimination_aids"`
	Skip        int          `json:"skip_aids"`
	AITutor     int          `json:"ai_tutor_credits"`
	Inventory   InventoryDTO `json:"inventory"`
}

// =============================================================================
// EVENTS
// =============================================================================

// EventDTO represents an event in API responses.
type EventDTO struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	StartsAt        string `json:"starts_at"`
	EndsAt          string `json:"ends_at"`
	MaxParticipants int    `json:"max_participants"`
	PrizeRadCoins   int64  `json:"prize_radcoins"`
	Registered      int    `json:"registered"`
}

func toEventDTO(e events.Event, registered int) EventDTO {
	return EventDTO{
		ID:              e.ID,
		Title:           e.Title,
		StartsAt:        e.StartsAt.Format(time.RFC3339),
		EndsAt:          e.EndsAt.Format(time.RFC3339),
		MaxParticipants: e.MaxParticipants,
		PrizeRadCoins:   e.PrizeRadCoins,
		Registered:      registered,
	}
}

// RegistrationDTO confirms an event registration.
type RegistrationDTO struct {
	ID           string `json:"id"`
	EventID      string `json:"event_id"`
	UserID       string `json:"user_id"`
	RegisteredAt string `json:"registered_at"`
}

// CreateEventRequest creates or updates an event (admin).
type CreateEventRequest struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	StartsAt        string `json:"starts_at"`
	EndsAt          string `json:"ends_at"`
	MaxParticipants int    `json:"max_participants"`
	PrizeRadCoins   int64  `json:"prize_radcoins"`
}

// RewardResultsRequest submits an event's final ranking (admin).
type RewardResultsRequest struct {
	Results []RankedResultDTO `json:"results"`
}

type RankedResultDTO struct {
	UserID string `json:"user_id"`
	Rank   int    `json:"rank"`
}

// =============================================================================
// CHALLENGES
// =============================================================================

// ChallengeDTO represents a daily challenge. The correct answer and its
// explanation are withheld from non-admin responses.
type ChallengeDTO struct {
	ID            string `json:"id"`
	Date          string `json:"date"`
	Question      string `json:"question"`
	Explanation   string `json:"explanation,omitempty"`
	CorrectAnswer *bool  `json:"correct_answer,omitempty"`
	TotalAnswers  int    `json:"total_answers"`
	Correct       int    `json:"correct_answers"`
}

func toChallengeDTO(c challenge.Challenge, reveal bool) ChallengeDTO {
	dto := ChallengeDTO{
		ID:           c.ID,
		Date:         c.Date,
		Question:     c.Question,
		TotalAnswers: c.Community.TotalAnswers,
		Correct:      c.Community.CorrectAnswers,
	}
	if reveal {
		dto.Explanation = c.Explanation
		answer := c.CorrectAnswer
		dto.CorrectAnswer = &answer
	}
	return dto
}

// =============================================================================
// TUTOR
// =============================================================================

// TutorRequestDTO asks the AI tutor a question.
type TutorRequestDTO struct {
	Question string `json:"question"`
}

// TutorAnswerDTO carries the tutor reply.
type TutorAnswerDTO struct {
	Answer           string `json:"answer"`
	CreditsRemaining int    `json:"credits_remaining"`
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

// NotificationDTO represents one notification.
type NotificationDTO struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	Priority    string `json:"priority"`
	ActionURL   string `json:"action_url,omitempty"`
	ActionLabel string `json:"action_label,omitempty"`
	Read        bool   `json:"read"`
	CreatedAt   string `json:"created_at"`
}

func toNotificationDTOs(ns []notify.Notification) []NotificationDTO {
	dtos := make([]NotificationDTO, 0, len(ns))
	for _, n := range ns {
		dtos = append(dtos, NotificationDTO{
			ID:          n.ID,
			Type:        n.Type,
			Title:       n.Title,
			Message:     n.Message,
			Priority:    string(n.Priority),
			ActionURL:   n.ActionURL,
			ActionLabel: n.ActionLabel,
			Read:        n.Read,
			CreatedAt:   n.CreatedAt.Format(time.RFC3339),
		})
	}
	return dtos
}

// =============================================================================
// USERS AND AUDIT
// =============================================================================

// CreateUserRequest creates an account (admin).
type CreateUserRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	InitialCoins int64  `json:"initial_coins"`
}

// AuditReportDTO summarizes a ledger chain verification.
type AuditReportDTO struct {
	UserID       string   `json:"user_id"`
	Entries      int      `json:"entries"`
	FinalBalance int64    `json:"final_balance"`
	Clean        bool     `json:"clean"`
	Breaks       []string `json:"breaks,omitempty"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
