/*
Package tutor is the AI tutor gateway.

PURPOSE:
  Answers a user's question about a diagnostic case through an LLM.
  Each answer costs one ai_tutor_credit from the user's help-aid
  inventory, and requests are rate limited per user.

FLOW:
  1. Rate-limit check (denied requests consume nothing).
  2. Consume one ai_tutor_credit.
  3. LLM call. If it fails, the consumed credit is granted back - the
     same compensation shape as purchase settlement: never leave the user
     paying for something they did not receive.

SEE ALSO:
  - client.go: The chat-completions HTTP client
  - limiter.go: The injected sliding-window limiter
*/
package tutor

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/radventure/engine/helpaid"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrRateLimited is returned when the user exhausted the request window.
	ErrRateLimited = errors.New("tutor rate limit exceeded")

	// ErrNoCredits is returned when the user has no ai_tutor_credits left.
	ErrNoCredits = errors.New("no ai tutor credits left")
)

// =============================================================================
// TUTOR
// =============================================================================

const systemPrompt = "You are a radiology tutor. Explain findings step by step, " +
	"name the relevant anatomy, and keep answers concise and factual. " +
	"Never state a definitive diagnosis; always frame it as teaching guidance."

type Tutor struct {
	Client  Client
	Aids    helpaid.Granter
	Limiter *RateLimiter
	Model   string
}

func New(client Client, aids helpaid.Granter, limiter *RateLimiter, model string) *Tutor {
	return &Tutor{Client: client, Aids: aids, Limiter: limiter, Model: model}
}

// Answer is a tutor reply plus the credits the user has left.
type Answer struct {
	Text             string
	CreditsRemaining int
}

// Ask answers one question for the user, consuming one ai_tutor_credit.
func (t *Tutor) Ask(ctx context.Context, userID, question string) (Answer, error) {
	if t.Limiter != nil && !t.Limiter.Allow(userID+":tutor") {
		return Answer{}, ErrRateLimited
	}

	if err := t.Aids.Use(ctx, userID, helpaid.AITutor); err != nil {
		if errors.Is(err, helpaid.ErrNoAidsLeft) {
			return Answer{}, ErrNoCredits
		}
		return Answer{}, err
	}

	resp, err := t.Client.CreateChatCompletion(ctx, ChatRequest{
		Model: t.Model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: question},
		},
		MaxTokens: 512,
	})
	if err != nil {
		// Give the credit back; the user got nothing for it.
		if gerr := t.Aids.Grant(ctx, userID, helpaid.Grant{AITutor: 1}); gerr != nil {
			log.Printf("tutor: credit refund failed for user %s: %v", userID, gerr)
		}
		return Answer{}, fmt.Errorf("tutor request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		if gerr := t.Aids.Grant(ctx, userID, helpaid.Grant{AITutor: 1}); gerr != nil {
			log.Printf("tutor: credit refund failed for user %s: %v", userID, gerr)
		}
		return Answer{}, errors.New("tutor returned no choices")
	}

	inv, err := t.Aids.Get(ctx, userID)
	if err != nil {
		// The answer is already paid for; report it with unknown credits.
		log.Printf("tutor: inventory read failed for user %s: %v", userID, err)
		inv = helpaid.Inventory{UserID: userID, AITutor: -1}
	}

	return Answer{
		Text:             resp.Choices[0].Message.Content,
		CreditsRemaining: inv.AITutor,
	}, nil
}
