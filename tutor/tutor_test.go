package tutor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radventure/engine/helpaid"
	"github.com/radventure/engine/radcoin/store"
	"github.com/radventure/engine/tutor"
)

// =============================================================================
// TEST FAKES
// =============================================================================

type fakeClient struct {
	reply string
	err   error
	calls int
}

func (f *fakeClient) CreateChatCompletion(context.Context, tutor.ChatRequest) (*tutor.ChatResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.reply == "" {
		return &tutor.ChatResponse{}, nil
	}
	return &tutor.ChatResponse{
		Choices: []tutor.ChatChoice{{Message: tutor.Message{Role: "assistant", Content: f.reply}}},
	}, nil
}

func newTestTutor(t *testing.T, client tutor.Client, credits int) (*tutor.Tutor, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	if credits > 0 {
		require.NoError(t, mem.Grant(context.Background(), "user-1", helpaid.Grant{AITutor: credits}))
	}
	limiter := tutor.NewRateLimiter(5, time.Minute)
	return tutor.New(client, mem, limiter, "gpt-4o-mini"), mem
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_ConsumesOneCredit(t *testing.T) {
	// GIVEN: A user with 3 tutor credits
	// WHEN: Asking one question
	// THEN: The answer comes back and 2 credits remain

	client := &fakeClient{reply: "The pleural line indicates pneumothorax."}
	tut, mem := newTestTutor(t, client, 3)

	answer, err := tut.Ask(context.Background(), "user-1", "What does the pleural line mean?")
	require.NoError(t, err)
	assert.Equal(t, "The pleural line indicates pneumothorax.", answer.Text)
	assert.Equal(t, 2, answer.CreditsRemaining)

	inv, _ := mem.Get(context.Background(), "user-1")
	assert.Equal(t, 2, inv.AITutor)
}

func TestAsk_NoCredits(t *testing.T) {
	// GIVEN: A user with zero tutor credits
	// WHEN: Asking
	// THEN: ErrNoCredits; the LLM is never called

	client := &fakeClient{reply: "unused"}
	tut, _ := newTestTutor(t, client, 0)

	_, err := tut.Ask(context.Background(), "user-1", "anything")
	assert.ErrorIs(t, err, tutor.ErrNoCredits)
	assert.Equal(t, 0, client.calls)
}

func TestAsk_LLMFailure_RefundsCredit(t *testing.T) {
	// GIVEN: One credit and an LLM that errors
	// WHEN: Asking
	// THEN: The call fails but the credit is granted back

	client := &fakeClient{err: errors.New("upstream 503")}
	tut, mem := newTestTutor(t, client, 1)

	_, err := tut.Ask(context.Background(), "user-1", "anything")
	require.Error(t, err)

	inv, _ := mem.Get(context.Background(), "user-1")
	assert.Equal(t, 1, inv.AITutor, "credit must be refunded on LLM failure")
}

func TestAsk_EmptyChoices_RefundsCredit(t *testing.T) {
	// GIVEN: An LLM returning zero choices
	// WHEN: Asking
	// THEN: The call fails and the credit is refunded

	client := &fakeClient{} // no error, no choices
	tut, mem := newTestTutor(t, client, 2)

	_, err := tut.Ask(context.Background(), "user-1", "anything")
	require.Error(t, err)

	inv, _ := mem.Get(context.Background(), "user-1")
	assert.Equal(t, 2, inv.AITutor)
}

func TestAsk_RateLimited_ConsumesNothing(t *testing.T) {
	// GIVEN: A limiter allowing 2 requests per minute and plenty of credits
	// WHEN: Asking three times inside the window
	// THEN: The third call is rejected without touching credits or the LLM

	client := &fakeClient{reply: "ok"}
	mem := store.NewMemory()
	require.NoError(t, mem.Grant(context.Background(), "user-1", helpaid.Grant{AITutor: 10}))
	tut := tutor.New(client, mem, tutor.NewRateLimiter(2, time.Minute), "gpt-4o-mini")

	_, err := tut.Ask(context.Background(), "user-1", "q1")
	require.NoError(t, err)
	_, err = tut.Ask(context.Background(), "user-1", "q2")
	require.NoError(t, err)

	_, err = tut.Ask(context.Background(), "user-1", "q3")
	assert.ErrorIs(t, err, tutor.ErrRateLimited)
	assert.Equal(t, 2, client.calls)

	inv, _ := mem.Get(context.Background(), "user-1")
	assert.Equal(t, 8, inv.AITutor)
}

// =============================================================================
// RATE LIMITER
// =============================================================================

func TestRateLimiter_SlidingWindow(t *testing.T) {
	// GIVEN: 2 requests allowed per minute
	// WHEN: Hitting the limit, then advancing past the window
	// THEN: Old hits expire and capacity returns

	rl := tutor.NewRateLimiter(2, time.Minute)
	now := time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)
	rl.SetNow(func() time.Time { return now })

	assert.True(t, rl.Allow("u1"))
	assert.True(t, rl.Allow("u1"))
	assert.False(t, rl.Allow("u1"))
	assert.Equal(t, 0, rl.Remaining("u1"))

	// 61 seconds later the first two hits fall out of the window.
	now = now.Add(61 * time.Second)
	assert.True(t, rl.Allow("u1"))
	assert.Equal(t, 1, rl.Remaining("u1"))
}

func TestRateLimiter_DeniedCallsNotCounted(t *testing.T) {
	// GIVEN: A full window
	// WHEN: Hammering Allow while denied
	// THEN: Denials do not extend the lockout

	rl := tutor.NewRateLimiter(1, time.Minute)
	now := time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)
	rl.SetNow(func() time.Time { return now })

	assert.True(t, rl.Allow("u1"))
	for i := 0; i < 10; i++ {
		assert.False(t, rl.Allow("u1"))
	}

	now = now.Add(61 * time.Second)
	assert.True(t, rl.Allow("u1"), "window must clear despite denied attempts")
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	// GIVEN: Two users sharing a limiter
	// WHEN: One exhausts their window
	// THEN: The other is unaffected

	rl := tutor.NewRateLimiter(1, time.Minute)

	assert.True(t, rl.Allow("u1"))
	assert.False(t, rl.Allow("u1"))
	assert.True(t, rl.Allow("u2"))
}
