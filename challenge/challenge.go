/*
Package challenge generates the daily diagnostic challenge.

PURPOSE:
  Ensures exactly one active challenge row exists per calendar date.
  Content comes from a deterministic fallback rotation (no external model
  call on this path): the question for a date is picked by
  day-of-year mod len(rotation), so every instance generating "today"
  lands on the same question.

IDEMPOTENCE:
  Generation first looks for an existing active challenge dated today and
  returns it unchanged. The store additionally enforces a unique index on
  the challenge date, so two racing generators still produce one row.

FAN-OUT:
  After inserting a new challenge, a notification is created for every
  user with role USER, batched in fixed-size chunks to bound single-request
  payload size (default 100).
*/
package challenge

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/radventure/engine/notify"
)

// =============================================================================
// TYPES
// =============================================================================

type Challenge struct {
	ID            string
	Date          string // YYYY-MM-DD, UTC
	Question      string
	Explanation   string
	CorrectAnswer bool // true/false style question
	Community     CommunityStats
	Active        bool
	CreatedAt     time.Time
}

// CommunityStats accumulates answers from the community; zeroed on creation.
type CommunityStats struct {
	TotalAnswers   int
	CorrectAnswers int
}

// Question is one entry of the fallback rotation.
type Question struct {
	Text          string
	Explanation   string
	CorrectAnswer bool
}

// ErrDuplicateDate is returned by stores when a challenge already exists
// for the date (unique-index backstop for racing generators).
var ErrDuplicateDate = errors.New("challenge already exists for date")

// =============================================================================
// STORE
// =============================================================================

type Store interface {
	// ActiveOn returns the active challenge for a date, nil if absent.
	ActiveOn(ctx context.Context, date string) (*Challenge, error)

	// InsertChallenge persists a new challenge. Returns ErrDuplicateDate
	// if one already exists for the date.
	InsertChallenge(ctx context.Context, c Challenge) error

	// ListUserIDsByRole returns ids of all users with the given role.
	ListUserIDsByRole(ctx context.Context, role string) ([]string, error)
}

// =============================================================================
// GENERATOR
// =============================================================================

const DefaultFanOutBatch = 100

type Generator struct {
	Store      Store
	Notifier   notify.Emitter
	Rotation   []Question
	FanOutSize int

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewGenerator(store Store, notifier notify.Emitter) *Generator {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Generator{
		Store:      store,
		Notifier:   notifier,
		Rotation:   FallbackRotation,
		FanOutSize: DefaultFanOutBatch,
		Now:        time.Now,
	}
}

// EnsureToday returns today's active challenge, generating it if absent.
// The bool result reports whether a new challenge was created.
func (g *Generator) EnsureToday(ctx context.Context) (Challenge, bool, error) {
	now := g.Now().UTC()
	date := now.Format("2006-01-02")

	existing, err := g.Store.ActiveOn(ctx, date)
	if err != nil {
		return Challenge{}, false, err
	}
	if existing != nil {
		return *existing, false, nil
	}

	q := g.Rotation[(now.YearDay()-1)%len(g.Rotation)]
	c := Challenge{
		ID:            uuid.NewString(),
		Date:          date,
		Question:      Sanitize(q.Text),
		Explanation:   Sanitize(q.Explanation),
		CorrectAnswer: q.CorrectAnswer,
		Active:        true,
		CreatedAt:     now,
	}

	if err := g.Store.InsertChallenge(ctx, c); err != nil {
		// Lost the race to another generator: the row for today exists.
		if errors.Is(err, ErrDuplicateDate) {
			if winner, aerr := g.Store.ActiveOn(ctx, date); aerr == nil && winner != nil {
				return *winner, false, nil
			}
		}
		return Challenge{}, false, err
	}

	g.fanOut(ctx, c)
	return c, true, nil
}

// fanOut notifies every USER-role user in fixed-size batches. Best-effort:
// a failed batch is logged and the remaining batches still go out.
func (g *Generator) fanOut(ctx context.Context, c Challenge) {
	userIDs, err := g.Store.ListUserIDsByRole(ctx, "USER")
	if err != nil {
		log.Printf("challenge: fan-out user listing failed: %v", err)
		return
	}

	size := g.FanOutSize
	if size <= 0 {
		size = DefaultFanOutBatch
	}

	for start := 0; start < len(userIDs); start += size {
		end := start + size
		if end > len(userIDs) {
			end = len(userIDs)
		}
		batch := make([]notify.Notification, 0, end-start)
		for _, id := range userIDs[start:end] {
			batch = append(batch, notify.Notification{
				ID:        uuid.NewString(),
				UserID:    id,
				Type:      notify.TypeChallenge,
				Title:     "Daily challenge is live",
				Message:   "A new diagnostic challenge is waiting for you.",
				Priority:  notify.PriorityMedium,
				ActionURL: fmt.Sprintf("/challenges/%s", c.ID),
				Metadata:  map[string]string{"challenge_id": c.ID, "date": c.Date},
				CreatedAt: time.Now().UTC(),
			})
		}
		if err := g.Notifier.CreateBatch(ctx, batch); err != nil {
			log.Printf("challenge: fan-out batch %d-%d failed: %v", start, end, err)
		}
	}
}

// =============================================================================
// SANITIZATION
// =============================================================================

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Sanitize strips markup from free-text fields before persistence.
func Sanitize(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
