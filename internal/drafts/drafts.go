package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"caseflow/internal/intake"
	"caseflow/internal/utils"
	"caseflow/pkg/types"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "caseflow:"

// Repository keeps intake sessions in Redis until they are submitted or
// expire. Nothing here is durable.
type Repository struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Repository {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &Repository{client: client, ttl: ttl}
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func draftKey(id string) string {
	return keyPrefix + "draft:" + id
}

func userDraftKey(userID string) string {
	return keyPrefix + "user:" + userID + ":draft"
}

func submitKey(id string) string {
	return keyPrefix + "draft:" + id + ":submitting"
}

// Create starts a fresh draft for userID and makes it the user's active one.
func (r *Repository) Create(ctx context.Context, userID string) (intake.SessionState, error) {
	state := intake.SessionState{
		ID:     utils.NanoID(),
		UserID: userID,
		Step:   intake.InitialStep,
		Form:   intake.FormState{Attachments: map[string]intake.Attachment{}},
	}

	if err := r.Save(ctx, state); err != nil {
		return intake.SessionState{}, err
	}

	return state, nil
}

// Save writes the draft and refreshes its expiry.
func (r *Repository) Save(ctx context.Context, state intake.SessionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode draft %s: %w", state.ID, err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, draftKey(state.ID), data, r.ttl)
		pipe.Set(ctx, userDraftKey(state.UserID), state.ID, r.ttl)
		return nil
	})
	return utils.ErrorWrapOrNil(err, fmt.Sprintf("failed to save draft %s", state.ID))
}

// Get loads a draft owned by userID.
func (r *Repository) Get(ctx context.Context, userID, id string) (intake.SessionState, error) {
	data, err := r.client.Get(ctx, draftKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return intake.SessionState{}, types.ErrDraftNotFound
		}
		return intake.SessionState{}, fmt.Errorf("failed to load draft %s: %w", id, err)
	}

	var state intake.SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return intake.SessionState{}, fmt.Errorf("failed to decode draft %s: %w", id, err)
	}

	if state.UserID != userID {
		return intake.SessionState{}, types.ErrDraftNotFound
	}

	return state, nil
}

// Active returns the user's most recently saved draft.
func (r *Repository) Active(ctx context.Context, userID string) (intake.SessionState, error) {
	id, err := r.client.Get(ctx, userDraftKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return intake.SessionState{}, types.ErrDraftNotFound
		}
		return intake.SessionState{}, fmt.Errorf("failed to load active draft: %w", err)
	}

	return r.Get(ctx, userID, id)
}

// Delete drops a draft and clears the user's pointer if it still names it.
func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	active, err := r.client.Get(ctx, userDraftKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to load active draft: %w", err)
	}

	keys := []string{draftKey(id), submitKey(id)}
	if active == id {
		keys = append(keys, userDraftKey(userID))
	}

	return utils.ErrorWrapOrNil(r.client.Del(ctx, keys...).Err(), fmt.Sprintf("failed to delete draft %s", id))
}

// AcquireSubmit marks a draft as being submitted. It returns false when
// another request already holds the mark. The mark expires after ttl so a
// crashed request cannot block the draft forever.
func (r *Repository) AcquireSubmit(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, submitKey(id), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire submit guard for draft %s: %w", id, err)
	}
	return ok, nil
}

func (r *Repository) ReleaseSubmit(ctx context.Context, id string) error {
	return utils.ErrorWrapOrNil(r.client.Del(ctx, submitKey(id)).Err(), "failed to release submit guard")
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
