package bot

import (
	"context"
	"encoding/json"
	"fmt"

	"devis-bot/pkg/redis"
)

// Dialog steps. The draft itself lives in the orchestrator; Redis only
// remembers where in the conversation each chat is.
const (
	StepMainMenu           = "main_menu"
	StepClientName         = "client_name"
	StepClientAddress      = "client_address"
	StepClientEmail        = "client_email"
	StepQuoteNumber        = "quote_number"
	StepQuoteDate          = "quote_date"
	StepTaxRate            = "tax_rate"
	StepItemMenu           = "item_menu"
	StepItemSelect         = "item_select"
	StepItemDescription    = "item_description"
	StepItemPurchasePrice  = "item_purchase_price"
	StepItemMargin         = "item_margin"
	StepItemQuantity       = "item_quantity"
	StepProductName        = "product_name"
	StepProductDescription = "product_description"
	StepProductPrice       = "product_price"
	StepProductMargin      = "product_margin"
)

// UserState is the per-chat dialog position.
type UserState struct {
	Step      string `json:"step"`
	ItemIndex int    `json:"item_index"`
}

type StateStore struct {
	redis *redis.Client
}

func NewStateStore(redisClient *redis.Client) *StateStore {
	return &StateStore{redis: redisClient}
}

func (s *StateStore) Save(ctx context.Context, chatID int64, state UserState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := s.redis.Set(ctx, getStateKey(chatID), data); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

func (s *StateStore) Get(ctx context.Context, chatID int64) (UserState, error) {
	data, err := s.redis.Get(ctx, getStateKey(chatID))
	if redis.IsNil(err) {
		return UserState{Step: StepMainMenu}, nil
	}
	if err != nil {
		return UserState{}, fmt.Errorf("failed to get state: %w", err)
	}

	var state UserState
	if err := json.Unmarshal(data, &state); err != nil {
		return UserState{}, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return state, nil
}

func (s *StateStore) Clear(ctx context.Context, chatID int64) error {
	if err := s.redis.Del(ctx, getStateKey(chatID)); err != nil {
		return fmt.Errorf("failed to clear state: %w", err)
	}
	return nil
}

func (s *StateStore) SetStep(ctx context.Context, chatID int64, step string) error {
	state, err := s.Get(ctx, chatID)
	if err != nil {
		state = UserState{}
	}
	state.Step = step
	return s.Save(ctx, chatID, state)
}

func (s *StateStore) SetItemIndex(ctx context.Context, chatID int64, index int) error {
	state, err := s.Get(ctx, chatID)
	if err != nil {
		state = UserState{}
	}
	state.ItemIndex = index
	return s.Save(ctx, chatID, state)
}

func getStateKey(chatID int64) string {
	return fmt.Sprintf("state:%d", chatID)
}
