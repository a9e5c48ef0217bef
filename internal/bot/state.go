package bot

import "sync"

// Steps of the /add dialog.
const (
	stepName = iota + 1
	stepExpiry
	stepQuantity
)

// AddState holds one chat's progress through the /add dialog.
type AddState struct {
	Step       int
	Name       string
	ExpiryDate *string
}

// AddFSM tracks dialog state per chat.
type AddFSM struct {
	mu     sync.Mutex
	states map[int64]*AddState
}

func NewAddFSM() *AddFSM {
	return &AddFSM{states: make(map[int64]*AddState)}
}

func (fsm *AddFSM) GetState(chatID int64) (*AddState, bool) {
	fsm.mu.Lock()
	defer fsm.mu.Unlock()
	state, exists := fsm.states[chatID]
	return state, exists
}

func (fsm *AddFSM) SetState(chatID int64, state *AddState) {
	fsm.mu.Lock()
	defer fsm.mu.Unlock()
	fsm.states[chatID] = state
}

func (fsm *AddFSM) DeleteState(chatID int64) {
	fsm.mu.Lock()
	defer fsm.mu.Unlock()
	delete(fsm.states, chatID)
}
