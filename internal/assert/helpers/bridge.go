package helpers

import (
	"context"
	"sync"

	"github.com/mvoevodskiy/botcms/pkg/api"
)

type (
	// MemoryBridge is an in-process transport adapter recording every
	// dispatch for assertions
	MemoryBridge struct {
		mu      sync.Mutex
		nextID  int64
		sent    []*api.Parcel
		removed []Removal
		answers []Answered

		// SendErr, when set, makes every Send fail
		SendErr error
	}

	// Removal records one group-delete call
	Removal struct {
		ChatID string
		MsgIDs []int64
	}

	// Answered records one callback acknowledgement
	Answered struct {
		QueryID string
		Answer  any
	}
)

// BridgeName is the name the test bridge registers under
const BridgeName = "memory"

// NewMemoryBridge creates an empty recording bridge. Message ids start
// at 100 so tests can tell them apart from inbound ids
func NewMemoryBridge() *MemoryBridge {
	return &MemoryBridge{nextID: 100}
}

func (b *MemoryBridge) Name() string {
	return BridgeName
}

func (b *MemoryBridge) Send(
	_ context.Context, parcel *api.Parcel,
) ([]int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.SendErr != nil {
		return nil, b.SendErr
	}
	b.nextID++
	b.sent = append(b.sent, parcel)
	return []int64{b.nextID}, nil
}

func (b *MemoryBridge) Remove(
	_ context.Context, chatID string, msgIDs []int64,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removed = append(b.removed, Removal{ChatID: chatID, MsgIDs: msgIDs})
	return nil
}

func (b *MemoryBridge) AnswerCallback(
	_ context.Context, queryID string, answer any,
) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.answers = append(b.answers, Answered{QueryID: queryID, Answer: answer})
	return nil
}

// Sent returns a copy of every dispatched parcel in order
func (b *MemoryBridge) Sent() []*api.Parcel {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*api.Parcel, len(b.sent))
	copy(out, b.sent)
	return out
}

// LastSent returns the most recently dispatched parcel, or nil
func (b *MemoryBridge) LastSent() *api.Parcel {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.sent) == 0 {
		return nil
	}
	return b.sent[len(b.sent)-1]
}

// LastID returns the id assigned to the most recent send
func (b *MemoryBridge) LastID() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nextID
}

// Removed returns every group-delete call in order
func (b *MemoryBridge) Removed() []Removal {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Removal, len(b.removed))
	copy(out, b.removed)
	return out
}

// Answers returns every callback acknowledgement in order
func (b *MemoryBridge) Answers() []Answered {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Answered, len(b.answers))
	copy(out, b.answers)
	return out
}

// Reset discards everything recorded so far
func (b *MemoryBridge) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = nil
	b.removed = nil
	b.answers = nil
}
