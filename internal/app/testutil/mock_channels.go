package testutil

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"video-conversion/internal/app/channel"
	"video-conversion/internal/app/model"
)

// MockStatusStore is a testify mock of channel.StatusStore.
type MockStatusStore struct {
	mock.Mock
}

func (m *MockStatusStore) GetStatus(ctx context.Context, contentHash string) (*model.StatusRecord, error) {
	args := m.Called(ctx, contentHash)
	rec, _ := args.Get(0).(*model.StatusRecord)
	return rec, args.Error(1)
}

// MockQueue hands out queued messages in batches. Messages added with Push are
// delivered on the following Receive calls; a requeued delivery goes back to the front.
type MockQueue struct {
	mu       sync.Mutex
	pending  []model.QueueMessage
	acked    []string
	Err      error
	Receives int
}

func (q *MockQueue) Push(msgs ...model.QueueMessage) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, msgs...)
}

func (q *MockQueue) Receive(ctx context.Context, max int) ([]channel.Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Receives++
	if q.Err != nil {
		return nil, q.Err
	}
	n := max
	if n > len(q.pending) {
		n = len(q.pending)
	}
	out := make([]channel.Delivery, 0, n)
	for _, msg := range q.pending[:n] {
		out = append(out, channel.NewDelivery(msg,
			func() error {
				q.mu.Lock()
				defer q.mu.Unlock()
				q.acked = append(q.acked, msg.ID)
				return nil
			},
			func() error {
				q.mu.Lock()
				defer q.mu.Unlock()
				q.pending = append([]model.QueueMessage{msg}, q.pending...)
				return nil
			},
		))
	}
	q.pending = q.pending[n:]
	return out, nil
}

// Len is the number of messages waiting to be received.
func (q *MockQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Acked returns the ids of acked messages in ack order.
func (q *MockQueue) Acked() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.acked...)
}

// MockUnhider records unhide calls.
type MockUnhider struct {
	mu     sync.Mutex
	Hashes []string
	Err    error
}

func (u *MockUnhider) Unhide(ctx context.Context, contentHash string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Hashes = append(u.Hashes, contentHash)
	return u.Err
}

// Calls returns how often hash was unhidden.
func (u *MockUnhider) Calls(hash string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := 0
	for _, h := range u.Hashes {
		if h == hash {
			n++
		}
	}
	return n
}
