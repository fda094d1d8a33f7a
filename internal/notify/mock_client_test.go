package notify_test

import (
	"callgate/backend/internal/notify"
	"sync/atomic"
)

type MockClient struct {
	id          string
	userID      uint
	RecvChannel chan notify.Event
	closed      atomic.Int32
}

func newMockClient(id string, userID uint, buffer int) *MockClient {
	return &MockClient{
		id:          id,
		userID:      userID,
		RecvChannel: make(chan notify.Event, buffer),
	}
}

func (c *MockClient) GetID() string                       { return c.id }
func (c *MockClient) GetUserID() uint                     { return c.userID }
func (c *MockClient) GetSendChannel() chan<- notify.Event { return c.RecvChannel }
func (c *MockClient) Run()                                {}
func (c *MockClient) Close()                              { c.closed.Add(1) }
func (c *MockClient) Closed() int                         { return int(c.closed.Load()) }
