package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"marketplace-client/internal/models"
	"marketplace-client/internal/ws"
)

type RealtimeMock struct {
	mock.Mock
}

func (m *RealtimeMock) Connect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *RealtimeMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *RealtimeMock) JoinRoom(room string) error {
	args := m.Called(room)
	return args.Error(0)
}

func (m *RealtimeMock) LeaveRoom() error {
	args := m.Called()
	return args.Error(0)
}

func (m *RealtimeMock) SendMessage(text string, recipientID int) (models.OutgoingMessage, error) {
	args := m.Called(text, recipientID)
	var msg models.OutgoingMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.OutgoingMessage)
	}
	return msg, args.Error(1)
}

func (m *RealtimeMock) State() ws.State {
	args := m.Called()
	return args.Get(0).(ws.State)
}

func (m *RealtimeMock) CurrentRoom() string {
	args := m.Called()
	return args.String(0)
}

func (m *RealtimeMock) Transport() string {
	args := m.Called()
	return args.String(0)
}

func (m *RealtimeMock) PendingMessages() int {
	args := m.Called()
	return args.Int(0)
}
