package mocks

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"
)

// FetcherMock stands in for api.Client. The first return value, when set,
// is JSON round-tripped into out so tests can hand back plain structs.
type FetcherMock struct {
	mock.Mock
}

func (m *FetcherMock) FetchWithAuth(ctx context.Context, method, path string, body, out any) error {
	args := m.Called(ctx, method, path, body)
	if resp := args.Get(0); resp != nil && out != nil {
		raw, err := json.Marshal(resp)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return err
		}
	}
	return args.Error(1)
}
