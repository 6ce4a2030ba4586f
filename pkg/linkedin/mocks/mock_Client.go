// Package mocks provides test doubles for the linkedin client.
package mocks

import (
	"context"

	linkedin "github.com/dtb-digital/prospect-agent/pkg/linkedin"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// GetProfile provides a mock function with given fields: ctx, profileURL
func (_m *MockClient) GetProfile(ctx context.Context, profileURL string) (*linkedin.Profile, error) {
	ret := _m.Called(ctx, profileURL)

	if len(ret) == 0 {
		panic("no return value specified for GetProfile")
	}

	var r0 *linkedin.Profile
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*linkedin.Profile, error)); ok {
		return rf(ctx, profileURL)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *linkedin.Profile); ok {
		r0 = rf(ctx, profileURL)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*linkedin.Profile)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, profileURL)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
