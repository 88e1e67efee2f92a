// Package mocks provides test doubles for the hubspot client.
package mocks

import (
	"context"

	hubspot "github.com/sells-group/invoice-intake/pkg/hubspot"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// CreateCompany provides a mock function with given fields: ctx, properties
func (_m *MockClient) CreateCompany(ctx context.Context, properties map[string]string) (*hubspot.Object, error) {
	ret := _m.Called(ctx, properties)

	if len(ret) == 0 {
		panic("no return value specified for CreateCompany")
	}

	var r0 *hubspot.Object
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, map[string]string) (*hubspot.Object, error)); ok {
		return rf(ctx, properties)
	}
	if rf, ok := ret.Get(0).(func(context.Context, map[string]string) *hubspot.Object); ok {
		r0 = rf(ctx, properties)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*hubspot.Object)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, map[string]string) error); ok {
		r1 = rf(ctx, properties)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient. It also registers a
// testing interface on the mock and a cleanup function to assert the mocks
// expectations.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
