package mocks

import (
	"context"
	"io"

	"imgupload/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) Put(ctx context.Context, name string, r io.Reader, size int64) (storage.ObjectInfo, error) {
	args := m.Called(ctx, name, r, size)
	if f, ok := args.Get(0).(func(context.Context, string, io.Reader, int64) storage.ObjectInfo); ok {
		return f(ctx, name, r, size), args.Error(1)
	}
	return args.Get(0).(storage.ObjectInfo), args.Error(1)
}

func (m *MockImageStore) Get(ctx context.Context, name string) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Get(1).(storage.ObjectInfo), args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(storage.ObjectInfo), args.Error(2)
}

func (m *MockImageStore) Stat(ctx context.Context, name string) (storage.ObjectInfo, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(storage.ObjectInfo), args.Error(1)
}

func (m *MockImageStore) List(ctx context.Context) ([]storage.ObjectInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.ObjectInfo), args.Error(1)
}

func (m *MockImageStore) Delete(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockImageStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
