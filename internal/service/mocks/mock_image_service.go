package mocks

import (
	"context"
	"io"

	"imgupload/internal/model"
	"imgupload/internal/service"
	"imgupload/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockImageService struct {
	mock.Mock
}

func (m *MockImageService) Upload(ctx context.Context, in *service.UploadInput, opt service.Options) (*service.UploadResult, error) {
	args := m.Called(ctx, in, opt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UploadResult), args.Error(1)
}

func (m *MockImageService) UploadMany(ctx context.Context, files []service.UploadInput, opt service.Options) (*service.MultiResult, error) {
	args := m.Called(ctx, files, opt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.MultiResult), args.Error(1)
}

func (m *MockImageService) List(ctx context.Context) ([]model.CatalogEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CatalogEntry), args.Error(1)
}

func (m *MockImageService) Open(ctx context.Context, name string, thumbnail bool) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, name, thumbnail)
	if args.Get(0) == nil {
		return nil, args.Get(1).(storage.ObjectInfo), args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(storage.ObjectInfo), args.Error(2)
}

func (m *MockImageService) Delete(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *MockImageService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
