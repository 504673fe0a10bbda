package storage

import (
	"github.com/serverlessresearch/gcrest/pkg/auth"
	"github.com/serverlessresearch/gcrest/pkg/dispatch"
	"github.com/serverlessresearch/gcrest/pkg/request"
)

// Service issues Cloud Storage requests for one application.
type Service struct {
	app auth.App
	d   *dispatch.Dispatcher
}

func NewService(d *dispatch.Dispatcher) *Service {
	return &Service{d: d}
}

func (s *Service) SetApp(app auth.App) {
	s.app = app
}

func (s *Service) App() auth.App {
	return s.app
}

func (s *Service) Download(parent Parent, file request.File, get GetOptions, opts ...dispatch.CallOption) *dispatch.Task {
	return s.d.Dispatch(s.app, DownloadRequest(parent, file, get), opts...)
}

func (s *Service) OTA(parent Parent, get GetOptions, opts ...dispatch.CallOption) *dispatch.Task {
	return s.d.Dispatch(s.app, OTARequest(parent, get), opts...)
}

func (s *Service) GetMetadata(parent Parent, get GetOptions, opts ...dispatch.CallOption) *dispatch.Task {
	return s.d.Dispatch(s.app, GetMetadataRequest(parent, get), opts...)
}

func (s *Service) List(parent Parent, list ListOptions, opts ...dispatch.CallOption) *dispatch.Task {
	return s.d.Dispatch(s.app, ListRequest(parent, list), opts...)
}

func (s *Service) Delete(parent Parent, del DeleteOptions, opts ...dispatch.CallOption) *dispatch.Task {
	return s.d.Dispatch(s.app, DeleteRequest(parent, del), opts...)
}

func (s *Service) Upload(parent Parent, file request.File, upload UploadOptions, opts ...dispatch.CallOption) *dispatch.Task {
	return s.d.Dispatch(s.app, UploadRequest(parent, file, upload), opts...)
}
