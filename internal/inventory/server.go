package inventory

import (
	"context"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Lister serves ListImages calls.
type Lister interface {
	ListImages(ctx context.Context, detail bool, filters []Filter) ([]Image, error)
}

// ListerFunc adapts a function to Lister.
type ListerFunc func(ctx context.Context, detail bool, filters []Filter) ([]Image, error)

// ListImages calls f.
func (f ListerFunc) ListImages(ctx context.Context, detail bool, filters []Filter) ([]Image, error) {
	return f(ctx, detail, filters)
}

// Register exposes lister as v1alpha.PublicAPI on s.
func Register(s *grpc.Server, lister Lister) {
	s.RegisterService(&serviceDesc, lister)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Lister)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListImages",
			Handler:    listImagesHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "inventory/v1alpha.proto",
}

func listImagesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := dynamicpb.NewMessage(listImagesRequestDesc)
	if err := dec(req); err != nil {
		return nil, err
	}

	handle := func(ctx context.Context, r interface{}) (interface{}, error) {
		detail, filters := decodeRequest(r.(*dynamicpb.Message))
		images, err := srv.(Lister).ListImages(ctx, detail, filters)
		if err != nil {
			return nil, err
		}
		return newResponse(images), nil
	}

	if interceptor == nil {
		return handle(ctx, req)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ListImagesMethod,
	}
	return interceptor(ctx, req, info, handle)
}

// Store is an in-memory image store serving ListImages. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	images []Image
}

// NewStore returns a store holding images.
func NewStore(images ...Image) *Store {
	s := &Store{}
	s.Replace(images...)
	return s
}

// Replace swaps the whole content of the store.
func (s *Store) Replace(images ...Image) {
	cp := append([]Image(nil), images...)
	s.mu.Lock()
	s.images = cp
	s.mu.Unlock()
}

// Len returns the number of stored images.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}

// ListImages returns the stored images matching filters. Without detail only
// the identifying fields are returned.
func (s *Store) ListImages(_ context.Context, detail bool, filters []Filter) ([]Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Image, 0, len(s.images))
	for _, img := range s.images {
		if !MatchAny(filters, img) {
			continue
		}
		if !detail {
			img = Image{ID: img.ID, Name: img.Name, Version: img.Version}
		}
		out = append(out, img)
	}
	return out, nil
}
