package inventory

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func serve(t *testing.T, lister Lister, opts ...grpc.ServerOption) *Client {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer(opts...)
	Register(srv, lister)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	cc, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close() })

	return NewClient(cc)
}

var sample = []Image{
	{ID: "sha512-aaa", Name: "example.com/app/redis", Version: "7.2", ImportTimestamp: 1700000000, Size: 1024},
	{ID: "sha512-bbb", Name: "example.com/app/nginx", Version: "1.25", ImportTimestamp: 1700000100, Size: 2048},
	{ID: "sha512-ccc", Name: "quay.io/coreos/etcd", Version: "3.5", ImportTimestamp: 1700000200, Size: 4096},
}

func TestListImagesAll(t *testing.T) {
	client := serve(t, NewStore(sample...))

	images, err := client.ListImages(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, sample, images)
}

func TestListImagesWithoutDetail(t *testing.T) {
	client := serve(t, NewStore(sample...))

	images, err := client.ListImages(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, images, 3)
	assert.Equal(t, "sha512-aaa", images[0].ID)
	assert.Zero(t, images[0].Size)
	assert.True(t, images[0].ImportedAt().IsZero())
}

func TestListImagesEmptyStore(t *testing.T) {
	client := serve(t, NewStore())

	images, err := client.ListImages(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, images)
}

func TestListImagesFiltersOnTheWire(t *testing.T) {
	var got []Filter
	var gotDetail bool
	client := serve(t, ListerFunc(func(_ context.Context, detail bool, filters []Filter) ([]Image, error) {
		gotDetail = detail
		got = filters
		return nil, nil
	}))

	filters := []Filter{
		{IDs: []string{"sha512-aaa"}},
		{Prefixes: []string{"example.com/"}, Keywords: []string{"nginx"}},
	}
	_, err := client.ListImages(context.Background(), true, filters...)
	require.NoError(t, err)
	assert.True(t, gotDetail)
	assert.Equal(t, filters, got)
}

func TestListImagesBackendError(t *testing.T) {
	client := serve(t, ListerFunc(func(context.Context, bool, []Filter) ([]Image, error) {
		return nil, status.Error(codes.Unavailable, "store locked")
	}))

	_, err := client.ListImages(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, codes.Unavailable, status.Code(errors.Unwrap(err)))
	assert.Contains(t, err.Error(), "list images")
}

func TestServerInterceptorSeesMethodAndMetadata(t *testing.T) {
	var method, header string
	interceptor := func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		method = info.FullMethod
		if md, ok := metadata.FromIncomingContext(ctx); ok && len(md.Get("x-trace-id")) > 0 {
			header = md.Get("x-trace-id")[0]
		}
		return handler(ctx, req)
	}
	client := serve(t, NewStore(sample...), grpc.UnaryInterceptor(interceptor))

	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-trace-id", "01HZTRACE")
	images, err := client.ListImages(ctx, false)
	require.NoError(t, err)
	assert.Len(t, images, 3)
	assert.Equal(t, ListImagesMethod, method)
	assert.Equal(t, "01HZTRACE", header)
}

func TestFilterMatching(t *testing.T) {
	tests := []struct {
		name    string
		filters []Filter
		want    []string
	}{
		{name: "no filters", filters: nil, want: []string{"sha512-aaa", "sha512-bbb", "sha512-ccc"}},
		{name: "by id", filters: []Filter{{IDs: []string{"sha512-bbb"}}}, want: []string{"sha512-bbb"}},
		{name: "by prefix", filters: []Filter{{Prefixes: []string{"example.com/"}}}, want: []string{"sha512-aaa", "sha512-bbb"}},
		{name: "by base name", filters: []Filter{{BaseNames: []string{"etcd"}}}, want: []string{"sha512-ccc"}},
		{name: "by keyword", filters: []Filter{{Keywords: []string{"ngi"}}}, want: []string{"sha512-bbb"}},
		{name: "and within filter", filters: []Filter{{Prefixes: []string{"example.com/"}, Keywords: []string{"etcd"}}}, want: nil},
		{name: "or across filters", filters: []Filter{{IDs: []string{"sha512-aaa"}}, {BaseNames: []string{"etcd"}}}, want: []string{"sha512-aaa", "sha512-ccc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, img := range sample {
				if MatchAny(tt.filters, img) {
					got = append(got, img.ID)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStoreReplace(t *testing.T) {
	store := NewStore(sample...)
	assert.Equal(t, 3, store.Len())

	store.Replace(sample[0])
	images, err := store.ListImages(context.Background(), true, nil)
	require.NoError(t, err)
	assert.Equal(t, []Image{sample[0]}, images)
}

func TestSchemaDescriptors(t *testing.T) {
	require.NotNil(t, listImagesRequestDesc)
	require.NotNil(t, listImagesResponseDesc)
	assert.Equal(t, "v1alpha.ListImagesRequest", string(listImagesRequestDesc.FullName()))
	assert.Equal(t, 6, int(imageInfoDesc.Fields().ByName("size").Number()))

	filter := imageFilterDesc.Fields()
	assert.Equal(t, 1, int(filter.ByName("ids").Number()))
	assert.Equal(t, 2, int(filter.ByName("prefixes").Number()))
	assert.Equal(t, 3, int(filter.ByName("keywords").Number()))
	assert.Equal(t, 9, int(filter.ByName("base_names").Number()))
}
