package inventory

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Client is the typed ListImages client over an established connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc. It performs no I/O.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// ListImages asks the backend for the images matching any of filters.
// No filters lists the whole store.
func (c *Client) ListImages(ctx context.Context, detail bool, filters ...Filter) ([]Image, error) {
	req := newRequest(detail, filters)
	resp := dynamicpb.NewMessage(listImagesResponseDesc)

	if err := c.cc.Invoke(ctx, ListImagesMethod, req, resp); err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	return decodeResponse(resp), nil
}
