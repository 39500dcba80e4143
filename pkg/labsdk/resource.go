package labsdk

import (
	"context"
	"net/url"
	"strconv"
)

// Resource is a REST collection under one base path, e.g. "/laboratories".
// Every call goes through the client pipeline.
type Resource[T any] struct {
	client *Client
	base   string
}

func newResource[T any](c *Client, base string) Resource[T] {
	return Resource[T]{client: c, base: base}
}

// Path returns the collection path.
func (r Resource[T]) Path() string {
	return r.base
}

func (r Resource[T]) item(id int64, suffix ...string) string {
	p := r.base + "/" + strconv.FormatInt(id, 10)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

// List fetches one page of the collection.
func (r Resource[T]) List(ctx context.Context, params ListParams) (*Page[T], error) {
	return getPage[T](ctx, r.client, r.base, params.Values())
}

// Get fetches one item.
func (r Resource[T]) Get(ctx context.Context, id int64) (*T, error) {
	return getOne[T](ctx, r.client, r.item(id), nil)
}

// Create posts a new item and returns what the backend echoes back. The
// backend may return only part of the item.
func (r Resource[T]) Create(ctx context.Context, body any) (*T, error) {
	result, err := r.client.Post(ctx, r.base, body)
	if err != nil {
		return nil, err
	}
	return decodeOne[T](result)
}

// Update replaces fields of one item.
func (r Resource[T]) Update(ctx context.Context, id int64, body any) (*T, error) {
	result, err := r.client.Put(ctx, r.item(id), body)
	if err != nil {
		return nil, err
	}
	return decodeOne[T](result)
}

// Delete removes one item.
func (r Resource[T]) Delete(ctx context.Context, id int64) error {
	_, err := r.client.Delete(ctx, r.item(id), nil)
	return err
}

func getPage[T any](ctx context.Context, c *Client, path string, params url.Values) (*Page[T], error) {
	result, err := c.Get(ctx, path, params)
	if err != nil {
		return nil, err
	}
	return DecodePage[T](result)
}

func getOne[T any](ctx context.Context, c *Client, path string, params url.Values) (*T, error) {
	result, err := c.Get(ctx, path, params)
	if err != nil {
		return nil, err
	}
	return decodeOne[T](result)
}

func decodeOne[T any](result *Result) (*T, error) {
	var v T
	if err := result.Decode(&v); err != nil {
		return nil, err
	}
	return &v, nil
}
