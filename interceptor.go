package dispatch

import (
	"context"
	"sync"
)

// RequestInterceptor transforms an outgoing Request before the dedup key is
// computed and the transport is invoked. Interceptors run in registration
// order and may mutate the descriptor (headers, body, flags).
type RequestInterceptor interface {
	InterceptRequest(ctx context.Context, req *Request) error
}

// RequestInterceptorFunc adapts a function to RequestInterceptor.
type RequestInterceptorFunc func(ctx context.Context, req *Request) error

func (f RequestInterceptorFunc) InterceptRequest(ctx context.Context, req *Request) error {
	return f(ctx, req)
}

// ResponseInterceptor transforms a successful Response before it is handed
// back to the caller (and to any coalesced waiters).
type ResponseInterceptor interface {
	InterceptResponse(ctx context.Context, req *Request, resp *Response) error
}

// ResponseInterceptorFunc adapts a function to ResponseInterceptor.
type ResponseInterceptorFunc func(ctx context.Context, req *Request, resp *Response) error

func (f ResponseInterceptorFunc) InterceptResponse(ctx context.Context, req *Request, resp *Response) error {
	return f(ctx, req, resp)
}

// interceptorChain holds the two ordered transform lists. Each Client owns
// its own chain so tests can run isolated instances.
type interceptorChain struct {
	mu       sync.RWMutex
	request  []RequestInterceptor
	response []ResponseInterceptor
}

func newInterceptorChain() *interceptorChain {
	return &interceptorChain{}
}

func (ic *interceptorChain) appendRequest(i RequestInterceptor) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.request = append(ic.request, i)
}

func (ic *interceptorChain) appendResponse(i ResponseInterceptor) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.response = append(ic.response, i)
}

func (ic *interceptorChain) clear() {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.request = nil
	ic.response = nil
}

// runRequest applies all request interceptors in order. The first error
// aborts the call.
func (ic *interceptorChain) runRequest(ctx context.Context, req *Request) error {
	ic.mu.RLock()
	interceptors := ic.request
	ic.mu.RUnlock()

	for _, i := range interceptors {
		if err := i.InterceptRequest(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// runResponse applies all response interceptors in order.
func (ic *interceptorChain) runResponse(ctx context.Context, req *Request, resp *Response) error {
	ic.mu.RLock()
	interceptors := ic.response
	ic.mu.RUnlock()

	for _, i := range interceptors {
		if err := i.InterceptResponse(ctx, req, resp); err != nil {
			return err
		}
	}
	return nil
}

// Use registers a request interceptor. Registration order is execution order.
func (c *Client) Use(i RequestInterceptor) {
	c.interceptors.appendRequest(i)
}

// UseResponse registers a response interceptor.
func (c *Client) UseResponse(i ResponseInterceptor) {
	c.interceptors.appendResponse(i)
}

// ClearInterceptors empties both interceptor lists. Primarily for test
// isolation.
func (c *Client) ClearInterceptors() {
	c.interceptors.clear()
}
