// Package api defines the Connect services of roomsplit: procedure names,
// request/response messages, handler constructors and clients.
//
// Messages are plain Go structs carried by a JSON codec, so any Connect
// client speaking application/json can call the services.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"connectrpc.com/connect"
)

// Codec marshals messages as JSON. Registered under "json", it replaces
// Connect's protobuf JSON codec for application/json requests.
type Codec struct{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// handle registers one unary procedure on mux.
func handle[Req, Res any](
	mux *http.ServeMux,
	procedure string,
	fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error),
	opts []connect.HandlerOption,
) {
	options := append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
	mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, options...))
}

// newClient creates a unary client for one procedure.
func newClient[Req, Res any](httpClient connect.HTTPClient, baseURL, procedure string, opts []connect.ClientOption) *connect.Client[Req, Res] {
	options := append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return connect.NewClient[Req, Res](httpClient, baseURL+procedure, options...)
}
