package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	PluginMapKey       = "memestickers"
	serviceName        = "memestickers.plugin.v1.StickerPlugin"
	jsonCodecName      = "json"
	methodGetMetadata  = "/" + serviceName + "/GetMetadata"
	methodListCommands = "/" + serviceName + "/ListCommands"
	methodHandle       = "/" + serviceName + "/Handle"
	methodRefresh      = "/" + serviceName + "/Refresh"
)

var HandshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "MEMESTICKERS_PLUGIN",
	MagicCookieValue: "memestickers",
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type Empty struct{}

type Metadata struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Prefix       string   `json:"prefix"`
	Capabilities []string `json:"capabilities"`
}

type CommandDescriptor struct {
	Name     string `json:"name"`
	Usage    string `json:"usage"`
	Summary  string `json:"summary"`
	Admin    bool   `json:"admin"`
	Shortcut bool   `json:"shortcut"`
	Pack     string `json:"pack,omitempty"`
	Active   bool   `json:"active"`
}

type ListCommandsResponse struct {
	Commands []CommandDescriptor `json:"commands"`
}

type HandleRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

// ReplyMessage carries one reply. Image bytes travel base64 encoded inside
// the JSON codec.
type ReplyMessage struct {
	Kind     string `json:"kind"`
	Text     string `json:"text,omitempty"`
	Image    []byte `json:"image,omitempty"`
	MIMEType string `json:"mime_type,omitempty"`
}

type HandleResponse struct {
	Handled bool           `json:"handled"`
	Replies []ReplyMessage `json:"replies"`
}

type StickerPluginServer interface {
	GetMetadata(ctx context.Context, in *Empty) (*Metadata, error)
	ListCommands(ctx context.Context, in *Empty) (*ListCommandsResponse, error)
	Handle(ctx context.Context, in *HandleRequest) (*HandleResponse, error)
	Refresh(ctx context.Context, in *Empty) (*Empty, error)
}

type StickerPluginClient interface {
	GetMetadata(ctx context.Context) (*Metadata, error)
	ListCommands(ctx context.Context) (*ListCommandsResponse, error)
	Handle(ctx context.Context, in *HandleRequest) (*HandleResponse, error)
	Refresh(ctx context.Context) error
}

type stickerPluginClient struct {
	conn grpc.ClientConnInterface
}

func NewStickerPluginClient(conn grpc.ClientConnInterface) StickerPluginClient {
	return &stickerPluginClient{conn: conn}
}

func (c *stickerPluginClient) GetMetadata(ctx context.Context) (*Metadata, error) {
	out := &Metadata{}
	if err := c.conn.Invoke(ctx, methodGetMetadata, &Empty{}, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *stickerPluginClient) ListCommands(ctx context.Context) (*ListCommandsResponse, error) {
	out := &ListCommandsResponse{}
	if err := c.conn.Invoke(ctx, methodListCommands, &Empty{}, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *stickerPluginClient) Handle(ctx context.Context, in *HandleRequest) (*HandleResponse, error) {
	out := &HandleResponse{}
	if err := c.conn.Invoke(ctx, methodHandle, in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *stickerPluginClient) Refresh(ctx context.Context) error {
	return c.conn.Invoke(ctx, methodRefresh, &Empty{}, &Empty{}, grpc.CallContentSubtype(jsonCodecName))
}

// unary builds the method table entry for one request/response call.
func unary[Req, Resp any](name string, call func(context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + serviceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				typed, ok := req.(*Req)
				if !ok {
					return nil, fmt.Errorf("invalid request type")
				}
				return call(ctx, typed)
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func RegisterStickerPluginServer(server grpc.ServiceRegistrar, impl StickerPluginServer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*StickerPluginServer)(nil),
		Methods: []grpc.MethodDesc{
			unary("GetMetadata", impl.GetMetadata),
			unary("ListCommands", impl.ListCommands),
			unary("Handle", impl.Handle),
			unary("Refresh", impl.Refresh),
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "memestickers/plugin/v1/sticker_plugin.proto",
	}, impl)
}

type GRPCPlugin struct {
	plugin.NetRPCUnsupportedPlugin
	Impl StickerPluginServer
}

func (p *GRPCPlugin) GRPCServer(_ *plugin.GRPCBroker, server *grpc.Server) error {
	RegisterStickerPluginServer(server, p.Impl)
	return nil
}

func (p *GRPCPlugin) GRPCClient(_ context.Context, _ *plugin.GRPCBroker, conn *grpc.ClientConn) (any, error) {
	return NewStickerPluginClient(conn), nil
}

func PluginMap(impl StickerPluginServer) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		PluginMapKey: &GRPCPlugin{Impl: impl},
	}
}
