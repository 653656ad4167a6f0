// Package grpc implements the gRPC transport for earshot.
//
// This transport exposes a gRPC server with a unary Transcribe method and a
// bidirectional StreamingRecognize method. It is the preferred transport for
// low-latency, strongly-typed communication with satellites and edge devices.
//
// The service descriptor is maintained by hand over a JSON codec instead of
// protobuf codegen: earshot doesn't define a wire protocol of its own, it
// reuses the message types every transport shares.
package grpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/earshot/earshot/internal/message"
	"github.com/earshot/earshot/internal/transport"
)

// Transport implements transport.Transport over gRPC.
type Transport struct {
	port   int
	server *grpc.Server
}

// New creates a new gRPC transport on the given port.
func New(port int) *Transport {
	return &Transport{port: port}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "grpc" }

// Listen starts the gRPC server and routes incoming requests to the service.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	t.server = grpc.NewServer(grpc.ForceServerCodec(jsonCodec{}))
	t.server.RegisterService(&recognizerServiceDesc, &recognizerServer{svc: svc})

	slog.Info("grpc transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("grpc transport shutting down")
		t.server.GracefulStop()
	}()

	return t.server.Serve(lis)
}

// Close gracefully stops the gRPC server.
func (t *Transport) Close() error {
	if t.server != nil {
		t.server.GracefulStop()
	}
	return nil
}

// jsonCodec marshals RPC messages as JSON.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return "json" }

// StreamingRequest is one client frame on a StreamingRecognize call.
type StreamingRequest struct {
	// Language selects the recognition language; only the first frame's
	// value is honored.
	Language string `json:"language,omitempty"`

	// Audio is a raw PCM16 mono chunk.
	Audio []byte `json:"audio,omitempty"`

	// Finalize flushes the stream; the accumulated transcript is returned
	// as a final StreamEvent. The stream stays open.
	Finalize bool `json:"finalize,omitempty"`
}

// recognizerService is the handler contract behind the service descriptor.
type recognizerService interface {
	Transcribe(ctx context.Context, req *message.Request) (*message.TranscribeResult, error)
	StreamingRecognize(gs grpc.ServerStream) error
}

// recognizerServer adapts transport.Service to the gRPC handlers.
type recognizerServer struct {
	svc transport.Service
}

func (s *recognizerServer) Transcribe(ctx context.Context, req *message.Request) (*message.TranscribeResult, error) {
	return s.svc.Transcribe(ctx, req), nil
}

func (s *recognizerServer) StreamingRecognize(gs grpc.ServerStream) error {
	ctx := gs.Context()

	// The first frame selects the language (and may already carry audio).
	var first StreamingRequest
	if err := gs.RecvMsg(&first); err != nil {
		return err
	}

	id, stream, err := s.svc.OpenStream(ctx, first.Language)
	if err != nil {
		return status.Errorf(codes.FailedPrecondition, "opening stream: %v", err)
	}

	logger := slog.With("stream_id", id)
	logger.Debug("grpc stream started", "language", first.Language)

	// SendMsg is not safe for concurrent use; result forwarding and
	// finalize replies share a lock.
	var sendMu sync.Mutex
	send := func(ev message.StreamEvent) error {
		ev.StreamID = id
		sendMu.Lock()
		defer sendMu.Unlock()
		return gs.SendMsg(&ev)
	}

	forwarderDone := make(chan struct{})
	go func() {
		defer close(forwarderDone)
		for res := range stream.Results() {
			if err := send(message.StreamEvent{Text: res.Text, Final: res.Final, Language: res.Language}); err != nil {
				return
			}
		}
	}()

	// Closing the stream ends the forwarder's range; it must be drained
	// before the handler returns, as SendMsg is illegal afterwards.
	defer func() {
		stream.Close()
		<-forwarderDone
	}()

	handle := func(req StreamingRequest) error {
		if len(req.Audio) > 0 {
			if err := stream.Feed(req.Audio); err != nil {
				return status.Errorf(codes.Aborted, "feeding stream: %v", err)
			}
		}
		if req.Finalize {
			text, err := stream.Finalize(ctx)
			if err != nil {
				return status.Errorf(codes.Aborted, "finalizing stream: %v", err)
			}
			logger.Info("stream finalized", "text_length", len(text))
			return send(message.StreamEvent{Text: text, Final: true, Language: first.Language})
		}
		return nil
	}

	if err := handle(first); err != nil {
		return err
	}

	for {
		var req StreamingRequest
		if err := gs.RecvMsg(&req); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if err := handle(req); err != nil {
			return err
		}
	}
}

func transcribeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(message.Request)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*recognizerServer).Transcribe(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/earshot.v1.Recognizer/Transcribe",
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*recognizerServer).Transcribe(ctx, req.(*message.Request))
	}
	return interceptor(ctx, in, info, handler)
}

func streamingRecognizeHandler(srv any, gs grpc.ServerStream) error {
	return srv.(*recognizerServer).StreamingRecognize(gs)
}

var recognizerServiceDesc = grpc.ServiceDesc{
	ServiceName: "earshot.v1.Recognizer",
	HandlerType: (*recognizerService)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Transcribe",
			Handler:    transcribeHandler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamingRecognize",
			Handler:       streamingRecognizeHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
}
