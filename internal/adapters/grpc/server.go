package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/viralforge/intranet/credential-service/internal/domain"
	"github.com/viralforge/intranet/credential-service/internal/ports"
)

const (
	serviceName         = "viralforge.intranet.credential.v1.CredentialInternalService"
	validateTokenMethod = "/" + serviceName + "/ValidateToken"
)

// SessionValidator is the subset of the application service exposed to other
// intranet services over gRPC.
type SessionValidator interface {
	ValidateToken(ctx context.Context, raw string) (ports.SessionClaims, error)
}

// CredentialInternalService is the handler type registered with the gRPC server.
type CredentialInternalService interface {
	ValidateToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type CredentialInternalServer struct {
	sessions SessionValidator
}

func NewCredentialInternalServer(sessions SessionValidator) *CredentialInternalServer {
	return &CredentialInternalServer{sessions: sessions}
}

func Register(server grpc.ServiceRegistrar, svc CredentialInternalService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*CredentialInternalService)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "ValidateToken",
				Handler:    validateTokenHandler(svc),
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "credential/v1/credential_internal.proto",
	}, svc)
}

// ValidateToken expects {"token": "<jwt>"} and answers with the session claims.
// Expired sessions are reported as valid=false instead of an error so callers
// can tell them apart from forged tokens.
func (s *CredentialInternalServer) ValidateToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	token := req.GetFields()["token"].GetStringValue()
	if token == "" {
		return nil, status.Error(codes.InvalidArgument, "missing token")
	}

	claims, err := s.sessions.ValidateToken(ctx, token)
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		return buildStruct(map[string]any{
			"valid":  false,
			"reason": string(domain.OutcomeTokenExpired),
		})
	case err != nil:
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	return buildStruct(map[string]any{
		"valid":      true,
		"session_id": claims.TokenID,
		"subject":    claims.Subject,
		"issued_at":  claims.IssuedAt.Unix(),
		"expires_at": claims.ExpiresAt.Unix(),
	})
}

func buildStruct(fields map[string]any) (*structpb.Struct, error) {
	resp, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func validateTokenHandler(svc CredentialInternalService) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return svc.ValidateToken(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: validateTokenMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return svc.ValidateToken(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}
