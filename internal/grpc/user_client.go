package grpc

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"messaging-service/internal/identity"
	"messaging-service/internal/models"
	"messaging-service/internal/observability"
)

const (
	findUserByEmailMethod = "/identity.v1.Directory/FindUserByEmail"
	findUserByIDMethod    = "/identity.v1.Directory/FindUserByID"
)

// Invoker is the subset of *grpc.ClientConn used by the directory client.
type Invoker interface {
	Invoke(ctx context.Context, method string, args any, reply any, opts ...gogrpc.CallOption) error
}

// UserClient resolves users through the identity directory gRPC service.
// Requests and responses are google.protobuf.Struct messages.
type UserClient struct {
	conn Invoker
}

// NewUserClient constructs the wrapper.
func NewUserClient(conn Invoker) *UserClient {
	return &UserClient{conn: conn}
}

// DialUserClient opens a traced connection to the directory at addr.
func DialUserClient(addr string) (*UserClient, *gogrpc.ClientConn, error) {
	conn, err := gogrpc.NewClient(addr,
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
		gogrpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		gogrpc.WithUnaryInterceptor(observability.GRPCClientMetricsUnaryInterceptor()),
	)
	if err != nil {
		return nil, nil, err
	}
	return NewUserClient(conn), conn, nil
}

// FindUserByEmail performs one lookup of the normalised address.
func (u *UserClient) FindUserByEmail(ctx context.Context, email string) (models.UserProfile, error) {
	email = identity.NormalizeEmail(email)
	if email == "" {
		return models.UserProfile{}, identity.ErrUserNotFound
	}
	return u.lookup(ctx, findUserByEmailMethod, map[string]any{"email": email})
}

// FindUserByID retrieves user details.
func (u *UserClient) FindUserByID(ctx context.Context, userID uuid.UUID) (models.UserProfile, error) {
	return u.lookup(ctx, findUserByIDMethod, map[string]any{"id": userID.String()})
}

func (u *UserClient) lookup(ctx context.Context, method string, fields map[string]any) (models.UserProfile, error) {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return models.UserProfile{}, err
	}

	resp := &structpb.Struct{}
	if err := u.conn.Invoke(ctx, method, req, resp); err != nil {
		if status.Code(err) == codes.NotFound {
			return models.UserProfile{}, identity.ErrUserNotFound
		}
		return models.UserProfile{}, fmt.Errorf("identity directory: %w", err)
	}
	return profileFromStruct(resp)
}

func profileFromStruct(s *structpb.Struct) (models.UserProfile, error) {
	m := s.GetFields()
	rawID := m["id"].GetStringValue()
	if rawID == "" {
		return models.UserProfile{}, identity.ErrUserNotFound
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return models.UserProfile{}, fmt.Errorf("identity directory: bad id %q: %w", rawID, err)
	}

	profile := models.UserProfile{
		ID:        id,
		Email:     m["email"].GetStringValue(),
		FullName:  m["full_name"].GetStringValue(),
		AvatarURL: m["avatar_url"].GetStringValue(),
	}
	if key := m["public_key"].GetStringValue(); key != "" {
		profile.PublicKey = &key
	}
	return profile, nil
}
