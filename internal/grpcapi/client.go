package grpcapi

import (
	"context"
	"encoding/base64"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls task.v1.TaskService and task.v1.UserService on an existing
// connection. Every call carries the bearer token the client was created with.
type Client struct {
	cc    grpc.ClientConnInterface
	token string
}

func NewClient(cc grpc.ClientConnInterface, token string) *Client {
	return &Client{cc: cc, token: token}
}

// WithToken returns a client sharing the connection but authenticating as
// someone else.
func (c *Client) WithToken(token string) *Client {
	return &Client{cc: c.cc, token: token}
}

// Attachment is a proof file sent with SubmitProof.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (c *Client) invoke(ctx context.Context, method string, req map[string]interface{}, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invokeFull(ctx, FullMethod(method), req, opts...)
}

func (c *Client) invokeFull(ctx context.Context, fullMethod string, req map[string]interface{}, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTask(ctx context.Context, title, description, assignedTo, deadline, proofType string) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodCreateTask, map[string]interface{}{
		"title":       title,
		"description": description,
		"assignedTo":  assignedTo,
		"deadline":    deadline,
		"proofType":   proofType,
	})
}

func (c *Client) ListAssignedToMe(ctx context.Context) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodListAssignedToMe, map[string]interface{}{})
}

func (c *Client) ListAssignedByMe(ctx context.Context) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodListAssignedByMe, map[string]interface{}{})
}

func (c *Client) GetTask(ctx context.Context, id string) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetTask, map[string]interface{}{"id": id})
}

func (c *Client) ListTaskEvents(ctx context.Context, id string) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodListTaskEvents, map[string]interface{}{"id": id})
}

// SubmitProof sends notes and an optional attachment. A nil attachment
// submits without a file.
func (c *Client) SubmitProof(ctx context.Context, id, notes string, a *Attachment) (*structpb.Struct, error) {
	req := map[string]interface{}{
		"id":    id,
		"notes": notes,
	}
	var opts []grpc.CallOption
	if a != nil {
		req["attachment"] = map[string]interface{}{
			"filename":    a.Filename,
			"contentType": a.ContentType,
			"data":        base64.StdEncoding.EncodeToString(a.Data),
		}
		opts = append(opts, grpc.MaxCallSendMsgSize(MaxMessageSize(int64(len(a.Data)))))
	}
	return c.invoke(ctx, MethodSubmitProof, req, opts...)
}

func (c *Client) ReviewTask(ctx context.Context, id, decision, feedback string) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodReviewTask, map[string]interface{}{
		"id":              id,
		"status":          decision,
		"managerFeedback": feedback,
	})
}

func (c *Client) GetProfile(ctx context.Context) (*structpb.Struct, error) {
	return c.invokeFull(ctx, UserFullMethod(MethodGetProfile), map[string]interface{}{})
}

// UpdateProfile records the caller's display name. role may be empty.
func (c *Client) UpdateProfile(ctx context.Context, name, role string) (*structpb.Struct, error) {
	return c.invokeFull(ctx, UserFullMethod(MethodUpdateProfile), map[string]interface{}{
		"name": name,
		"role": role,
	})
}

func (c *Client) ListTeamMembers(ctx context.Context) (*structpb.Struct, error) {
	return c.invokeFull(ctx, UserFullMethod(MethodListTeamMembers), map[string]interface{}{})
}
