// Package grpcapi exposes the task lifecycle as the gRPC service
// task.v1.TaskService and the user directory as task.v1.UserService.
// Messages are google.protobuf.Struct values so the services need no
// generated code.
package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName     = "task.v1.TaskService"
	UserServiceName = "task.v1.UserService"
)

// Method names
const (
	MethodCreateTask       = "CreateTask"
	MethodListAssignedToMe = "ListAssignedToMe"
	MethodListAssignedByMe = "ListAssignedByMe"
	MethodGetTask          = "GetTask"
	MethodListTaskEvents   = "ListTaskEvents"
	MethodSubmitProof      = "SubmitProof"
	MethodReviewTask       = "ReviewTask"

	MethodGetProfile      = "GetProfile"
	MethodUpdateProfile   = "UpdateProfile"
	MethodListTeamMembers = "ListTeamMembers"
)

// FullMethod returns the wire name of a TaskService method.
func FullMethod(method string) string {
	return fullMethodOf(ServiceName, method)
}

// UserFullMethod returns the wire name of a UserService method.
func UserFullMethod(method string) string {
	return fullMethodOf(UserServiceName, method)
}

func fullMethodOf(service, method string) string {
	return "/" + service + "/" + method
}

// TaskServiceServer is the server API for task.v1.TaskService.
type TaskServiceServer interface {
	CreateTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAssignedToMe(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListAssignedByMe(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTaskEvents(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitProof(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReviewTask(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UserServiceServer is the server API for task.v1.UserService.
type UserServiceServer interface {
	GetProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTeamMembers(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler[S any](fullMethod string, call func(S, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(S), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(S), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// TaskServiceDesc describes task.v1.TaskService for grpc.Server.RegisterService.
var TaskServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TaskServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodCreateTask, Handler: unaryHandler(FullMethod(MethodCreateTask), TaskServiceServer.CreateTask)},
		{MethodName: MethodListAssignedToMe, Handler: unaryHandler(FullMethod(MethodListAssignedToMe), TaskServiceServer.ListAssignedToMe)},
		{MethodName: MethodListAssignedByMe, Handler: unaryHandler(FullMethod(MethodListAssignedByMe), TaskServiceServer.ListAssignedByMe)},
		{MethodName: MethodGetTask, Handler: unaryHandler(FullMethod(MethodGetTask), TaskServiceServer.GetTask)},
		{MethodName: MethodListTaskEvents, Handler: unaryHandler(FullMethod(MethodListTaskEvents), TaskServiceServer.ListTaskEvents)},
		{MethodName: MethodSubmitProof, Handler: unaryHandler(FullMethod(MethodSubmitProof), TaskServiceServer.SubmitProof)},
		{MethodName: MethodReviewTask, Handler: unaryHandler(FullMethod(MethodReviewTask), TaskServiceServer.ReviewTask)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "task/v1/task.proto",
}

// RegisterTaskServiceServer registers srv with s.
func RegisterTaskServiceServer(s grpc.ServiceRegistrar, srv TaskServiceServer) {
	s.RegisterService(&TaskServiceDesc, srv)
}

// UserServiceDesc describes task.v1.UserService for grpc.Server.RegisterService.
var UserServiceDesc = grpc.ServiceDesc{
	ServiceName: UserServiceName,
	HandlerType: (*UserServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodGetProfile, Handler: unaryHandler(UserFullMethod(MethodGetProfile), UserServiceServer.GetProfile)},
		{MethodName: MethodUpdateProfile, Handler: unaryHandler(UserFullMethod(MethodUpdateProfile), UserServiceServer.UpdateProfile)},
		{MethodName: MethodListTeamMembers, Handler: unaryHandler(UserFullMethod(MethodListTeamMembers), UserServiceServer.ListTeamMembers)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "task/v1/user.proto",
}

// RegisterUserServiceServer registers srv with s.
func RegisterUserServiceServer(s grpc.ServiceRegistrar, srv UserServiceServer) {
	s.RegisterService(&UserServiceDesc, srv)
}
