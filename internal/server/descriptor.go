package server

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const protoFile = "liquidation/v1/liquidation.proto"

// fileDescriptor describes ServiceDesc in the global registry so reflection
// clients can resolve the service and its well-known message types.
var fileDescriptor = registerFileDescriptor()

func registerFileDescriptor() protoreflect.FileDescriptor {
	if fd, err := protoregistry.GlobalFiles.FindFileByPath(protoFile); err == nil {
		return fd
	}

	structMsg := (&structpb.Struct{}).ProtoReflect().Descriptor()
	bytesMsg := (&wrapperspb.BytesValue{}).ProtoReflect().Descriptor()
	typeName := func(d protoreflect.MessageDescriptor) *string {
		return proto.String("." + string(d.FullName()))
	}
	method := func(name string, in, out protoreflect.MessageDescriptor) *descriptorpb.MethodDescriptorProto {
		return &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(name),
			InputType:  typeName(in),
			OutputType: typeName(out),
		}
	}

	fdp := &descriptorpb.FileDescriptorProto{
		Name:       proto.String(protoFile),
		Package:    proto.String("liquidation.v1"),
		Syntax:     proto.String("proto3"),
		Dependency: []string{structMsg.ParentFile().Path(), bytesMsg.ParentFile().Path()},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("LiquidationService"),
			Method: []*descriptorpb.MethodDescriptorProto{
				method("ExtractFields", structMsg, structMsg),
				method("RecognizePage", bytesMsg, structMsg),
				method("SubmitDocument", structMsg, structMsg),
				method("SubmitDirectory", structMsg, structMsg),
				method("GetDocument", structMsg, structMsg),
				method("ExportRecord", structMsg, bytesMsg),
			},
		}},
	}

	fd, err := protodesc.NewFile(fdp, protoregistry.GlobalFiles)
	if err != nil {
		panic("liquidation descriptor: " + err.Error())
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic("register liquidation descriptor: " + err.Error())
	}
	return fd
}
