package inventory

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

// Wire names of the public inventory API.
const (
	ServiceName      = "v1alpha.PublicAPI"
	ListImagesMethod = "/" + ServiceName + "/ListImages"
)

// Message descriptors of the subset of the v1alpha schema the sidecar uses.
var (
	listImagesRequestDesc  protoreflect.MessageDescriptor
	listImagesResponseDesc protoreflect.MessageDescriptor
	imageFilterDesc        protoreflect.MessageDescriptor
	imageInfoDesc          protoreflect.MessageDescriptor
)

func init() {
	fd, err := protodesc.NewFile(schemaFile(), new(protoregistry.Files))
	if err != nil {
		panic(fmt.Sprintf("inventory: invalid v1alpha schema: %v", err))
	}

	msgs := fd.Messages()
	imageFilterDesc = msgs.ByName("ImageFilter")
	imageInfoDesc = msgs.ByName("ImageInfo")
	listImagesRequestDesc = msgs.ByName("ListImagesRequest")
	listImagesResponseDesc = msgs.ByName("ListImagesResponse")
}

// schemaFile describes the subset of the v1alpha api.proto in use. Field
// numbers follow the upstream file; unused fields (labels, annotations,
// import time bounds, full names) are omitted:
//
//	syntax = "proto3";
//	package v1alpha;
//
//	message ImageFilter {
//	  repeated string ids = 1;
//	  repeated string prefixes = 2;
//	  repeated string keywords = 3;
//	  repeated string base_names = 9;
//	}
//	message ImageInfo {
//	  string id = 1;
//	  string name = 2;
//	  string version = 3;
//	  int64 import_timestamp = 4;
//	  bytes manifest = 5;
//	  int64 size = 6;
//	}
//	message ListImagesRequest {
//	  repeated ImageFilter filters = 1;
//	  bool detail = 2;
//	}
//	message ListImagesResponse {
//	  repeated ImageInfo images = 1;
//	}
//	service PublicAPI {
//	  rpc ListImages (ListImagesRequest) returns (ListImagesResponse);
//	}
func schemaFile() *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("inventory/v1alpha.proto"),
		Package: proto.String("v1alpha"),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("ImageFilter"),
				Field: []*descriptorpb.FieldDescriptorProto{
					repeatedString("ids", 1),
					repeatedString("prefixes", 2),
					repeatedString("keywords", 3),
					repeatedString("base_names", 9),
				},
			},
			{
				Name: proto.String("ImageInfo"),
				Field: []*descriptorpb.FieldDescriptorProto{
					scalar("id", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					scalar("name", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					scalar("version", 3, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					scalar("import_timestamp", 4, descriptorpb.FieldDescriptorProto_TYPE_INT64),
					scalar("manifest", 5, descriptorpb.FieldDescriptorProto_TYPE_BYTES),
					scalar("size", 6, descriptorpb.FieldDescriptorProto_TYPE_INT64),
				},
			},
			{
				Name: proto.String("ListImagesRequest"),
				Field: []*descriptorpb.FieldDescriptorProto{
					repeatedMessage("filters", 1, ".v1alpha.ImageFilter"),
					scalar("detail", 2, descriptorpb.FieldDescriptorProto_TYPE_BOOL),
				},
			},
			{
				Name: proto.String("ListImagesResponse"),
				Field: []*descriptorpb.FieldDescriptorProto{
					repeatedMessage("images", 1, ".v1alpha.ImageInfo"),
				},
			},
		},
		Service: []*descriptorpb.ServiceDescriptorProto{
			{
				Name: proto.String("PublicAPI"),
				Method: []*descriptorpb.MethodDescriptorProto{
					{
						Name:       proto.String("ListImages"),
						InputType:  proto.String(".v1alpha.ListImagesRequest"),
						OutputType: proto.String(".v1alpha.ListImagesResponse"),
					},
				},
			},
		},
	}
}

func scalar(name string, number int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   typ.Enum(),
	}
}

func repeatedString(name string, number int32) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum(),
		Type:   descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum(),
	}
}

func repeatedMessage(name string, number int32, typeName string) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(name),
		Number:   proto.Int32(number),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum(),
		Type:     descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(),
		TypeName: proto.String(typeName),
	}
}
