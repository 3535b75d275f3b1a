package grpcgateway

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/paygate/seedforge/internal/seed/plan"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

// Schema resolves the protobuf request and response types of the gateway
// methods. Messages are built dynamically from it, so no generated code is
// needed.
type Schema struct {
	methods map[string]methodTypes
}

type methodTypes struct {
	input  protoreflect.MessageDescriptor
	output protoreflect.MessageDescriptor
}

// Method returns the request and response descriptors of a full method name.
func (s *Schema) Method(fullMethod string) (protoreflect.MessageDescriptor, protoreflect.MessageDescriptor, error) {
	types, ok := s.methods[fullMethod]
	if !ok {
		return nil, nil, fmt.Errorf("method %s is not in the gateway schema", fullMethod)
	}
	return types.input, types.output, nil
}

var builtinSchema = sync.OnceValues(func() (*Schema, error) {
	files, err := protodesc.NewFiles(builtinFileSet())
	if err != nil {
		return nil, fmt.Errorf("build gateway descriptors: %w", err)
	}
	return schemaFromFiles(files)
})

// BuiltinSchema returns the gateway contract compiled into the binary.
// Fields are numbered in the order the gateway's request messages declare
// them; use LoadSchema when the deployed contract differs.
func BuiltinSchema() (*Schema, error) {
	return builtinSchema()
}

// LoadSchema reads a serialized FileDescriptorSet, as written by
// `protoc --include_imports --descriptor_set_out`.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor set: %w", err)
	}
	return ParseSchema(data)
}

// ParseSchema decodes a serialized FileDescriptorSet.
func ParseSchema(data []byte) (*Schema, error) {
	var set descriptorpb.FileDescriptorSet
	if err := proto.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("decode descriptor set: %w", err)
	}
	files, err := protodesc.NewFiles(&set)
	if err != nil {
		return nil, fmt.Errorf("resolve descriptor set: %w", err)
	}
	return schemaFromFiles(files)
}

// schemaFromFiles picks out the gateway methods the files declare. Methods
// that are missing fail when called.
func schemaFromFiles(files *protoregistry.Files) (*Schema, error) {
	s := &Schema{methods: make(map[string]methodTypes)}
	for _, full := range Methods() {
		service, name, _ := strings.Cut(strings.TrimPrefix(full, "/"), "/")
		desc, err := files.FindDescriptorByName(protoreflect.FullName(service))
		if err != nil {
			continue
		}
		sd, ok := desc.(protoreflect.ServiceDescriptor)
		if !ok {
			continue
		}
		md := sd.Methods().ByName(protoreflect.Name(name))
		if md == nil {
			continue
		}
		s.methods[full] = methodTypes{input: md.Input(), output: md.Output()}
	}
	if len(s.methods) == 0 {
		return nil, errors.New("descriptor set declares none of the gateway methods")
	}
	return s, nil
}

func builtinFileSet() *descriptorpb.FileDescriptorSet {
	return &descriptorpb.FileDescriptorSet{File: []*descriptorpb.FileDescriptorProto{
		usersFile(),
		accountsFile(),
		cardsFile(),
		operationsFile(),
	}}
}

func usersFile() *descriptorpb.FileDescriptorProto {
	const pkg = "gateway.users"
	return protoFile("gateway/users/users_gateway_service.proto", pkg,
		[]*descriptorpb.DescriptorProto{
			message("User", scalarField("id", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING)),
			message("CreateUserRequest",
				scalarField("email", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalarField("last_name", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalarField("first_name", 3, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalarField("middle_name", 4, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalarField("phone_number", 5, descriptorpb.FieldDescriptorProto_TYPE_STRING),
			),
			message("CreateUserResponse", typedField("user", 1, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, pkg, "User")),
		},
		nil,
		service("UsersGatewayService", pkg, "CreateUser"),
	)
}

func accountsFile() *descriptorpb.FileDescriptorProto {
	const pkg = "gateway.accounts"
	messages := []*descriptorpb.DescriptorProto{
		message("Account", scalarField("id", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING)),
	}
	var methods []string
	for _, t := range plan.AccountTypes() {
		name := "Open" + pascal(string(t)) + "Account"
		methods = append(methods, name)
		messages = append(messages,
			message(name+"Request", scalarField("user_id", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING)),
			message(name+"Response", typedField("account", 1, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, pkg, "Account")),
		)
	}
	return protoFile("gateway/accounts/accounts_gateway_service.proto", pkg, messages, nil,
		service("AccountsGatewayService", pkg, methods...))
}

func cardsFile() *descriptorpb.FileDescriptorProto {
	const pkg = "gateway.cards"
	messages := []*descriptorpb.DescriptorProto{
		message("Card", scalarField("id", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING)),
	}
	var methods []string
	for _, t := range plan.CardTypes() {
		name := "Issue" + pascal(string(t)) + "Card"
		methods = append(methods, name)
		messages = append(messages,
			message(name+"Request",
				scalarField("user_id", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalarField("account_id", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
			),
			message(name+"Response", typedField("card", 1, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, pkg, "Card")),
		)
	}
	return protoFile("gateway/cards/cards_gateway_service.proto", pkg, messages, nil,
		service("CardsGatewayService", pkg, methods...))
}

// operationStatuses lists the OperationStatus enum in number order.
var operationStatuses = []string{
	"OPERATION_STATUS_UNSPECIFIED",
	"OPERATION_STATUS_FAILED",
	"OPERATION_STATUS_COMPLETED",
	"OPERATION_STATUS_IN_PROGRESS",
}

func operationsFile() *descriptorpb.FileDescriptorProto {
	const pkg = "gateway.operations"
	status := &descriptorpb.EnumDescriptorProto{Name: proto.String("OperationStatus")}
	for i, name := range operationStatuses {
		status.Value = append(status.Value, &descriptorpb.EnumValueDescriptorProto{
			Name:   proto.String(name),
			Number: proto.Int32(int32(i)),
		})
	}
	messages := []*descriptorpb.DescriptorProto{
		message("Operation", scalarField("id", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING)),
	}
	var methods []string
	for _, k := range plan.OperationKinds() {
		name := "Make" + pascal(string(k)) + "Operation"
		methods = append(methods, name)
		request := message(name+"Request",
			typedField("status", 1, descriptorpb.FieldDescriptorProto_TYPE_ENUM, pkg, "OperationStatus"),
			scalarField("amount", 2, descriptorpb.FieldDescriptorProto_TYPE_DOUBLE),
			scalarField("card_id", 3, descriptorpb.FieldDescriptorProto_TYPE_STRING),
			scalarField("account_id", 4, descriptorpb.FieldDescriptorProto_TYPE_STRING),
		)
		if k == plan.OperationPurchase {
			request.Field = append(request.Field, scalarField("category", 5, descriptorpb.FieldDescriptorProto_TYPE_STRING))
		}
		messages = append(messages,
			request,
			message(name+"Response", typedField("operation", 1, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, pkg, "Operation")),
		)
	}
	return protoFile("gateway/operations/operations_gateway_service.proto", pkg, messages,
		[]*descriptorpb.EnumDescriptorProto{status},
		service("OperationsGatewayService", pkg, methods...))
}

func protoFile(name, pkg string, messages []*descriptorpb.DescriptorProto, enums []*descriptorpb.EnumDescriptorProto, svc *descriptorpb.ServiceDescriptorProto) *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:        proto.String(name),
		Package:     proto.String(pkg),
		Syntax:      proto.String("proto3"),
		MessageType: messages,
		EnumType:    enums,
		Service:     []*descriptorpb.ServiceDescriptorProto{svc},
	}
}

func message(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{Name: proto.String(name), Field: fields}
}

func scalarField(name string, number int32, kind descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(number),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   kind.Enum(),
	}
}

func typedField(name string, number int32, kind descriptorpb.FieldDescriptorProto_Type, pkg, typeName string) *descriptorpb.FieldDescriptorProto {
	field := scalarField(name, number, kind)
	field.TypeName = proto.String("." + pkg + "." + typeName)
	return field
}

func service(name, pkg string, methods ...string) *descriptorpb.ServiceDescriptorProto {
	svc := &descriptorpb.ServiceDescriptorProto{Name: proto.String(name)}
	for _, method := range methods {
		svc.Method = append(svc.Method, &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(method),
			InputType:  proto.String("." + pkg + "." + method + "Request"),
			OutputType: proto.String("." + pkg + "." + method + "Response"),
		})
	}
	return svc
}
