package grpcgateway

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// fieldValue is one request field, keyed by its proto name. value is a
// string or a decimal.Decimal and is converted to the field's kind.
type fieldValue struct {
	name  string
	value any
}

func setFields(msg protoreflect.Message, values []fieldValue) error {
	fields := msg.Descriptor().Fields()
	for _, fv := range values {
		fd := fields.ByName(protoreflect.Name(fv.name))
		if fd == nil {
			return fmt.Errorf("%s has no field %q", msg.Descriptor().FullName(), fv.name)
		}
		v, err := protoValue(fd, fv.value)
		if err != nil {
			return err
		}
		msg.Set(fd, v)
	}
	return nil
}

func protoValue(fd protoreflect.FieldDescriptor, value any) (protoreflect.Value, error) {
	switch v := value.(type) {
	case string:
		switch fd.Kind() {
		case protoreflect.StringKind:
			return protoreflect.ValueOfString(v), nil
		case protoreflect.EnumKind:
			n, err := enumNumber(fd.Enum(), v)
			if err != nil {
				return protoreflect.Value{}, err
			}
			return protoreflect.ValueOfEnum(n), nil
		}
	case decimal.Decimal:
		switch fd.Kind() {
		case protoreflect.DoubleKind:
			return protoreflect.ValueOfFloat64(v.InexactFloat64()), nil
		case protoreflect.FloatKind:
			return protoreflect.ValueOfFloat32(float32(v.InexactFloat64())), nil
		case protoreflect.StringKind:
			return protoreflect.ValueOfString(v.StringFixed(2)), nil
		}
	}
	return protoreflect.Value{}, fmt.Errorf("field %s: cannot store %T in a %s field", fd.FullName(), value, fd.Kind())
}

// enumNumber finds name among the enum's values, either exactly or after the
// TYPE_NAME_ prefix proto enums carry, so "COMPLETED" matches
// OPERATION_STATUS_COMPLETED.
func enumNumber(ed protoreflect.EnumDescriptor, name string) (protoreflect.EnumNumber, error) {
	values := ed.Values()
	for i := range values.Len() {
		v := values.Get(i)
		if string(v.Name()) == name || strings.HasSuffix(string(v.Name()), "_"+name) {
			return v.Number(), nil
		}
	}
	return 0, fmt.Errorf("enum %s has no value %q", ed.FullName(), name)
}

// entityID reads msg.<entity>.id, the identifier every create response carries.
func entityID(msg protoreflect.Message, entity string) string {
	fd := msg.Descriptor().Fields().ByName(protoreflect.Name(entity))
	if fd == nil || fd.Kind() != protoreflect.MessageKind {
		return ""
	}
	nested := msg.Get(fd).Message()
	idField := nested.Descriptor().Fields().ByName("id")
	if idField == nil || idField.Kind() != protoreflect.StringKind {
		return ""
	}
	return nested.Get(idField).String()
}
