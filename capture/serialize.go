package capture

import (
	"bytes"
	stdjson "encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	E "github.com/sagernet/sing/common/exceptions"
	F "github.com/sagernet/sing/common/format"
	"github.com/sagernet/sing/common/json"
)

// Unserializable replaces an argument that could not be rendered at all.
const Unserializable = "[unserializable]"

// ArgKind is the closed set of argument shapes the serializer knows.
type ArgKind uint8

const (
	ArgPrimitive ArgKind = iota
	ArgStructured
	ArgUnserializable
)

func (k ArgKind) String() string {
	switch k {
	case ArgPrimitive:
		return "primitive"
	case ArgStructured:
		return "structured"
	case ArgUnserializable:
		return "unserializable"
	default:
		return "unknown"
	}
}

var marshalerType = reflect.TypeOf((*stdjson.Marshaler)(nil)).Elem()

func Classify(arg any) ArgKind {
	switch arg.(type) {
	case nil, error, fmt.Stringer:
		return ArgPrimitive
	case stdjson.Marshaler:
		return ArgStructured
	}
	switch reflect.TypeOf(arg).Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return ArgUnserializable
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array, reflect.Pointer, reflect.Interface:
		return ArgStructured
	default:
		return ArgPrimitive
	}
}

// FormatArgs renders console arguments into one line, separated by a
// single space.
func FormatArgs(args ...any) string {
	var builder strings.Builder
	for i, arg := range args {
		if i > 0 {
			builder.WriteByte(' ')
		}
		builder.WriteString(FormatArg(arg))
	}
	return builder.String()
}

// FormatArg renders a single argument. It never panics.
func FormatArg(arg any) (text string) {
	defer func() {
		if recover() != nil {
			text = Unserializable
		}
	}()
	switch Classify(arg) {
	case ArgPrimitive:
		return formatPrimitive(arg)
	case ArgUnserializable:
		return typePlaceholder(reflect.TypeOf(arg))
	}
	content, err := safeMarshal(arg)
	if err == nil {
		return string(content)
	}
	content, err = formatPruned(arg)
	if err != nil {
		return Unserializable
	}
	return string(content)
}

func formatPrimitive(arg any) string {
	switch value := arg.(type) {
	case nil:
		return "<nil>"
	case error:
		return value.Error()
	case fmt.Stringer:
		return value.String()
	default:
		return F.ToString(arg)
	}
}

func typePlaceholder(argType reflect.Type) string {
	return "[" + argType.String() + "]"
}

func safeMarshal(value any) (content []byte, err error) {
	defer func() {
		if cause := recover(); cause != nil {
			err = E.New("marshal panic: ", cause)
		}
	}()
	return json.Marshal(value)
}

// formatPruned serializes value with a fresh reference tracker. A reference
// seen a second time is omitted, as are members JSON cannot represent.
func formatPruned(value any) ([]byte, error) {
	tracker := &refTracker{visited: make(map[refKey]struct{})}
	pruned, ok := tracker.prune(reflect.ValueOf(value))
	if !ok {
		return nil, E.New("argument pruned entirely")
	}
	return safeMarshal(pruned)
}

type refKey struct {
	pointer uintptr
	typ     reflect.Type
}

type refTracker struct {
	visited map[refKey]struct{}
}

// enter reports whether the reference held by value is seen for the first
// time.
func (t *refTracker) enter(value reflect.Value) bool {
	key := refKey{value.Pointer(), value.Type()}
	if key.pointer == 0 {
		return true
	}
	if _, loaded := t.visited[key]; loaded {
		return false
	}
	t.visited[key] = struct{}{}
	return true
}

func (t *refTracker) prune(value reflect.Value) (any, bool) {
	if !value.IsValid() {
		return nil, true
	}
	if value.Type().Implements(marshalerType) && value.CanInterface() {
		if value.Kind() == reflect.Pointer && value.IsNil() {
			return nil, true
		}
		content, err := safeMarshal(value.Interface())
		if err != nil {
			return nil, false
		}
		return json.RawMessage(content), true
	}
	switch value.Kind() {
	case reflect.Bool:
		return value.Bool(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return value.Uint(), true
	case reflect.Float32, reflect.Float64:
		content, err := safeMarshal(value.Float())
		if err != nil {
			return nil, false
		}
		return json.RawMessage(content), true
	case reflect.String:
		return value.String(), true
	case reflect.Interface:
		if value.IsNil() {
			return nil, true
		}
		return t.prune(value.Elem())
	case reflect.Pointer:
		if value.IsNil() {
			return nil, true
		}
		if !t.enter(value) {
			return nil, false
		}
		return t.prune(value.Elem())
	case reflect.Map:
		if value.IsNil() {
			return nil, true
		}
		if !t.enter(value) {
			return nil, false
		}
		return t.pruneMap(value), true
	case reflect.Slice:
		if value.IsNil() {
			return nil, true
		}
		if value.Type().Elem().Kind() == reflect.Uint8 {
			return value.Bytes(), true
		}
		if value.Len() > 0 && !t.enter(value) {
			return nil, false
		}
		return t.pruneList(value), true
	case reflect.Array:
		return t.pruneList(value), true
	case reflect.Struct:
		object := make(orderedObject, 0, value.NumField())
		t.pruneStruct(value, &object)
		return object, true
	default:
		return nil, false
	}
}

func (t *refTracker) pruneList(value reflect.Value) []any {
	list := make([]any, value.Len())
	for i := range list {
		// omitted elements keep their position as null
		list[i], _ = t.prune(value.Index(i))
	}
	return list
}

func (t *refTracker) pruneMap(value reflect.Value) orderedObject {
	keys := value.MapKeys()
	names := make([]string, len(keys))
	for i, key := range keys {
		if key.Kind() == reflect.String {
			names[i] = key.String()
		} else {
			names[i] = fmt.Sprint(key)
		}
	}
	order := make([]int, len(keys))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return names[order[a]] < names[order[b]]
	})
	object := make(orderedObject, 0, len(keys))
	for _, index := range order {
		member, ok := t.prune(value.MapIndex(keys[index]))
		if !ok {
			continue
		}
		object = append(object, orderedField{names[index], member})
	}
	return object
}

func (t *refTracker) pruneStruct(value reflect.Value, object *orderedObject) {
	structType := value.Type()
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		name, omitEmpty, skip := parseFieldTag(field)
		if skip {
			continue
		}
		fieldValue := value.Field(i)
		if field.Anonymous && name == "" {
			embedded := fieldValue
			if embedded.Kind() == reflect.Pointer {
				if embedded.IsNil() {
					continue
				}
				embedded = embedded.Elem()
			}
			if embedded.Kind() == reflect.Struct {
				t.pruneStruct(embedded, object)
				continue
			}
		}
		if !field.IsExported() {
			continue
		}
		if omitEmpty && fieldValue.IsZero() {
			continue
		}
		if name == "" {
			name = field.Name
		}
		member, ok := t.prune(fieldValue)
		if !ok {
			continue
		}
		*object = append(*object, orderedField{name, member})
	}
}

func parseFieldTag(field reflect.StructField) (name string, omitEmpty bool, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name, options, _ := strings.Cut(tag, ",")
	for options != "" {
		var option string
		option, options, _ = strings.Cut(options, ",")
		if option == "omitempty" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

type orderedField struct {
	name  string
	value any
}

// orderedObject is a JSON object that keeps member order.
type orderedObject []orderedField

func (o orderedObject) MarshalJSON() ([]byte, error) {
	var buffer bytes.Buffer
	buffer.WriteByte('{')
	for i, field := range o {
		if i > 0 {
			buffer.WriteByte(',')
		}
		key, err := json.Marshal(field.name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(field.value)
		if err != nil {
			return nil, E.Cause(err, "marshal member ", field.name)
		}
		buffer.Write(key)
		buffer.WriteByte(':')
		buffer.Write(value)
	}
	buffer.WriteByte('}')
	return buffer.Bytes(), nil
}
