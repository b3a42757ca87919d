package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nerrad567/intravision-core/internal/entity"
	"github.com/nerrad567/intravision-core/internal/system"
)

// Codec encodes and decodes wire payloads.
//
// The registry is only consulted by Decode; a Codec with a nil registry
// can still encode, and decodes every typed payload as ErrUnknownType.
type Codec struct {
	registry *entity.Registry
}

// NewCodec creates a codec that resolves payload types through reg.
func NewCodec(reg *entity.Registry) *Codec {
	return &Codec{registry: reg}
}

// Encode converts v into a JSON-ready value.
//
// Entities become a map of PascalCase field names, omitting hidden and
// excluded fields and evaluating computed ones. Systems become
// {Id, Name, Devices, Services}. Messages become {Event, Data, SystemID}.
// Slices and maps are encoded element by element; anything else is
// returned unchanged.
func (c *Codec) Encode(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case Message:
		return c.encodeMessage(t)
	case *Message:
		if t == nil {
			return nil, nil
		}
		return c.encodeMessage(*t)
	case *system.System:
		if t == nil {
			return nil, nil
		}
		return c.encodeSystem(t)
	case entity.Entity:
		return c.encodeEntity(t)
	case []*system.System:
		out := make([]any, 0, len(t))
		for _, s := range t {
			enc, err := c.Encode(s)
			if err != nil {
				return nil, err
			}
			out = append(out, enc)
		}
		return out, nil
	case []entity.Entity:
		return c.encodeEntities(t)
	case []any:
		out := make([]any, 0, len(t))
		for _, item := range t {
			enc, err := c.Encode(item)
			if err != nil {
				return nil, err
			}
			out = append(out, enc)
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			enc, err := c.Encode(item)
			if err != nil {
				return nil, err
			}
			out[k] = enc
		}
		return out, nil
	default:
		return v, nil
	}
}

// Marshal encodes v and serialises it as JSON.
func (c *Codec) Marshal(v any) ([]byte, error) {
	enc, err := c.Encode(v)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(enc)
	if err != nil {
		return nil, fmt.Errorf("marshalling payload: %w", err)
	}
	return data, nil
}

func (c *Codec) encodeMessage(m Message) (map[string]any, error) {
	out := map[string]any{
		"Event":    m.Event,
		"SystemID": m.SystemID,
	}
	if m.Data != nil {
		data, err := c.Encode(m.Data)
		if err != nil {
			return nil, fmt.Errorf("encoding %s data: %w", m.Event, err)
		}
		out["Data"] = data
	}
	return out, nil
}

func (c *Codec) encodeSystem(s *system.System) (map[string]any, error) {
	devices, err := c.encodeEntities(s.Devices())
	if err != nil {
		return nil, err
	}
	services, err := c.encodeEntities(s.Services())
	if err != nil {
		return nil, err
	}
	return map[string]any{
		KeyID:      s.ID(),
		KeyName:    s.Name(),
		"Devices":  devices,
		"Services": services,
	}, nil
}

func (c *Codec) encodeEntities(list []entity.Entity) ([]any, error) {
	out := make([]any, 0, len(list))
	for _, e := range list {
		enc, err := c.encodeEntity(e)
		if err != nil {
			return nil, err
		}
		out = append(out, enc)
	}
	return out, nil
}

func (c *Codec) encodeEntity(e entity.Entity) (map[string]any, error) {
	fields := e.Schema().Fields()
	out := make(map[string]any, len(fields)+3)
	out[KeyID] = e.ID()
	out[KeyName] = e.Name()
	out[KeyType] = e.Type()

	for _, f := range fields {
		if !f.Serializable || e.IsExcluded(f.Name) {
			continue
		}
		v, _ := e.Property(f.Name)
		enc, err := c.Encode(v)
		if err != nil {
			return nil, fmt.Errorf("encoding %s.%s: %w", e.Name(), f.Name, err)
		}
		out[f.Wire] = enc
	}
	return out, nil
}

// Decode rebuilds a value from a decoded JSON object.
//
// Nested objects and arrays are decoded first. If the object has a Type
// key, the registered constructor for that type is called with Name and
// every other schema field is assigned with SetField: no type check and no
// update notification. Id, Name, and Type are not re-applied; read-only
// computed and unknown keys are ignored. Keys resolve through the schema's
// wire table, so the lookup is the exact inverse of the encoded names. Objects without Type are returned as maps.
//
// Returns ErrUnknownType for an unregistered Type and ErrMalformedPayload
// for a missing Name or a non-string Type.
func (c *Codec) Decode(fields map[string]any) (any, error) {
	decoded := make(map[string]any, len(fields))
	for k, v := range fields {
		dv, err := c.decodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", k, err)
		}
		decoded[k] = dv
	}

	rawType, typed := decoded[KeyType]
	if !typed {
		return decoded, nil
	}
	typ, ok := rawType.(string)
	if !ok || typ == "" {
		return nil, fmt.Errorf("%w: Type must be a non-empty string", ErrMalformedPayload)
	}
	name, ok := decoded[KeyName].(string)
	if !ok || name == "" {
		return nil, fmt.Errorf("%w: %s payload has no Name", ErrMalformedPayload, typ)
	}

	e, err := c.construct(typ, name)
	if err != nil {
		return nil, err
	}

	schema := e.Schema()
	for k, v := range decoded {
		if IsIdentityKey(k) {
			continue
		}
		f, ok := schema.FieldByWire(k)
		if !ok || !f.Settable() {
			continue
		}
		if err := e.SetField(f.Name, v); err != nil {
			return nil, fmt.Errorf("populating %s.%s: %w", name, f.Name, err)
		}
	}
	return e, nil
}

func (c *Codec) construct(typ, name string) (entity.Entity, error) {
	if c.registry == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typ)
	}
	e, err := c.registry.New(typ, name)
	if err != nil {
		if errors.Is(err, entity.ErrUnknownType) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownType, typ)
		}
		return nil, fmt.Errorf("constructing %s %q: %w", typ, name, err)
	}
	return e, nil
}

func (c *Codec) decodeValue(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		return c.Decode(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			dv, err := c.decodeValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = dv
		}
		return out, nil
	default:
		return v, nil
	}
}

// DecodeMessage parses an inbound text frame.
//
// Event is required. SystemID defaults to "" and Data to nil; when Data is
// an object or array it is passed through Decode.
func (c *Codec) DecodeMessage(data []byte) (Message, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if raw == nil {
		return Message{}, fmt.Errorf("%w: message is not an object", ErrMalformedPayload)
	}

	event, ok := raw["Event"].(string)
	if !ok || event == "" {
		return Message{}, fmt.Errorf("%w: message has no Event", ErrMalformedPayload)
	}

	msg := Message{Event: event}
	if id, present := raw["SystemID"]; present && id != nil {
		s, ok := id.(string)
		if !ok {
			return Message{}, fmt.Errorf("%w: SystemID must be a string", ErrMalformedPayload)
		}
		msg.SystemID = s
	}

	if d, present := raw["Data"]; present && d != nil {
		dv, err := c.decodeValue(d)
		if err != nil {
			return Message{}, err
		}
		msg.Data = dv
	}
	return msg, nil
}
