package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrEmptyFrame   = errors.New("protocol: empty frame")
	ErrUnknownEvent = errors.New("protocol: unknown event")
)

// Codec 连接级编解码：JSON 文本帧或 MessagePack 二进制帧
type Codec interface {
	Name() string
	Binary() bool
	Marshal(v any) ([]byte, error)
	Unmarshal(b []byte, v any) error
	wrap(t string, p []byte) ([]byte, error)
	unwrap(b []byte) (Envelope, error)
}

// Envelope 外层信封：t 为事件名，p 为尚未解码的载荷
type Envelope struct {
	T string
	P []byte
}

type jsonEnvelope struct {
	T string          `json:"t"`
	P json.RawMessage `json:"p"`
}

type msgpackEnvelope struct {
	T string             `msgpack:"t"`
	P msgpack.RawMessage `msgpack:"p"`
}

// JSON 默认编解码
var JSON Codec = jsonCodec{}

// Msgpack 二进制编解码（?codec=msgpack）
var Msgpack Codec = msgpackCodec{}

// CodecByName 未知名称回退 JSON
func CodecByName(name string) Codec {
	if name == Msgpack.Name() {
		return Msgpack
	}
	return JSON
}

type jsonCodec struct{}

func (jsonCodec) Name() string                    { return "json" }
func (jsonCodec) Binary() bool                    { return false }
func (jsonCodec) Marshal(v any) ([]byte, error)   { return json.Marshal(v) }
func (jsonCodec) Unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }

func (jsonCodec) wrap(t string, p []byte) ([]byte, error) {
	return json.Marshal(jsonEnvelope{T: t, P: p})
}

func (jsonCodec) unwrap(b []byte) (Envelope, error) {
	var e jsonEnvelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, err
	}
	return Envelope{T: e.T, P: e.P}, nil
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string                    { return "msgpack" }
func (msgpackCodec) Binary() bool                    { return true }
func (msgpackCodec) Marshal(v any) ([]byte, error)   { return msgpack.Marshal(v) }
func (msgpackCodec) Unmarshal(b []byte, v any) error { return msgpack.Unmarshal(b, v) }

func (msgpackCodec) wrap(t string, p []byte) ([]byte, error) {
	return msgpack.Marshal(&msgpackEnvelope{T: t, P: p})
}

func (msgpackCodec) unwrap(b []byte) (Envelope, error) {
	var e msgpackEnvelope
	if err := msgpack.Unmarshal(b, &e); err != nil {
		return Envelope{}, err
	}
	return Envelope{T: e.T, P: e.P}, nil
}

// Encode 先编码载荷，再套上信封
func Encode(c Codec, t string, payload any) ([]byte, error) {
	if t == "" {
		return nil, fmt.Errorf("encode: empty envelope type")
	}
	if payload == nil {
		return nil, fmt.Errorf("encode %s: nil payload", t)
	}
	pb, err := c.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", t, err)
	}
	return c.wrap(t, pb)
}

// EncodeEvent 按事件自身的名字编码
func EncodeEvent(c Codec, ev Event) ([]byte, error) {
	return Encode(c, ev.EventName(), ev)
}

func DecodeEnvelope(c Codec, b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, ErrEmptyFrame
	}
	env, err := c.unwrap(b)
	if err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

// DecodePayload 解出具体载荷；空载荷返回零值（例如 shoot{}）
func DecodePayload[T any](c Codec, env Envelope) (T, error) {
	var out T
	if len(env.P) == 0 {
		return out, nil
	}
	err := c.Unmarshal(env.P, &out)
	return out, err
}
