package protocol

import (
	"errors"
	"fmt"
)

// Envelope layout (big-endian):
//
//	[0]      type
//	[1:3]    data length
//	[3:49]   textual IPv6 address, NUL padded
//	[49:]    data
const (
	TypeSize    = 1
	LengthSize  = 2
	AddrSize    = 46
	HeaderSize  = TypeSize + LengthSize + AddrSize
	MaxDataSize = 1000
	MaxSize     = HeaderSize + MaxDataSize // 1049
)

type Type uint8

const (
	TypeError Type = iota // replies only
	TypeGet
	TypePut
	TypeWant
	TypeHave
	TypeExit
	TypeNew
	TypeDeco
)

var typeNames = [...]string{"ERROR", "GET", "PUT", "WANT", "HAVE", "EXIT", "NEW", "DECO"}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("TYPE(%d)", uint8(t))
}

// IsRequest reports whether t is one of the seven request kinds.
func (t Type) IsRequest() bool { return t >= TypeGet && t <= TypeDeco }

// Status is the first data byte of every reply.
type Status uint8

const (
	StatusOK Status = iota
	StatusAlreadyPresent
	StatusFull
	StatusDenied
	StatusUnknown
	StatusInvalidHash
	StatusInvalidAddress
	StatusMalformed
	StatusUnknownType
	StatusError
)

var statusNames = [...]string{
	"ok", "already_present", "full", "denied", "unknown",
	"invalid_hash", "invalid_address", "malformed", "unknown_type", "error",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

var (
	ErrTruncated        = errors.New("message shorter than header")
	ErrTooLarge         = errors.New("message exceeds envelope bound")
	ErrLengthMismatch   = errors.New("declared length does not match payload")
	ErrUnknownType      = errors.New("unknown message type")
	ErrMalformedAddress = errors.New("malformed address field")
	ErrEmptyReply       = errors.New("reply carries no status")
)

// Message is one decoded envelope.
type Message struct {
	Type Type
	Addr string
	Data []byte
}

// Reply is a decoded response envelope.
type Reply struct {
	Type   Type
	Addr   string
	Status Status
	Body   string
}
