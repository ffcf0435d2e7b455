package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Encode serializes m. Requests must carry a known type; replies may use TypeError.
func Encode(m Message) ([]byte, error) {
	if !m.Type.IsRequest() && m.Type != TypeError {
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, m.Type)
	}
	if len(m.Addr) >= AddrSize || bytes.IndexByte([]byte(m.Addr), 0) >= 0 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedAddress, m.Addr)
	}
	if len(m.Data) > MaxDataSize {
		return nil, fmt.Errorf("%w: data %d bytes", ErrTooLarge, len(m.Data))
	}
	out := make([]byte, HeaderSize+len(m.Data))
	out[0] = byte(m.Type)
	binary.BigEndian.PutUint16(out[1:3], uint16(len(m.Data)))
	copy(out[3:HeaderSize], m.Addr)
	copy(out[HeaderSize:], m.Data)
	return out, nil
}

// Decode parses a complete request envelope.
func Decode(b []byte) (Message, error) {
	m, err := decode(b)
	if err != nil {
		return m, err
	}
	if !m.Type.IsRequest() {
		return m, fmt.Errorf("%w: %d", ErrUnknownType, m.Type)
	}
	return m, nil
}

func decode(b []byte) (Message, error) {
	if len(b) < HeaderSize {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrTruncated, len(b))
	}
	if len(b) > MaxSize {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(b))
	}
	m := Message{Type: Type(b[0])}
	n := int(binary.BigEndian.Uint16(b[1:3]))
	if HeaderSize+n > MaxSize {
		return m, fmt.Errorf("%w: declared %d bytes", ErrTooLarge, HeaderSize+n)
	}
	if HeaderSize+n != len(b) {
		return m, fmt.Errorf("%w: declared %d, got %d", ErrLengthMismatch, n, len(b)-HeaderSize)
	}
	addr, err := decodeAddr(b[3:HeaderSize])
	if err != nil {
		return m, err
	}
	m.Addr = addr
	m.Data = append([]byte(nil), b[HeaderSize:]...)
	return m, nil
}

func decodeAddr(field []byte) (string, error) {
	end := bytes.IndexByte(field, 0)
	if end < 0 {
		// space padded
		s := bytes.TrimRight(field, " ")
		if len(s) == len(field) {
			return "", fmt.Errorf("%w: not terminated", ErrMalformedAddress)
		}
		return string(bytes.TrimSpace(s)), nil
	}
	for _, c := range field[end:] {
		if c != 0 {
			return "", fmt.Errorf("%w: bytes after terminator", ErrMalformedAddress)
		}
	}
	return string(bytes.TrimSpace(field[:end])), nil
}

// ReadMessage reads one envelope from a stream. The declared length is checked
// before the payload is read, so oversized frames never get buffered.
func ReadMessage(r io.Reader) ([]byte, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := int(binary.BigEndian.Uint16(hdr[1:3]))
	if n > MaxDataSize {
		return hdr[:], fmt.Errorf("%w: declared %d bytes", ErrTooLarge, HeaderSize+n)
	}
	buf := make([]byte, HeaderSize+n)
	copy(buf, hdr[:])
	if _, err := io.ReadFull(r, buf[HeaderSize:]); err != nil {
		return nil, err
	}
	return buf, nil
}

// EncodeReply builds a reply envelope: status byte followed by body.
func EncodeReply(t Type, addr string, st Status, body string) ([]byte, error) {
	data := make([]byte, 0, 1+len(body))
	data = append(data, byte(st))
	data = append(data, body...)
	return Encode(Message{Type: t, Addr: addr, Data: data})
}

func DecodeReply(b []byte) (Reply, error) {
	m, err := decode(b)
	if err != nil {
		return Reply{}, err
	}
	if !m.Type.IsRequest() && m.Type != TypeError {
		return Reply{}, fmt.Errorf("%w: %d", ErrUnknownType, m.Type)
	}
	if len(m.Data) == 0 {
		return Reply{}, ErrEmptyReply
	}
	return Reply{Type: m.Type, Addr: m.Addr, Status: Status(m.Data[0]), Body: string(m.Data[1:])}, nil
}
