package tracker

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/shuliakovsky/hash-tracker/pkg/events"
	"github.com/shuliakovsky/hash-tracker/pkg/index"
	"github.com/shuliakovsky/hash-tracker/pkg/metrics"
	"github.com/shuliakovsky/hash-tracker/pkg/netaddr"
	"github.com/shuliakovsky/hash-tracker/pkg/peers"
	"github.com/shuliakovsky/hash-tracker/pkg/protocol"
	"github.com/shuliakovsky/hash-tracker/pkg/registry"
	"github.com/shuliakovsky/hash-tracker/pkg/secrets"
)

func New(x *index.Index, reg *registry.Registry, guard *secrets.Guard, hub *events.Hub, self string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Index: x, Servers: reg, Guard: guard, Events: hub, Self: self, Logger: logger}
}

// Handle processes one raw envelope received from the transport address from.
func (h *Handler) Handle(from string, raw []byte) Result {
	msg, err := protocol.Decode(raw)
	if err != nil {
		h.Logger.Warn("message_rejected", zap.String("from", from), zap.Int("size", len(raw)), zap.Error(err))
		metrics.Messages.WithLabelValues("invalid").Inc()
		return Result{Reply: h.reply(protocol.TypeError, statusOf(err), "")}
	}
	metrics.Messages.WithLabelValues(msg.Type.String()).Inc()

	var (
		body     string
		shutdown bool
	)
	switch msg.Type {
	case protocol.TypeGet:
		body, err = h.Index.Haves(payload(msg.Data))
	case protocol.TypePut:
		err = h.put(msg, from)
	case protocol.TypeWant:
		err = h.want(msg, from)
	case protocol.TypeHave:
		body, err = h.have(msg)
	case protocol.TypeNew:
		err = h.join(msg, from)
	case protocol.TypeDeco:
		err = h.leave(msg, from)
	case protocol.TypeExit:
		err = h.Guard.Check(payload(msg.Data))
		shutdown = err == nil
		h.Events.Publish("exit", "", from, statusOf(err).String())
	}

	st := statusOf(err)
	data := secrets.RedactString(logSafe(msg.Data))
	if msg.Type == protocol.TypeExit {
		data = "[HIDDEN]"
	}
	h.Logger.Info("message_handled",
		zap.String("type", msg.Type.String()),
		zap.String("from", from),
		zap.String("addr", msg.Addr),
		zap.String("data", data),
		zap.String("status", st.String()),
	)
	metrics.Hashes.Set(float64(h.Index.Len()))
	metrics.Servers.Set(float64(h.Servers.Len()))
	return Result{Reply: h.reply(msg.Type, st, body), Shutdown: shutdown}
}

func (h *Handler) put(msg protocol.Message, from string) error {
	hash := payload(msg.Data)
	ip, err := sender(msg, from)
	if err != nil {
		return err
	}
	err = h.Index.Put(hash, ip)
	if err == nil {
		h.Events.Publish("put", hash, ip, protocol.StatusOK.String())
		switch {
		case h.Relay == nil:
		case !relayFits(hash, ip):
			h.Logger.Debug("relay_skipped_too_large", zap.Int("hashLen", len(hash)), zap.String("ip", ip))
		default:
			h.Relay.Relay(hash, ip)
		}
	}
	return err
}

func (h *Handler) want(msg protocol.Message, from string) error {
	hash := payload(msg.Data)
	ip, err := sender(msg, from)
	if err != nil {
		return err
	}
	err = h.Index.Want(hash, ip)
	if err == nil {
		h.Events.Publish("want", hash, ip, protocol.StatusOK.String())
	}
	return err
}

// have merges "hash ip ip ..." into the holders of hash. Every address is
// checked before the index is touched.
func (h *Handler) have(msg protocol.Message) (string, error) {
	fields := strings.Fields(payload(msg.Data))
	if len(fields) < 2 {
		return "", errMalformedHave
	}
	hash := fields[0]
	if err := h.Index.ValidateHash(hash); err != nil {
		return "", err
	}
	ips := make([]string, 0, len(fields)-1)
	for _, f := range fields[1:] {
		ip, err := netaddr.NormalizeIPv6(f)
		if err != nil {
			return "", err
		}
		ips = append(ips, ip)
	}
	n, err := h.Index.Announce(hash, ips)
	if err != nil {
		return "", err
	}
	if n > 0 {
		h.Events.Publish("have", hash, strings.Join(ips, " "), protocol.StatusOK.String())
	}
	return strconv.Itoa(n), nil
}

func (h *Handler) join(msg protocol.Message, from string) error {
	addr, err := sender(msg, from)
	if err != nil {
		return err
	}
	if addr == h.Self {
		return errSelfJoin
	}
	err = h.Servers.Register(addr)
	switch {
	case err == nil:
		h.Events.Publish("server_new", "", addr, protocol.StatusOK.String())
	case errors.Is(err, registry.ErrFull):
		h.Logger.Warn("registry_full", zap.String("addr", addr), zap.Int("size", h.Servers.Len()))
	}
	return err
}

func (h *Handler) leave(msg protocol.Message, from string) error {
	addr, err := sender(msg, from)
	if err != nil {
		return err
	}
	err = h.Servers.Deregister(addr)
	if err == nil {
		h.Events.Publish("server_deco", "", addr, protocol.StatusOK.String())
	}
	return err
}

func (h *Handler) reply(t protocol.Type, st protocol.Status, body string) []byte {
	metrics.Replies.WithLabelValues(t.String(), st.String()).Inc()
	self := h.Self
	if len(self) >= protocol.AddrSize {
		self = ""
	}
	b, err := protocol.EncodeReply(t, self, st, body)
	if err != nil {
		// body is bounded by MaxIPs addresses, so this only fires on misconfiguration
		h.Logger.Error("reply_encode_error", zap.String("type", t.String()), zap.Error(err))
		b, _ = protocol.EncodeReply(t, "", protocol.StatusError, "")
	}
	return b
}

var (
	errMalformedHave = errors.New("HAVE needs a hash and at least one address")
	errSelfJoin      = fmt.Errorf("%w: own address", netaddr.ErrInvalidAddress)
)

// relayFits reports whether "hash ip" fits in one HAVE envelope.
func relayFits(hash, ip string) bool {
	return len(hash)+1+len(ip) <= protocol.MaxDataSize
}

// sender picks the envelope address, falling back to the transport address.
func sender(msg protocol.Message, from string) (string, error) {
	addr := msg.Addr
	if addr == "" {
		addr = from
	}
	return netaddr.NormalizeIPv6(addr)
}

// payload strips C-style terminators and surrounding blanks.
func payload(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(bytes.TrimSpace(b))
}

func statusOf(err error) protocol.Status {
	switch {
	case err == nil:
		return protocol.StatusOK
	case errors.Is(err, peers.ErrAlreadyPresent), errors.Is(err, registry.ErrAlreadyKnown):
		return protocol.StatusAlreadyPresent
	case errors.Is(err, registry.ErrFull):
		return protocol.StatusFull
	case errors.Is(err, secrets.ErrDenied):
		return protocol.StatusDenied
	case errors.Is(err, registry.ErrUnknown):
		return protocol.StatusUnknown
	case errors.Is(err, index.ErrInvalidHash):
		return protocol.StatusInvalidHash
	case errors.Is(err, netaddr.ErrInvalidAddress):
		return protocol.StatusInvalidAddress
	case errors.Is(err, protocol.ErrUnknownType):
		return protocol.StatusUnknownType
	case errors.Is(err, protocol.ErrTruncated),
		errors.Is(err, protocol.ErrTooLarge),
		errors.Is(err, protocol.ErrLengthMismatch),
		errors.Is(err, protocol.ErrMalformedAddress),
		errors.Is(err, errMalformedHave):
		return protocol.StatusMalformed
	default:
		return protocol.StatusError
	}
}
