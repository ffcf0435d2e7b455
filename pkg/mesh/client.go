package mesh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/net/proxy"

	"github.com/shuliakovsky/hash-tracker/pkg/protocol"
)

// ErrNotSent marks failures that happened before anything reached the sibling.
var ErrNotSent = errors.New("envelope not sent")

// StatusError is returned when a sibling answers with anything but OK.
type StatusError struct {
	Type   protocol.Type
	Status protocol.Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Type, e.Status)
}

// Client talks to sibling servers, which all listen on the same port.
type Client struct {
	Port    uint16
	Self    string // put in the address slot of outgoing envelopes
	Timeout time.Duration
	dialer  proxy.ContextDialer
}

func NewClient(port uint16, self string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{Port: port, Self: self, Timeout: timeout, dialer: &net.Dialer{}}
}

// UseSOCKS5 routes sibling traffic through a SOCKS5 proxy, e.g. a local Tor daemon.
func (c *Client) UseSOCKS5(addr string) error {
	d, err := proxy.SOCKS5("tcp", addr, nil, &net.Dialer{})
	if err != nil {
		return err
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return fmt.Errorf("socks5 %s: dialer has no context support", addr)
	}
	c.dialer = cd
	return nil
}

// Send delivers one envelope to addr and waits for the reply.
func (c *Client) Send(ctx context.Context, addr string, m protocol.Message) (protocol.Reply, error) {
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return protocol.Reply{}, fmt.Errorf("%w: sibling %q: %w", ErrNotSent, addr, err)
	}
	raw, err := protocol.Encode(m)
	if err != nil {
		return protocol.Reply{}, fmt.Errorf("%w: %w", ErrNotSent, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	conn, err := c.dialer.DialContext(ctx, "tcp", netip.AddrPortFrom(ip, c.Port).String())
	if err != nil {
		return protocol.Reply{}, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	if _, err := conn.Write(raw); err != nil {
		return protocol.Reply{}, fmt.Errorf("write %s: %w", addr, err)
	}
	resp, err := protocol.ReadMessage(conn)
	if err != nil {
		return protocol.Reply{}, fmt.Errorf("read %s: %w", addr, err)
	}
	return protocol.DecodeReply(resp)
}

func (c *Client) expectOK(ctx context.Context, addr string, m protocol.Message, alsoOK ...protocol.Status) error {
	r, err := c.Send(ctx, addr, m)
	if err != nil {
		return err
	}
	if r.Status == protocol.StatusOK {
		return nil
	}
	for _, st := range alsoOK {
		if r.Status == st {
			return nil
		}
	}
	return &StatusError{Type: m.Type, Status: r.Status}
}

// Announce registers us with the sibling at addr. Being already known counts as success.
func (c *Client) Announce(ctx context.Context, addr string) error {
	return c.expectOK(ctx, addr, protocol.Message{Type: protocol.TypeNew, Addr: c.Self}, protocol.StatusAlreadyPresent)
}

// Join announces us to addr, retrying transport failures with exponential
// backoff until maxElapsed. A refusal from the sibling is final.
func (c *Client) Join(ctx context.Context, addr string, maxElapsed time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = maxElapsed

	return backoff.Retry(func() error {
		err := c.Announce(ctx, addr)
		var se *StatusError
		if errors.As(err, &se) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx))
}

// Leave tells the sibling at addr to forget us.
func (c *Client) Leave(ctx context.Context, addr string) error {
	return c.expectOK(ctx, addr, protocol.Message{Type: protocol.TypeDeco, Addr: c.Self}, protocol.StatusUnknown)
}

// Relay forwards "ip has hash" to the sibling at addr as a HAVE.
func (c *Client) Relay(ctx context.Context, addr, hash, ip string) error {
	return c.expectOK(ctx, addr, protocol.Message{
		Type: protocol.TypeHave,
		Addr: c.Self,
		Data: []byte(hash + " " + ip),
	})
}

// Get asks the sibling at addr for the holders of hash.
func (c *Client) Get(ctx context.Context, addr, hash string) (string, error) {
	r, err := c.Send(ctx, addr, protocol.Message{Type: protocol.TypeGet, Addr: c.Self, Data: []byte(hash)})
	if err != nil {
		return "", err
	}
	if r.Status != protocol.StatusOK {
		return "", &StatusError{Type: protocol.TypeGet, Status: r.Status}
	}
	return r.Body, nil
}
