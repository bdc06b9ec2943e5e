package printer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/angelmondragon/pos-backend/pkg/config"
)

const (
	defaultPort    = "9100"
	defaultTimeout = 5 * time.Second
)

// ErrDisabled is returned when no printer address is configured.
var ErrDisabled = errors.New("server printing disabled")

// Printer sends a rendered job to a device.
type Printer interface {
	Print(ctx context.Context, job []byte) error
}

type dialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// NetworkPrinter writes raw jobs to a JetDirect style TCP port.
type NetworkPrinter struct {
	addr    string
	timeout time.Duration
	dial    dialFunc
}

// New builds a printer from config. It returns ErrDisabled when no address is set.
func New(cfg config.PrinterConfig) (*NetworkPrinter, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}
	addr, err := normalizeAddr(cfg.Addr)
	if err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	dialer := &net.Dialer{Timeout: timeout}
	return &NetworkPrinter{addr: addr, timeout: timeout, dial: dialer.DialContext}, nil
}

// Addr is the resolved host:port jobs are sent to.
func (p *NetworkPrinter) Addr() string { return p.addr }

func (p *NetworkPrinter) Print(ctx context.Context, job []byte) error {
	if len(job) == 0 {
		return errors.New("empty print job")
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dial(ctx, "tcp", p.addr)
	if err != nil {
		return fmt.Errorf("dial printer %s: %w", p.addr, err)
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set printer deadline: %w", err)
	}
	if _, err := conn.Write(job); err != nil {
		return fmt.Errorf("write to printer %s: %w", p.addr, err)
	}
	return nil
}

func normalizeAddr(raw string) (string, error) {
	if _, _, err := net.SplitHostPort(raw); err == nil {
		return raw, nil
	}
	host := raw
	if host == "" {
		return "", errors.New("printer host is required")
	}
	return net.JoinHostPort(host, defaultPort), nil
}
