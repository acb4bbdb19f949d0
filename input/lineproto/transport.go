package lineproto

import (
	"context"
	"io"
	"net"
	"strconv"
	"time"

	"go.bug.st/serial"
)

// DefaultBaudRate is used by SerialDialer when none is configured
const DefaultBaudRate = 115200

// Dialer opens the byte stream a session runs over
type Dialer interface {
	Dial(ctx context.Context) (io.ReadWriteCloser, error)
	String() string
}

// TCPDialer connects to a decoder over TCP
type TCPDialer struct {
	Address string        // host:port
	Timeout time.Duration // zero means no timeout beyond ctx
}

// NewTCPDialer returns a dialer for host:port
func NewTCPDialer(host string, port int) TCPDialer {
	return TCPDialer{Address: net.JoinHostPort(host, strconv.Itoa(port))}
}

// Dial implements Dialer
func (d TCPDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	nd := net.Dialer{Timeout: d.Timeout}
	return nd.DialContext(ctx, "tcp", d.Address)
}

func (d TCPDialer) String() string {
	return "tcp://" + d.Address
}

// SerialDialer opens a decoder attached to a serial or USB port
type SerialDialer struct {
	PortPath string
	BaudRate int
}

// Dial implements Dialer. The serial open is not cancellable; ctx is checked first.
func (d SerialDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	baud := d.BaudRate
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(d.PortPath, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, err
	}
	return port, nil
}

func (d SerialDialer) String() string {
	return "serial://" + d.PortPath
}

// SerialPorts lists the serial ports present on this machine
func SerialPorts() ([]string, error) {
	return serial.GetPortsList()
}
