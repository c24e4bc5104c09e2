package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"go.bug.st/serial"

	"github.com/itohio/adcmon/pkg/config"
)

// UARTLimits is the band the sampling firmware can stream at 921600 baud.
var UARTLimits = Limits{MinRate: 100, MaxRate: 10_000}

// DefaultBaudRate is the firmware link baud rate.
const DefaultBaudRate = 921600

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{Name: name, Description: name})
	}

	return result, nil
}

// UART receives conversion codes streamed by the sampling firmware.
// Each line carries one burst of comma-separated decimal codes.
type UART struct {
	port    string
	maxCode uint16
	log     *slog.Logger
	open    func() (io.ReadCloser, error)
	codes   []uint16
}

var _ Source = (*UART)(nil)

// NewUART creates a UART source for the given port.
func NewUART(cfg config.SerialConfig, bitWidth int, log *slog.Logger) *UART {
	baud := cfg.BaudRate
	if baud == 0 {
		baud = DefaultBaudRate
	}
	if log == nil {
		log = slog.Default()
	}

	port := cfg.Port
	return &UART{
		port:    port,
		maxCode: uint16(1)<<uint(bitWidth) - 1,
		log:     log,
		open: func() (io.ReadCloser, error) {
			return serial.Open(port, &serial.Mode{BaudRate: baud})
		},
		codes: make([]uint16, 0, 256),
	}
}

// Limits implements Source.
func (u *UART) Limits() Limits {
	return UARTLimits
}

// Run implements Source. The port is opened per run and closed when ctx is done,
// which also unblocks the pending read.
func (u *UART) Run(ctx context.Context, emit func(code uint16)) error {
	conn, err := u.open()
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", u.port, err)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		if stop() {
			conn.Close()
		}
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		codes, err := parseLine(u.codes[:0], line, u.maxCode)
		if err != nil {
			u.log.Warn("failed to parse line", "line", line, "err", err)
			continue
		}
		for _, c := range codes {
			emit(c)
		}
		u.codes = codes
	}

	if ctx.Err() != nil {
		return nil
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading from serial port %s: %w", u.port, err)
	}
	return fmt.Errorf("serial port %s: %w", u.port, io.ErrUnexpectedEOF)
}

// Close implements Source.
func (u *UART) Close() error {
	return nil
}

// parseLine parses a line from the firmware into codes appended to dst.
// Format: c1,c2,...,cN
// Example: 512,513,511,512
func parseLine(dst []uint16, line string, maxCode uint16) ([]uint16, error) {
	dst = dst[:0]
	for i, part := range strings.Split(line, ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 16)
		if err != nil {
			return dst[:0], fmt.Errorf("invalid code at %d: %w", i, err)
		}
		if v > uint64(maxCode) {
			return dst[:0], fmt.Errorf("code out of range at %d: %d (max %d)", i, v, maxCode)
		}
		dst = append(dst, uint16(v))
	}
	return dst, nil
}
