package serial

import (
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sys/unix"
)

// Parity selects the parity mode applied to the line at open time.
type Parity int

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

// Direction selects which readiness condition Poll waits for.
type Direction int

const (
	Readable Direction = iota
	Writable
)

// PollResult classifies the outcome of one readiness poll.
type PollResult int

const (
	// PollReady means the requested direction (or an error/hangup
	// condition) is ready; the returned revents mask says which.
	PollReady PollResult = iota
	// PollTimeout means nothing became ready within the bounded wait.
	// This is the normal steady-state outcome on an idle line.
	PollTimeout
	// PollInterrupted means the wait was cut short by a signal. The
	// caller should simply poll again; it is never an error.
	PollInterrupted
	// PollError means the poll call itself failed.
	PollError
)

// Receiver consumes bytes read off the line, one call per byte, strictly
// in arrival order. Implementations must not block the transport.
type Receiver interface {
	Feed(b byte)
}

// ReceiverFunc adapts a plain function to the Receiver interface.
type ReceiverFunc func(b byte)

func (f ReceiverFunc) Feed(b byte) { f(b) }

// Reporter receives (operation, error) pairs for every failure the
// transport encounters. It is purely observational; the transport stays
// usable after every reported error.
type Reporter interface {
	Report(op string, err error)
}

// ReporterFunc adapts a plain function to the Reporter interface.
type ReporterFunc func(op string, err error)

func (f ReporterFunc) Report(op string, err error) { f(op, err) }

var (
	ErrNotOpen     = errors.New("serial: port not open")
	ErrAlreadyOpen = errors.New("serial: port already open")
	ErrBadConfig   = errors.New("serial: unsupported line configuration")
)

// OpError is the failure of a single named step (open, isatty, tcgetattr,
// tcsetattr, poll, ioctl, read, write). Err is usually a syscall.Errno.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string { return fmt.Sprintf("serial %s: %v", e.Op, e.Err) }
func (e *OpError) Unwrap() error { return e.Err }

// Config holds the line parameters committed at open time. The line is
// configured once; changing parameters requires Close followed by Open.
type Config struct {
	Device   string
	BaudRate int
	Parity   Parity
	DataBits int           // only 8 is supported; 0 means 8
	StopBits int           // 1 or 2; 0 means 1
	PollWait time.Duration // bounded wait per poll; 0 means 500ms
}

// Transport owns at most one open serial device. It is driven from a
// single goroutine; the only blocking point is the bounded wait inside
// Poll. Construct with New, one value per port.
type Transport struct {
	fd       int
	config   Config
	receiver Receiver
	reporter Reporter
	poll     func(fds []unix.PollFd, timeout int) (int, error)
}

// New returns a closed Transport. The receiver is fed every byte read by
// DriveOnce; the reporter, if non-nil, sees every failure.
func New(receiver Receiver, reporter Reporter) *Transport {
	return &Transport{
		fd:       -1,
		receiver: receiver,
		reporter: reporter,
		poll:     unix.Poll,
	}
}

// DevicePath resolves a numeric port index to the platform device path.
func DevicePath(index uint) string {
	return fmt.Sprintf("/dev/ttyS%d", index)
}

// OpenIndex opens the numbered platform serial device, /dev/ttyS<index>.
func (t *Transport) OpenIndex(index uint, cfg Config) error {
	cfg.Device = DevicePath(index)
	return t.Open(cfg)
}

// Open opens cfg.Device for raw non-blocking I/O and commits the line
// parameters. On any failing step the transport remains closed and the
// returned *OpError names the step. Open on an already-open transport
// fails; reconfiguration requires Close first.
func (t *Transport) Open(cfg Config) error {
	if t.fd >= 0 {
		return &OpError{Op: "open", Err: ErrAlreadyOpen}
	}
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return &OpError{Op: "open", Err: err}
	}
	baud := baudBits(cfg.BaudRate)

	fd, err := unix.Open(cfg.Device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0666)
	if err != nil {
		return t.openFailed(fd, "open", err)
	}

	tio, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		if err == unix.ENOTTY {
			return t.openFailed(fd, "isatty", err)
		}
		return t.openFailed(fd, "tcgetattr", err)
	}

	// Raw mode: no canonical processing, echo, signals or extended input
	tio.Lflag &^= unix.ICANON | unix.ECHO | unix.ECHOE | unix.ECHOK |
		unix.ECHONL | unix.ECHOCTL | unix.ECHOKE | unix.ISIG | unix.IEXTEN
	// Raw output
	tio.Oflag &^= unix.OPOST | unix.OCRNL | unix.ONLCR | unix.ONLRET |
		unix.ONOCR | unix.OFILL | unix.OLCUC
	// No software flow control or CR/NL mapping; do check input parity
	// and strip the parity bit off incoming data
	tio.Iflag &^= unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IGNBRK |
		unix.IUCLC | unix.PARMRK | unix.BRKINT | unix.IXON | unix.IXOFF | unix.IXANY
	tio.Iflag |= unix.INPCK | unix.ISTRIP

	tio.Cflag &^= unix.CSIZE | unix.CSTOPB | unix.PARENB | unix.PARODD | unix.CBAUD
	tio.Cflag |= unix.CLOCAL | unix.CREAD | unix.CS8 | baud
	switch cfg.Parity {
	case ParityEven:
		tio.Cflag |= unix.PARENB
	case ParityOdd:
		tio.Cflag |= unix.PARENB | unix.PARODD
	}
	if cfg.StopBits == 2 {
		tio.Cflag |= unix.CSTOPB
	}
	tio.Ispeed = baud
	tio.Ospeed = baud

	// Discard whatever is pending in either direction, then commit
	// immediately (TCSETS == TCSANOW)
	unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIOFLUSH)
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, tio); err != nil {
		return t.openFailed(fd, "tcsetattr", err)
	}

	t.fd = fd
	t.config = cfg
	return nil
}

func (t *Transport) openFailed(fd int, op string, err error) error {
	if fd >= 0 {
		unix.Close(fd)
	}
	t.report(op, err)
	return &OpError{Op: op, Err: err}
}

// Close releases the device handle. Safe to call multiple times;
// closing an unopened transport is a no-op.
func (t *Transport) Close() error {
	if t.fd < 0 {
		return nil
	}
	err := unix.Close(t.fd)
	t.fd = -1
	return err
}

// Poll waits up to Config.PollWait for the line to become readable or
// writable. Error, hangup and invalid-fd conditions are always watched
// regardless of direction. The revents mask is meaningful only when the
// result is PollReady. A PollError is reported to the sink; an
// interrupted wait is not an error and should simply be retried.
func (t *Transport) Poll(dir Direction) (PollResult, int16) {
	if t.fd < 0 {
		t.report("poll", ErrNotOpen)
		return PollError, 0
	}
	events := int16(unix.POLLERR | unix.POLLHUP | unix.POLLNVAL)
	if dir == Writable {
		events |= unix.POLLOUT
	} else {
		events |= unix.POLLIN
	}
	fds := []unix.PollFd{{Fd: int32(t.fd), Events: events}}
	n, err := t.poll(fds, int(t.config.PollWait.Milliseconds()))
	if err != nil {
		if err == unix.EINTR {
			return PollInterrupted, 0
		}
		t.report("poll", err)
		return PollError, 0
	}
	if n == 0 {
		return PollTimeout, 0
	}
	return PollReady, fds[0].Revents
}

// BytesWaiting returns how many bytes are buffered and readable without
// blocking. The count is only trustworthy when err is nil.
func (t *Transport) BytesWaiting() (int, error) {
	if t.fd < 0 {
		return 0, ErrNotOpen
	}
	n, err := unix.IoctlGetInt(t.fd, unix.TIOCINQ)
	if err != nil {
		return 0, &OpError{Op: "ioctl", Err: err}
	}
	return n, nil
}

// Read performs a single non-blocking read attempt into buf. It never
// waits for data; confirm readiness first via Poll or BytesWaiting.
func (t *Transport) Read(buf []byte) (int, error) {
	if t.fd < 0 {
		return 0, ErrNotOpen
	}
	n, err := unix.Read(t.fd, buf)
	if err != nil {
		return 0, &OpError{Op: "read", Err: err}
	}
	return n, nil
}

// Write issues a single write of buf and drains the transmit path so the
// bytes are physically sent. A failed write syscall is returned as an
// *OpError; a short write returns the partial count with io.ErrShortWrite
// so the caller can decide to retry. The post-write writable poll is a
// settle check only and never affects the result.
func (t *Transport) Write(buf []byte) (int, error) {
	if t.fd < 0 {
		return 0, ErrNotOpen
	}
	n, err := unix.Write(t.fd, buf)
	if err != nil {
		t.report("write", err)
		return 0, &OpError{Op: "write", Err: err}
	}
	if err := unix.IoctlSetInt(t.fd, unix.TCSBRK, 1); err != nil { // tcdrain
		t.report("tcdrain", err)
	}
	t.Poll(Writable)
	if n < len(buf) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// DriveOnce performs one poll-then-drain pass and is meant to be invoked
// repeatedly by an external scheduling loop, one call per tick. A ready
// line is drained of exactly the bytes waiting, each fed to the receiver
// in arrival order. Timeouts and interrupted polls are idle cycles; poll
// and read failures go to the reporter and the port stays open for the
// next cycle. The call never blocks longer than Config.PollWait.
func (t *Transport) DriveOnce() {
	result, _ := t.Poll(Readable)
	switch result {
	case PollReady:
		count, err := t.BytesWaiting()
		if err != nil {
			t.report("ioctl", err)
			return
		}
		if count == 0 {
			return
		}
		buf := make([]byte, count)
		n, err := t.Read(buf)
		if err != nil {
			t.report("read", err)
			return
		}
		for _, b := range buf[:n] {
			t.receiver.Feed(b)
		}
	case PollError:
		// already reported inside Poll; retry naturally next cycle
	default:
		// timeout or interrupted: idle cycle
	}
}

func (t *Transport) report(op string, err error) {
	if t.reporter != nil {
		t.reporter.Report(op, err)
	}
}

func (c Config) withDefaults() Config {
	if c.DataBits == 0 {
		c.DataBits = 8
	}
	if c.StopBits == 0 {
		c.StopBits = 1
	}
	if c.PollWait <= 0 {
		c.PollWait = 500 * time.Millisecond
	}
	return c
}

func (c Config) validate() error {
	if c.DataBits != 8 {
		return fmt.Errorf("%w: %d data bits", ErrBadConfig, c.DataBits)
	}
	if c.StopBits != 1 && c.StopBits != 2 {
		return fmt.Errorf("%w: %d stop bits", ErrBadConfig, c.StopBits)
	}
	if c.Parity < ParityNone || c.Parity > ParityOdd {
		return fmt.Errorf("%w: parity %d", ErrBadConfig, c.Parity)
	}
	if baudBits(c.BaudRate) == 0 {
		return fmt.Errorf("%w: %d baud", ErrBadConfig, c.BaudRate)
	}
	return nil
}

func baudBits(baud int) uint32 {
	switch baud {
	case 1200:
		return unix.B1200
	case 2400:
		return unix.B2400
	case 4800:
		return unix.B4800
	case 9600:
		return unix.B9600
	case 19200:
		return unix.B19200
	case 38400:
		return unix.B38400
	case 57600:
		return unix.B57600
	case 115200:
		return unix.B115200
	case 230400:
		return unix.B230400
	default:
		return 0
	}
}
