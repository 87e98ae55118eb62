package port

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"marlin-go-migration/pkg/log"
)

// ErrClosed is returned when writing to a closed serial port.
var ErrClosed = errors.New("port: serial port closed")

func errUnsupportedBaud(baud int) error {
	return fmt.Errorf("port: unsupported baud rate %d", baud)
}

// SerialConfig holds serial port configuration.
type SerialConfig struct {
	// Device path (e.g., /dev/ttyUSB0, /dev/ttyACM0)
	Device string

	// Baud rate (default: 115200)
	BaudRate int

	// Receive buffer size in bytes (default: DefaultRxSize)
	RxSize int
}

// SerialPort is a live command input over a termios serial device. A
// background goroutine (the receive side of the interrupt boundary)
// drains the device into an RxBuffer; the main cycle reads from there.
type SerialPort struct {
	name   string
	fd     int
	rx     *RxBuffer
	closed atomic.Bool

	writeMu sync.Mutex
	wg      sync.WaitGroup
	logger  *log.Logger
}

// OpenSerial opens and configures a serial device in raw 8N1 mode and
// starts its receive goroutine.
func OpenSerial(cfg SerialConfig) (*SerialPort, error) {
	if cfg.Device == "" {
		return nil, errors.New("port: device path required")
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 115200
	}
	if cfg.RxSize == 0 {
		cfg.RxSize = DefaultRxSize
	}

	fd, err := unix.Open(cfg.Device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("port: open %s: %w", cfg.Device, err)
	}

	termios, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("port: get termios: %w", err)
	}

	// Input flags - disable all input processing
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF | unix.IXANY

	// Output flags - disable all output processing
	termios.Oflag &^= unix.OPOST

	// Control flags - 8N1
	termios.Cflag &^= unix.CSIZE | unix.PARENB | unix.PARODD | unix.CSTOPB
	termios.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL

	// Local flags - raw mode
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN

	speed, err := baudRateToSpeed(cfg.BaudRate)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	setSpeed(termios, speed)

	// VMIN=0/VTIME=1: reads return within 100ms so the receive
	// goroutine can notice shutdown.
	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = 1

	if err := unix.IoctlSetTermios(fd, ioctlSetTermios, termios); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("port: set termios: %w", err)
	}
	if err := unix.SetNonblock(fd, false); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("port: set blocking: %w", err)
	}

	p := &SerialPort{
		name:   cfg.Device,
		fd:     fd,
		rx:     NewRxBuffer(cfg.RxSize),
		logger: log.GetLogger("serial"),
	}
	p.wg.Add(1)
	go p.receiveLoop()
	return p, nil
}

// receiveLoop is the single producer feeding the receive buffer.
func (p *SerialPort) receiveLoop() {
	defer p.wg.Done()
	buf := make([]byte, 256)
	for !p.closed.Load() {
		n, err := unix.Read(p.fd, buf)
		if n > 0 {
			if p.rx.PutBytes(buf[:n]) < n {
				p.logger.Warn("receive buffer overflow on %s (%d bytes dropped total)",
					p.name, p.rx.Dropped())
			}
		}
		if err != nil {
			if err == unix.EINTR || err == unix.EAGAIN {
				continue
			}
			if !p.closed.Load() {
				p.logger.WithError(err).Error("serial read failed on %s", p.name)
			}
			return
		}
	}
}

// Name implements the intake Port interface.
func (p *SerialPort) Name() string { return p.name }

// BytesAvailable implements the intake Port interface.
func (p *SerialPort) BytesAvailable() int { return p.rx.Len() }

// ReadByte implements the intake Port interface.
func (p *SerialPort) ReadByte() (byte, bool) { return p.rx.ReadByte() }

// WriteResponse implements the intake Port interface.
func (p *SerialPort) WriteResponse(line string) error {
	if p.closed.Load() {
		return ErrClosed
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_, err := unix.Write(p.fd, []byte(line+"\n"))
	if err != nil {
		return fmt.Errorf("port: write %s: %w", p.name, err)
	}
	return nil
}

// Close stops the receive goroutine and closes the device.
func (p *SerialPort) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	err := unix.Close(p.fd)
	p.wg.Wait()
	return err
}
