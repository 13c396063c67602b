// Package serial provides a minimal, Linux-only serial transport that
// bridges one physical port to a byte-oriented protocol decoder.
//
// A Transport owns a single open device: it configures the line for raw
// operation at open time, polls for readiness with a bounded wait, and
// performs non-blocking reads and writes. Its DriveOnce method is meant
// to be called repeatedly by an external scheduling loop; each call does
// one poll-then-drain pass and pushes every received byte, in arrival
// order, into the caller's Receiver.
//
// Features:
//   - Raw termios configuration via golang.org/x/sys/unix (baud, parity,
//     stop bits, 8-bit characters, input parity checking)
//   - Bounded readiness polling that distinguishes ready, timeout,
//     interrupted and error outcomes
//   - Drained writes with real syscall errors and short-write detection
//   - All failures pushed to a pluggable Reporter; nothing is printed
//   - PTY-based tests for reliability
//
// This package does **not** support Windows.
//
// Example usage:
//
//	decoder := serial.ReceiverFunc(func(b byte) {
//	    frame.Feed(b) // your protocol state machine
//	})
//	sink := serial.ReporterFunc(func(op string, err error) {
//	    log.Printf("serial %s: %v", op, err)
//	})
//
//	t := serial.New(decoder, sink)
//	err := t.OpenIndex(0, serial.Config{
//	    BaudRate: 19200,
//	    Parity:   serial.ParityEven,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Close()
//
//	for range time.Tick(20 * time.Millisecond) {
//	    t.DriveOnce()
//	}
package serial
