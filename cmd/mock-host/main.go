// mock-host streams a numbered, checksummed command sequence to a
// running intake over its websocket port, the way slicer host software
// talks to the firmware. It understands the ok/Error/Resend responses
// and can deliberately corrupt frames to exercise resend recovery.
//
// Usage:
//
//	mock-host -url ws://localhost:7125/ws -file job.gcode [options]
//
// Options:
//
//	-url string      Websocket endpoint (default ws://localhost:7125/ws)
//	-file string     G-code file to stream (default: built-in demo moves)
//	-corrupt int     Corrupt the checksum of every Nth line (0 = never)
//	-skip int        Skip every Nth line number (0 = never)
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"marlin-go-migration/pkg/log"
	"marlin-go-migration/pkg/protocol"
)

var demoJob = []string{
	"M110 N0",
	"G28",
	"G90",
	"G1 X10 Y10 F3000",
	"G1 X20 Y5",
	"G1 Z0.4",
	"M114",
}

func main() {
	url := flag.String("url", "ws://localhost:7125/ws", "Websocket endpoint")
	file := flag.String("file", "", "G-code file to stream")
	corrupt := flag.Int("corrupt", 0, "Corrupt the checksum of every Nth line (0 = never)")
	skip := flag.Int("skip", 0, "Skip every Nth line number (0 = never)")
	flag.Parse()

	logger := log.GetLogger("mock-host")

	lines := demoJob
	if *file != "" {
		var err error
		lines, err = readLines(*file)
		if err != nil {
			logger.WithError(err).Error("job file read failed")
			os.Exit(1)
		}
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.WithError(err).Error("dial %s failed", *url)
		os.Exit(1)
	}
	defer conn.Close()
	logger.Info("connected to %s, streaming %d lines", *url, len(lines))

	responses := make(chan string, 16)
	go func() {
		defer close(responses)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			responses <- strings.TrimSpace(string(data))
		}
	}()

	n := int64(0)
	corruptedUpTo := int64(0)
	for i := 0; i < len(lines); {
		cmd := strings.TrimSpace(lines[i])
		if cmd == "" || strings.HasPrefix(cmd, ";") {
			i++
			continue
		}

		n++
		lineNo := n
		if *skip > 0 && int(n)%*skip == 0 {
			// Burn a line number without sending it; the intake must
			// answer the next frame with a resend request.
			logger.Info("skipping line number %d", n)
			n++
			lineNo = n
		}

		// Corrupt each target line on first transmission only, so the
		// requested retransmission goes through intact.
		doCorrupt := *corrupt > 0 && int(lineNo)%*corrupt == 0 && lineNo > corruptedUpTo
		if doCorrupt {
			corruptedUpTo = lineNo
		}

		frame := frameLine(lineNo, cmd, doCorrupt)
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			logger.WithError(err).Error("send failed")
			os.Exit(1)
		}
		logger.Debug("sent: %s", frame)

		resend, err := awaitAck(responses, logger)
		if err != nil {
			logger.WithError(err).Error("stream aborted")
			os.Exit(1)
		}
		if resend >= 0 {
			// Rewind to the requested line number and resynchronize.
			logger.Info("resend requested from line %d", resend)
			back := int(n - resend + 1)
			if back > i+1 {
				back = i + 1
			}
			i -= back - 1
			n = resend - 1
			continue
		}

		// Mirror a line-number reset on the sender side.
		if v, ok := resetValue(cmd); ok {
			n = v
		}
		i++
	}

	logger.Info("stream complete, %d lines acknowledged", n)
}

// frameLine builds "N<n> <cmd>*<checksum>", optionally corrupting the
// checksum byte.
func frameLine(n int64, cmd string, corrupt bool) string {
	body := fmt.Sprintf("N%d %s", n, cmd)
	sum := protocol.Checksum(body)
	if corrupt {
		sum ^= 0x55
	}
	return fmt.Sprintf("%s*%d", body, sum)
}

// awaitAck consumes responses until an ok or a Resend arrives. Returns
// the requested resend line number, or -1 on a plain ok.
func awaitAck(responses <-chan string, logger *log.Logger) (int64, error) {
	resend := int64(-1)
	for {
		select {
		case resp, ok := <-responses:
			if !ok {
				return 0, fmt.Errorf("connection closed")
			}
			logger.Debug("recv: %s", resp)
			switch {
			case strings.HasPrefix(resp, "Resend:"):
				v, err := strconv.ParseInt(strings.TrimSpace(resp[len("Resend:"):]), 10, 64)
				if err != nil {
					return 0, fmt.Errorf("malformed resend %q", resp)
				}
				resend = v
			case strings.HasPrefix(resp, "Error:"):
				logger.Warn("%s", resp)
			case resp == "ok" || strings.HasPrefix(resp, "ok "):
				return resend, nil
			}
		case <-time.After(5 * time.Second):
			return 0, fmt.Errorf("timed out waiting for ok")
		}
	}
}

// resetValue extracts the new line number from an M110 command.
func resetValue(cmd string) (int64, bool) {
	fields := strings.Fields(cmd)
	if len(fields) == 0 || !strings.EqualFold(fields[0], "M110") {
		return 0, false
	}
	for _, arg := range fields[1:] {
		if len(arg) >= 2 && (arg[0] == 'N' || arg[0] == 'n') {
			if v, err := strconv.ParseInt(arg[1:], 10, 64); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
