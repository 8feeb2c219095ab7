// Command arcsignd wires up one emulated signing device against stdin/
// stdout framed messages, for local testing against a counterparty SDK
// without real hardware. It is not a transport implementation: each line
// on stdin is one hex-encoded raw message, and the hex-encoded response
// is written to stdout, leaving the actual socket/USB/BLE plumbing to
// whatever drives this process.
package main

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/arcsign/hsmemu/internal/emu/approval"
	"github.com/arcsign/hsmemu/internal/emu/device"
)

func main() {
	autoApprove := flag.Bool("auto-approve", true, "approve every signing request without prompting")
	pairingCode := flag.String("pairing-code", "12345678", "pairing code clients must present")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "arcsignd: logger init:", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	seed := make([]byte, 64)
	if _, err := rand.Read(seed); err != nil {
		logger.Fatal("generate master seed", zap.Error(err))
	}

	cfg := device.DefaultConfig()
	cfg.AutoApprove = *autoApprove
	cfg.PairingCode = *pairingCode

	var sink approval.Sink
	if !cfg.AutoApprove {
		sink = approval.NewInProcess(8)
	}

	d := device.New(cfg, seed, sink, nil, logger)
	d.OnEvent(func(ev device.Event) {
		logger.Info("device event", zap.String("kind", string(ev.Kind)), zap.Any("fields", ev.Fields))
	})

	logger.Info("arcsign emulator ready", zap.Bool("auto_approve", cfg.AutoApprove))
	runLoop(d, logger)
}

func runLoop(d *device.Device, logger *zap.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	writer := bufio.NewWriter(os.Stdout)
	defer writer.Flush() //nolint:errcheck

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		raw, err := hex.DecodeString(string(line))
		if err != nil {
			logger.Warn("invalid hex input", zap.Error(err))
			continue
		}

		resp := d.HandleMessage(raw)
		fmt.Fprintln(writer, hex.EncodeToString(resp))
		writer.Flush() //nolint:errcheck
	}
}
