// Command nrfdfu delivers a signed firmware update package to a target
// running the Nordic Secure DFU bootloader over a serial link.
//
// Usage: nrfdfu <serial_port> <package_file> [-v] [-v] [-v]
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/nordicdfu/serial-host/internal/cliflag"
	"github.com/nordicdfu/serial-host/internal/logging"
	"github.com/nordicdfu/serial-host/internal/serialport"
	"github.com/nordicdfu/serial-host/internal/telemetry"
	"github.com/nordicdfu/serial-host/pkg/archive"
	"github.com/nordicdfu/serial-host/pkg/dfu"
	"github.com/nordicdfu/serial-host/pkg/manifest"
	"github.com/nordicdfu/serial-host/pkg/sequencer"
	"github.com/nordicdfu/serial-host/pkg/transport"
)

var (
	baudRate  = flag.Int("baud", 115200, "Serial baud rate")
	redisAddr = flag.String("redis-addr", "", "Optional Redis address for progress telemetry (disabled if empty)")
	redisPass = flag.String("redis-pass", "", "Redis password")
	redisDB   = flag.Int("redis-db", 0, "Redis database number")
)

func main() {
	var verbosity cliflag.Count
	flag.Var(&verbosity, "v", "increase verbosity (repeatable up to 3 times)")

	flag.Usage = usage
	flag.Parse()

	// flag.Parse stops at the first positional argument, so flags given
	// after the two positionals are parsed in a second pass.
	positional := flag.Args()
	if len(positional) > 2 {
		rest := positional[2:]
		positional = positional[:2:2]
		flag.CommandLine.Parse(rest)
		positional = append(positional, flag.Args()...)
	}

	logging.Init(int(verbosity))

	if len(positional) != 2 {
		usage()
		os.Exit(2)
	}
	serialDevice := positional[0]
	packagePath := positional[1]

	if err := run(serialDevice, packagePath); err != nil {
		log.Printf("nrfdfu: %v", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s <serial_port> <package_file> [-v] [-v] [-v]\n", os.Args[0])
	flag.PrintDefaults()
}

func run(serialDevice, packagePath string) error {
	ar, err := archive.Open(packagePath)
	if err != nil {
		return err
	}
	defer ar.Close()

	manifestBytes, err := ar.ReadFile("manifest.json")
	if err != nil {
		return err
	}
	pkg, err := manifest.Parse(manifestBytes)
	if err != nil {
		return err
	}

	var telemetryPub *telemetry.Publisher
	if *redisAddr != "" {
		telemetryPub, err = telemetry.New(*redisAddr, *redisPass, *redisDB)
		if err != nil {
			logging.Info("nrfdfu: telemetry disabled: %v", err)
			telemetryPub = nil
		} else {
			defer telemetryPub.Close()
		}
	}

	seq := sequencer.New(func() (*dfu.Client, func() error, error) {
		return openSession(serialDevice, *baudRate)
	})
	if telemetryPub != nil {
		seq.Progress = telemetryPub.Report
	}

	return seq.Run(pkg, ar)
}

func openSession(serialDevice string, baud int) (*dfu.Client, func() error, error) {
	port, err := serialport.Open(serialDevice, baud)
	if err != nil {
		return nil, nil, err
	}

	t := transport.New(port)
	client := dfu.NewClient(t)
	if err := client.Open(); err != nil {
		port.Close()
		return nil, nil, err
	}

	closeSession := func() error {
		client.Close()
		return port.Close()
	}
	return client, closeSession, nil
}
