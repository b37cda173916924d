// Command attgatt-probe drives the att/gatt client engines against an
// in-process fake peripheral and prints the discovered profile. It has
// no real Bluetooth controller to talk to; it exists to demonstrate the
// client against internal/fakeperipheral and internal/loopback.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/leso-kn/attgatt"
	"github.com/leso-kn/attgatt/gatt"
	"github.com/leso-kn/attgatt/internal/fakeperipheral"
	"github.com/leso-kn/attgatt/internal/loopback"
)

func discoverCommand(c *cli.Context) error {
	clientAddr := ble.NewBDAddr([6]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55})
	serverAddr := ble.NewBDAddr([6]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF})
	clientConn, serverConn := loopback.NewPair(clientAddr, serverAddr)

	peripheral := fakeperipheral.New(serverConn)
	go peripheral.Serve()

	logger := ble.NewLogger("attgatt-probe")
	client := gatt.NewClient(clientConn, logger)
	defer client.CancelConnection()

	if _, err := client.ExchangeMTU(ble.MaxMTU); err != nil {
		return fmt.Errorf("exchange mtu: %w", err)
	}

	profile, err := client.DiscoverProfile(true)
	if err != nil {
		return fmt.Errorf("discover profile: %w", err)
	}

	return gatt.ExportProfile(os.Stdout, profile)
}

func main() {
	app := cli.NewApp()
	app.Name = "attgatt-probe"
	app.Usage = "discover a GATT profile and print it as JSON"
	app.Commands = []cli.Command{
		{
			Name:   "discover",
			Usage:  "connect to the bundled fake peripheral and dump its profile",
			Action: discoverCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
