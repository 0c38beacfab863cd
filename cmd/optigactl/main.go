// Command optigactl is a small flag-based client for exercising a secure
// element from the command line: connect to a bus backend, issue one
// command encoder operation, print the result, disconnect.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"

	optigatrust "github.com/openoptiga/optigatrust"
	_ "github.com/openoptiga/optigatrust/pkg/bus/virtual"
	"github.com/openoptiga/optigatrust/pkg/command"
)

const defaultChannel = "optigactl"

func main() {
	log.SetLevel(log.InfoLevel)

	iface := flag.String("i", "virtual", "bus backend name, e.g. virtual")
	channel := flag.String("c", defaultChannel, "backend-specific channel string")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: optigactl [-i interface] [-c channel] <chip-id|get-random N|gen-keypair OID|sign OID HEXDIGEST|get-object OID|set-object OID HEXDATA>")
		os.Exit(2)
	}

	bus, err := optigatrust.NewBus(*iface, *channel)
	if err != nil {
		log.WithError(err).Fatal("failed to construct bus")
	}
	if err := bus.Connect(); err != nil {
		log.WithError(err).Fatal("failed to connect bus")
	}
	defer bus.Disconnect()

	dev := optigatrust.NewDevice(bus)
	if err := dev.Init(context.Background()); err != nil {
		log.WithError(err).Fatal("failed to initialise device")
	}
	defer dev.Shutdown()

	cmd := command.New(dev)
	ctx := context.Background()

	switch args[0] {
	case "chip-id":
		data, err := cmd.GetDataObject(ctx, 0xE0C2, 0, 0)
		fatalOn(err)
		fmt.Println(hex.EncodeToString(data))

	case "get-random":
		requireArgs(args, 2)
		n, err := strconv.Atoi(args[1])
		fatalOn(err)
		data, err := cmd.GetRandom(ctx, n)
		fatalOn(err)
		fmt.Println(hex.EncodeToString(data))

	case "gen-keypair":
		requireArgs(args, 2)
		oid, err := parseOID(args[1])
		fatalOn(err)
		pub, err := cmd.GenKeyPair(ctx, oid, command.AlgNISTP256, command.KeyUsageSignature)
		fatalOn(err)
		fmt.Println(hex.EncodeToString(pub))

	case "sign":
		requireArgs(args, 3)
		oid, err := parseOID(args[1])
		fatalOn(err)
		digest, err := hex.DecodeString(args[2])
		fatalOn(err)
		sig, err := cmd.CalcSign(ctx, oid, command.AlgNISTP256, digest)
		fatalOn(err)
		fmt.Println(hex.EncodeToString(sig))

	case "get-object":
		requireArgs(args, 2)
		oid, err := parseOID(args[1])
		fatalOn(err)
		data, err := cmd.GetDataObject(ctx, oid, 0, 0)
		fatalOn(err)
		fmt.Println(hex.EncodeToString(data))

	case "set-object":
		requireArgs(args, 3)
		oid, err := parseOID(args[1])
		fatalOn(err)
		data, err := hex.DecodeString(args[2])
		fatalOn(err)
		fatalOn(cmd.SetDataObject(ctx, oid, 0, data))
		fmt.Println("ok")

	default:
		log.Fatalf("unknown command %q", args[0])
	}
}

func parseOID(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

func requireArgs(args []string, n int) {
	if len(args) < n {
		log.Fatalf("%s requires %d argument(s)", args[0], n-1)
	}
}

func fatalOn(err error) {
	if err != nil {
		log.WithError(err).Fatal("command failed")
	}
}
