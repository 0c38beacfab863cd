// Command optigagw runs the HTTP gateway over a device, giving external
// tooling JSON access to the command encoders alongside the CLI and the
// test suite as a second, concurrent caller of the dispatcher.
package main

import (
	"context"
	"flag"
	"fmt"

	log "github.com/sirupsen/logrus"

	optigatrust "github.com/openoptiga/optigatrust"
	_ "github.com/openoptiga/optigatrust/pkg/bus/virtual"
	"github.com/openoptiga/optigatrust/pkg/command"
	gwhttp "github.com/openoptiga/optigatrust/pkg/gateway/http"
)

const defaultChannel = "optigagw"

func main() {
	log.SetLevel(log.InfoLevel)

	iface := flag.String("i", "virtual", "bus backend name, e.g. virtual")
	channel := flag.String("c", defaultChannel, "backend-specific channel string")
	port := flag.Int("p", 8090, "HTTP port to listen on")
	flag.Parse()

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

	gw := gwhttp.NewServer(command.New(dev), log.StandardLogger())
	if err := gw.ListenAndServe(fmt.Sprintf(":%d", *port)); err != nil {
		log.WithError(err).Fatal("gateway stopped")
	}
}
