// Command shopper is a terminal storefront client. Each invocation enters one
// screen, runs a single operation against the backend and prints the result.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/partnest/sparesync/pkg/config"
	"github.com/partnest/sparesync/pkg/logger"
)

const usage = `usage: shopper [-device id] <command> [args]

commands:
  login -token JWT | -role buyer|seller|admin [-user uuid]
  logout
  catalog
  wallet
  cart
  add <productId>
  set <productId> <quantity>
  inc <productId>
  dec <productId>
  remove <productId>
  checkout -payment cash_on_delivery|wallet -house N -street S -postal P -city C -state S
  orders [-status pending|processing|shipped|delivered|cancelled]
  cancel <orderId>
  watch
`

func main() {
	logg := logger.New(logger.Options{ServiceName: "shopper"})
	_ = godotenv.Load()

	hostname, _ := os.Hostname()
	device := flag.String("device", hostname, "device id the session is stored under")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "shopper",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Output:      os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logg, *device)
	if err != nil {
		logg.Error(ctx, "failed to start shopper", err)
		os.Exit(1)
	}

	code := run(ctx, a, os.Stdout, flag.Arg(0), flag.Args()[1:])
	if err := a.close(); err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "shopper.close.failed")
	}
	os.Exit(code)
}
