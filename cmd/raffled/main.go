package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ark-network/raffle/internal/config"
	httpservice "github.com/ark-network/raffle/internal/interface/http"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

//nolint:all
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	urlFlag = &cli.StringFlag{
		Name:  "url",
		Usage: "the url of the raffle daemon to connect to",
		Value: fmt.Sprintf("http://localhost:%d", config.DefaultPort),
	}
)

func mainAction(_ *cli.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("invalid config: %s", err)
	}

	log.SetLevel(log.Level(cfg.LogLevel))

	svcConfig := httpservice.Config{
		Port: cfg.Port,
	}

	svc, err := httpservice.NewService(svcConfig, cfg)
	if err != nil {
		return err
	}

	log.Infof("raffled config: %s", cfg)

	log.RegisterExitHandler(svc.Stop)

	log.Info("starting service...")
	if err := svc.Start(); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, os.Interrupt)
	<-sigChan

	log.Info("shutting down service...")
	log.Exit(0)

	return nil
}

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s (%s) %s", version, commit, date)
	app.Name = "raffled"
	app.Usage = "run or manage the raffle daemon"
	app.UsageText = "Run the raffle daemon with no subcommand, or query a running one with the subcommands below"
	app.Commands = append(
		app.Commands,
		statusCmd,
		enterCmd,
		playerCmd,
		upkeepCmd,
		settleCmd,
		requestCmd,
		fulfillCmd,
		winnersCmd,
		walletCmd,
	)
	app.Action = mainAction
	app.Flags = append(app.Flags, urlFlag)

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
