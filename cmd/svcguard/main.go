// Command svcguard is the service host entry point: it parses the
// legacy single-dash CLI switches (spec §6) and either dispatches one
// shot (status/install/uninstall/start/stop/run/step) or launches the
// interactive console.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/loykin/svcguard"
	"github.com/loykin/svcguard/internal/buildinfo"
	"github.com/loykin/svcguard/internal/cliflags"
	"github.com/loykin/svcguard/internal/config"
	"github.com/loykin/svcguard/internal/console"
	"github.com/loykin/svcguard/internal/logger"
	"github.com/loykin/svcguard/internal/scm"
)

func main() {
	configPath := resolveConfigPath()
	settings, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "svcguard: %v\n", err)
		os.Exit(1)
	}

	baseLog := logger.New(logger.FileConfig{Path: settings.LogFile}, true)
	sink := logger.Named(baseLog, "main")
	sink.WriteLine("starting %s", buildinfo.Read())

	host, err := svcguard.New(settings, defaultWork(sink), newPeerChecker(), nil, nil, baseLog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "svcguard: %v\n", err)
		os.Exit(1)
	}

	controller := newController(settings.ServiceName)
	installer := newInstaller(settings.ServiceName)

	action, _ := cliflags.Parse(os.Args[1:])
	ctx := context.Background()

	switch action {
	case cliflags.ActionShowStatus:
		runShowStatus(ctx, host, controller)
	case cliflags.ActionInstall:
		exitOnErr(installer.Install(ctx, settings.DisplayName, settings.Description))
	case cliflags.ActionUninstall:
		exitOnErr(installer.Uninstall(ctx))
	case cliflags.ActionStart:
		exitOnErr(controller.Start(ctx))
	case cliflags.ActionStop:
		exitOnErr(controller.Stop(ctx))
	case cliflags.ActionRun:
		runForeground(ctx, host)
	case cliflags.ActionStep:
		host.Pool.StartWork()
		host.Pool.RunNow(0)
		time.Sleep(100 * time.Millisecond)
		_ = host.Stop(ctx, time.Second)
	default:
		c := console.New(os.Stdin, os.Stdout)
		c.Pool = host.Pool
		c.Manager = host.Manager
		c.Installer = installer
		c.Controller = controller
		c.ServiceName = settings.ServiceName
		c.DisplayName = settings.DisplayName
		c.Description = settings.Description
		if err := c.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "svcguard: %v\n", err)
			os.Exit(1)
		}
	}
}

func resolveConfigPath() string {
	fs := flag.NewFlagSet("svcguard", flag.ContinueOnError)
	path := fs.String("config", "svcguard.toml", "path to the settings file")
	_ = fs.Parse(filteredFlagArgs(os.Args[1:]))
	return *path
}

// filteredFlagArgs strips the legacy single-dash action switch (if any)
// from the arguments handed to flag.FlagSet, since cliflags.Parse owns
// that one.
func filteredFlagArgs(args []string) []string {
	action, rest := cliflags.Parse(args)
	if action == cliflags.ActionConsole && len(rest) == len(args) {
		return args
	}
	return rest
}

func runShowStatus(ctx context.Context, host *svcguard.Host, controller scm.Controller) {
	fmt.Println(buildinfo.Read().String())
	state, err := controller.QueryState(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query state: %v\n", err)
		return
	}
	fmt.Printf("service state: %v\n", state)
}

func runForeground(ctx context.Context, host *svcguard.Host) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	host.Start(ctx)
	<-ctx.Done()
}

func defaultWork(log logger.Sink) svcguard.WorkerFunc {
	return func(i int) bool {
		log.WriteLine("tick")
		return true
	}
}

func exitOnErr(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "svcguard: %v\n", err)
		os.Exit(1)
	}
}
