package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/luminary/engine"
	"github.com/spaghettifunk/luminary/engine/core"
)

func main() {
	configPath := flag.String("config", "luminary.toml", "path to the configuration file")
	flag.Parse()

	config, err := engine.LoadApplicationConfig(*configPath)
	if err != nil {
		core.LogFatal("configuration: %s", err.Error())
	}

	app := engine.New(config)
	if err := app.Initialize(); err != nil {
		core.LogFatal("initialization: %s", err.Error())
	}
	defer app.Shutdown()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		core.LogInfo("interrupt received, shutting down")
		core.EventFire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
	}()

	if err := app.Run(); err != nil {
		core.LogError("run: %s", err.Error())
	}
}
