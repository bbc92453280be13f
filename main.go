package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/moyoez/gcomserver-go/api"
	"github.com/moyoez/gcomserver-go/api/models"
	"github.com/moyoez/gcomserver-go/codec"
	"github.com/moyoez/gcomserver-go/handler"
	"github.com/moyoez/gcomserver-go/notify"
	"github.com/moyoez/gcomserver-go/tool"
	"github.com/moyoez/gcomserver-go/transfer"
	"github.com/moyoez/gcomserver-go/types"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := tool.SetFlags()
	appCfg, err := tool.LoadConfig(cfg.UseConfigPath)
	if err != nil {
		tool.DefaultLogger.Errorf("%v", err)
		return tool.ExitUnknownError
	}
	if err := tool.ApplyFlags(&appCfg, cfg); err != nil {
		tool.DefaultLogger.Errorf("%v", err)
		return tool.ExitUnknownError
	}

	// initialize logger
	tool.InitLogger()
	logCloser, err := tool.ApplyLogConfig(appCfg.LogLevel, appCfg.LogFile)
	if err != nil {
		tool.DefaultLogger.Errorf("%v", err)
		return tool.ExitUnknownError
	}
	defer logCloser.Close()

	if tool.InitConfigFlag {
		path := cfg.UseConfigPath
		if path == "" {
			path = tool.DefaultConfigPath()
		}
		if err := tool.WriteConfig(path, appCfg); err != nil {
			tool.DefaultLogger.Errorf("Failed to write config: %v", err)
			return tool.ExitUnknownError
		}
		tool.DefaultLogger.Infof("Config written to %s", path)
		return tool.ExitSuccess
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SendTo != "" {
		code, msg := tool.ExitStatus(sendFiles(ctx, cfg.SendTo, cfg.SendFiles))
		tool.DefaultLogger.Info(msg)
		return code
	}

	models.SetRuntimeConfig(appCfg)

	var hub types.NotifyHub
	if appCfg.StatusAddr != "" {
		h := models.NewHub()
		models.SetNotifyHub(h)
		hub = h
		statusServer := api.NewServer(appCfg.StatusAddr)
		go func() {
			if err := statusServer.Start(ctx); err != nil {
				tool.DefaultLogger.Errorf("Status API stopped: %v", err)
			}
		}()
	}

	h := handler.NewDefaultHandler(handler.Options{
		OutputDir: appCfg.OutputDir,
		Notifier:  notify.New(appCfg.NotifySocket, hub),
	})
	server := transfer.NewServer(transfer.ServerOptions{
		Addr:           appCfg.Listen,
		StagingDir:     appCfg.StagingDir,
		KeepFiles:      appCfg.KeepFiles,
		MaxConnections: appCfg.MaxConnections,
		AcceptRate:     appCfg.AcceptRate,
		Handler:        h,
		Registry:       models.Registry{},
	})

	if cfg.UseStdio {
		// the session logs its own exit line
		code, _ := tool.ExitStatus(server.ServeConn(ctx, transfer.StdioConn(os.Stdin, os.Stdout), "stdio"))
		return code
	}

	if err := server.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		code, msg := tool.ExitStatus(err)
		tool.DefaultLogger.Errorf("%s %v", msg, err)
		return code
	}
	return tool.ExitSuccess
}

// sendFiles plays the device side: every file is one raw data object frame,
// and all of them go out as a single group.
func sendFiles(ctx context.Context, addr string, files []string) error {
	if len(files) == 0 {
		return fmt.Errorf("invalid parameters: no object files given")
	}
	objects := make([][]byte, 0, len(files))
	for _, f := range files {
		raw, err := tool.ReadObjectFile(f, codec.DefaultMaxObjectSize)
		if err != nil {
			return err
		}
		objects = append(objects, raw)
	}
	client, err := transfer.Dial(ctx, addr)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.SendGroup(ctx, objects)
}
