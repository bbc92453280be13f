package tool

import (
	"flag"
	"os"

	"github.com/moyoez/gcomserver-go/types"
)

// InitConfigFlag asks main to write the effective config file and exit.
var InitConfigFlag bool

// SetFlags parses CLI flags and returns the override config.
func SetFlags() types.Config {
	return SetFlagsFrom(flag.CommandLine, nil)
}

// SetFlagsFrom parses args (os.Args[1:] when nil) with fs.
func SetFlagsFrom(fs *flag.FlagSet, args []string) types.Config {
	var cfg types.Config
	fs.StringVar(&cfg.Log, "log", "", "log level: none|low|high (dev=high, prod=low)")
	fs.StringVar(&cfg.UseConfigPath, "useConfigPath", "", "override config file path (default ~/"+ConfigFileName+")")
	fs.StringVar(&cfg.UseListen, "useListen", "", "listen address for scanner connections")
	fs.BoolVar(&cfg.UseStdio, "useStdio", false, "serve one session on stdin/stdout (inetd mode)")
	fs.StringVar(&cfg.UseStagingDir, "useStagingDir", "", "directory for staged objects")
	fs.BoolVar(&cfg.UseKeepFiles, "useKeepFiles", false, "keep staged files after each group (debugging)")
	fs.StringVar(&cfg.UseOutputDir, "useOutputDir", "", "archive completed groups under this directory")
	fs.StringVar(&cfg.UseStatusAddr, "useStatusAddr", "", "serve the local status API on this address")
	fs.StringVar(&cfg.UseLogFile, "useLogFile", "", "write logs to this file instead of stderr")
	fs.IntVar(&cfg.MaxConnections, "maxConnections", 0, "maximum concurrent scanner connections")
	fs.StringVar(&cfg.UseAcceptRate, "useAcceptRate", "", "new connections accepted per second, 0 = unlimited")
	fs.StringVar(&cfg.UseNotifySocket, "useNotifySocket", "", "send notifications to this unix socket")
	fs.StringVar(&cfg.SendTo, "sendTo", "", "device mode: send the object files given as arguments to this address")
	fs.BoolVar(&InitConfigFlag, "initConfig", false, "write the effective configuration to the config file and exit")
	if args == nil {
		args = os.Args[1:]
	}
	_ = fs.Parse(args)
	cfg.SendFiles = fs.Args()
	return cfg
}
