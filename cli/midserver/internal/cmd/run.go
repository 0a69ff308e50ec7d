package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/3nsoft/mailerid-go/application"
	"github.com/3nsoft/mailerid-go/application/server"
	"github.com/3nsoft/mailerid-go/cli"
	"github.com/spf13/cobra"
)

var runCmd = cli.NewRunCommand("MailerId provider",
	`Run a MailerId provider instance.

This will look for config files with default names
in the current directory if not specified differently.
Send SIGUSR2 to reload the served domains and redirects.
	`, run)

func init() {
	RootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("config", "c", "config.toml", "Path to server configuration file")
	runCmd.Flags().BoolP("pid", "p", false, "Write down the process id to midserver.pid in the current working directory")
}

func run(cmd *cobra.Command, args []string) error {
	confPath, _ := cmd.Flags().GetString("config")
	conf := new(server.Config)
	if err := conf.Load(confPath, "toml"); err != nil {
		return err
	}
	logger, err := application.NewLogger(conf.Logger)
	if err != nil {
		return err
	}
	defer logger.Sync()
	if pid, _ := cmd.Flags().GetBool("pid"); pid {
		writePID(logger)
	}

	serv, err := server.NewMidServer(conf, logger)
	if err != nil {
		logger.Fatal("Cannot start provider", "error", err.Error())
	}
	if err := serv.Run(); err != nil {
		serv.Shutdown()
		logger.Fatal("Cannot listen", "error", err.Error())
	}

	// run the server until receiving an interrupt signal
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
	return serv.Shutdown()
}

func writePID(logger *application.Logger) {
	pidf, err := os.OpenFile(filepath.Join(".", "midserver.pid"), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		logger.Error("Cannot create midserver.pid", "error", err.Error())
		return
	}
	defer pidf.Close()
	if _, err := fmt.Fprint(pidf, os.Getpid()); err != nil {
		logger.Error("Cannot write to pid file", "error", err.Error())
	}
}
