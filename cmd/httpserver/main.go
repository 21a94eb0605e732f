package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/devwelkin/hermes-static/internal/filesystem"
	"github.com/devwelkin/hermes-static/internal/server"
)

var errUsage = errors.New("usage error")

type config struct {
	port    int
	root    string
	logFile string
}

// parseArgs expects exactly: port rootdir logfile
func parseArgs(args []string) (config, error) {
	if len(args) != 3 {
		return config{}, fmt.Errorf("%w: expected 3 arguments, got %d", errUsage, len(args))
	}
	port, err := strconv.Atoi(args[0])
	if err != nil || port < 0 || port > 65535 {
		return config{}, fmt.Errorf("%w: bad port %q", errUsage, args[0])
	}
	return config{port: port, root: args[1], logFile: args[2]}, nil
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s port rootdir logfile\n", filepath.Base(os.Args[0]))
}

func main() {
	flag.Usage = usage
	flag.Parse()

	cfg, err := parseArgs(flag.Args())
	if err != nil {
		flag.Usage()
		os.Exit(1)
	}

	fs, err := filesystem.Create(cfg.root, cfg.logFile)
	if err != nil {
		switch {
		case errors.Is(err, filesystem.ErrBadRoot):
			log.Printf("Could not access server root directory: %v", err)
		case errors.Is(err, filesystem.ErrBadLog):
			log.Printf("Could not open log file for writing: %v", err)
		default:
			log.Printf("Error opening server filesystem: %v", err)
		}
		os.Exit(1)
	}

	srv, err := server.Serve(cfg.port, fs)
	if err != nil {
		fs.Close()
		log.Fatalf("Could not start the server on port %d: %v", cfg.port, err)
	}
	log.Println("Server started on port", cfg.port, "serving", fs.Root())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case <-sigChan:
		log.Println("Shutdown requested, terminating...")
	case <-srv.Done():
		log.Println("Error trying to accept a connection, terminating...")
		exitCode = 1
	}
	signal.Stop(sigChan)

	if err := srv.Close(); err != nil {
		log.Printf("Error during shutdown: %v", err)
		exitCode = 1
	}
	log.Println("Server gracefully stopped")
	os.Exit(exitCode)
}
