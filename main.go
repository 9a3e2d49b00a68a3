package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	mode := flag.String("mode", ModeClient, "Operation mode: 'client' or 'relay'")
	listen := flag.String("listen", "127.0.0.1:3000", "Relay listen address")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version information and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Terminal chat client\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [-mode client|relay] [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "The client connects to %s as %q and talks to %q.\n\n", ServerURL, LocalUser, PeerUser)
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(VersionInfo())
		return
	}

	config := Config{
		Mode:   *mode,
		Listen: *listen,
		Debug:  *debug,
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: config.LogLevel()}))
	slog.SetDefault(logger)

	if err := config.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		flag.Usage()
		os.Exit(1)
	}

	var err error
	switch config.Mode {
	case ModeRelay:
		err = runRelay(config)
	default:
		err = runClient()
	}
	if err != nil {
		slog.Error("fatal", "mode", config.Mode, "error", err)
		os.Exit(1)
	}
}

func runClient() error {
	conn, err := Dial(ServerURL)
	if err != nil {
		return err
	}
	fmt.Println("Connected to the server at", ServerURL)

	// The receiver is never joined, process exit tears the connection down.
	go NewReceiver(conn, os.Stdout, os.Stderr).Run()

	if err := NewSender(conn, os.Stdin, os.Stdout).Run(); err != nil {
		return err
	}

	fmt.Println("Disconnected from the server.")
	return nil
}

func runRelay(config Config) error {
	relay := NewRelay()
	app, err := NewApp(relay)
	if err != nil {
		return err
	}
	go relay.HandleMessages()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	failed := make(chan error, 1)
	go func() {
		slog.Info("relay starting", "address", config.Listen, "relay_id", relay.ID())
		failed <- app.Listen(config.Listen)
	}()

	select {
	case err := <-failed:
		relay.Shutdown()
		return fmt.Errorf("relay failed: %w", err)
	case <-stop:
	}

	slog.Info("shutting down relay")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		relay.Shutdown()
		return fmt.Errorf("relay shutdown failed: %w", err)
	}
	relay.Shutdown()
	slog.Info("relay gracefully stopped")
	return nil
}
