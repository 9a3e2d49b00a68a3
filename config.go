package main

import (
	"errors"
	"fmt"
	"log/slog"
)

const (
	// ServerURL is the relay endpoint the client talks to.
	ServerURL = "ws://127.0.0.1:3000/ws/" + LocalUser

	// LocalUser is who we are, PeerUser is who we talk to.
	LocalUser = "alice"
	PeerUser  = "bob"

	Prompt = "Enter message (or type 'exit' to disconnect): "

	// typing this (in any case) leaves the chat
	exitKeyword = "exit"
)

const (
	ModeClient = "client"
	ModeRelay  = "relay"
)

// Config holds application configuration
type Config struct {
	Mode   string
	Listen string
	Debug  bool
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeClient:
		return nil
	case ModeRelay:
		if c.Listen == "" {
			return errors.New("relay mode needs a listen address")
		}
		return nil
	default:
		return fmt.Errorf("invalid mode %q, must be either %q or %q", c.Mode, ModeClient, ModeRelay)
	}
}

func (c Config) LogLevel() slog.Level {
	if c.Debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
