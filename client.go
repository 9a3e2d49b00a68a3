package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fasthttp/websocket"
	"github.com/google/uuid"
)

// FrameReader is the read half of a websocket connection.
type FrameReader interface {
	ReadMessage() (messageType int, p []byte, err error)
}

// FrameWriter is the write half of a websocket connection.
type FrameWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// Dial connects to the relay. There is no retry, the caller decides what a
// failure means.
func Dial(url string) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("User-Agent", UserAgent())

	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	return conn, nil
}

// Receiver prints whatever the relay pushes to us.
type Receiver struct {
	conn   FrameReader
	out    io.Writer
	errOut io.Writer
	logger *slog.Logger
}

func NewReceiver(conn FrameReader, out, errOut io.Writer) *Receiver {
	return &Receiver{
		conn:   conn,
		out:    out,
		errOut: errOut,
		logger: slog.Default().With("component", "receiver"),
	}
}

// Run reads frames until the relay closes the connection or the transport
// fails. Nothing else is told when it stops.
func (r *Receiver) Run() {
	for {
		messageType, data, err := r.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				r.logger.Debug("close frame received", "code", closeErr.Code, "text", closeErr.Text)
				fmt.Fprintln(r.out, "Server closed the connection")
				return
			}
			fmt.Fprintf(r.errOut, "Error receiving message: %v\n", err)
			return
		}

		if messageType != websocket.TextMessage {
			r.logger.Debug("skipping non-text frame", "type", messageType)
			continue
		}
		fmt.Fprintln(r.out, render(data))
	}
}

// render falls back to the raw frame when it is not a message payload.
func render(data []byte) string {
	payload, err := decodePayload(data)
	if err != nil {
		return string(data)
	}
	return payload.String()
}

// Sender turns lines typed by the user into envelopes.
type Sender struct {
	conn   FrameWriter
	input  *bufio.Reader
	out    io.Writer
	newID  func() string
	logger *slog.Logger
}

func NewSender(conn FrameWriter, in io.Reader, out io.Writer) *Sender {
	return &Sender{
		conn:   conn,
		input:  bufio.NewReader(in),
		out:    out,
		newID:  uuid.NewString,
		logger: slog.Default().With("component", "sender"),
	}
}

// Run prompts until the user types exit or closes stdin, then sends the
// disconnect envelope. Any error it returns is fatal for the client.
func (s *Sender) Run() error {
	for {
		fmt.Fprint(s.out, Prompt)

		line, err := s.input.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read input: %w", err)
		}
		text := strings.TrimSpace(line)

		if strings.EqualFold(text, exitKeyword) || (err != nil && line == "") {
			fmt.Fprintln(s.out, "Disconnecting...")
			return s.send(NewDisconnect(LocalUser), "disconnect message")
		}

		msg := NewSendMessage(s.newID(), LocalUser, PeerUser, text)
		if err := s.send(msg, "message"); err != nil {
			return err
		}
		s.logger.Debug("message sent", "message_id", msg.MessageID)
	}
}

func (s *Sender) send(envelope any, what string) error {
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", what, err)
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send %s: %w", what, err)
	}
	return nil
}
