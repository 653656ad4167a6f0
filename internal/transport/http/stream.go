package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/earshot/earshot/internal/message"
	"github.com/earshot/earshot/internal/transport"
)

// streamCommand is a client-to-server control frame on the websocket.
type streamCommand struct {
	// Action is "finalize": flush the stream and return the transcript.
	Action string `json:"action"`
}

// handleStream serves GET /ws: a websocket streaming session.
//
// Protocol: binary frames carry raw PCM16 mono chunks; text frames carry
// JSON control commands. The server pushes StreamEvent JSON text frames —
// partials as decoding progresses, finals at segment boundaries, and the
// accumulated transcript in response to a "finalize" command. The language
// is selected with the ?language= query parameter.
func (t *Transport) handleStream(w http.ResponseWriter, r *http.Request, svc transport.Service) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	language := r.URL.Query().Get("language")

	id, stream, err := svc.OpenStream(ctx, language)
	if err != nil {
		slog.Error("stream open failed", "language", language, "error", err)
		_ = conn.Close(websocket.StatusInternalError, "opening stream: "+err.Error())
		return
	}

	logger := slog.With("stream_id", id)
	logger.Debug("websocket stream started", "language", language)

	// One writer at a time: result forwarding and finalize replies share the
	// connection.
	var writeMu sync.Mutex
	writeEvent := func(ev message.StreamEvent) error {
		payload, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.Write(ctx, websocket.MessageText, payload)
	}

	// Forward partial/final results as they arrive.
	forwarderDone := make(chan struct{})
	go func() {
		defer close(forwarderDone)
		for res := range stream.Results() {
			ev := message.StreamEvent{
				StreamID: id,
				Text:     res.Text,
				Final:    res.Final,
				Language: res.Language,
			}
			if err := writeEvent(ev); err != nil {
				return
			}
		}
	}()

	// Closing the stream ends the forwarder's range over its results; drain
	// it before tearing the connection down.
	defer func() {
		stream.Close()
		<-forwarderDone
	}()

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			// Client went away or the server is shutting down.
			logger.Debug("websocket stream ended", "error", err)
			return
		}

		switch typ {
		case websocket.MessageBinary:
			if err := stream.Feed(data); err != nil {
				_ = writeEvent(message.StreamEvent{StreamID: id, Error: err.Error()})
				return
			}

		case websocket.MessageText:
			var cmd streamCommand
			if err := json.Unmarshal(data, &cmd); err != nil {
				_ = writeEvent(message.StreamEvent{StreamID: id, Error: "invalid command: " + err.Error()})
				continue
			}
			if cmd.Action != "finalize" {
				_ = writeEvent(message.StreamEvent{StreamID: id, Error: "unknown action: " + cmd.Action})
				continue
			}

			text, err := stream.Finalize(ctx)
			if err != nil {
				_ = writeEvent(message.StreamEvent{StreamID: id, Error: err.Error()})
				return
			}
			logger.Info("stream finalized", "text_length", len(text))
			if err := writeEvent(message.StreamEvent{StreamID: id, Text: text, Final: true, Language: language}); err != nil {
				return
			}
		}
	}
}
