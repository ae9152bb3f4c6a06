package server

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/dasmlab/bhasha/pkg/service"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type wsSpeakReply struct {
	OK          bool   `json:"ok"`
	Mime        string `json:"mime"`
	Voice       string `json:"voice"`
	AudioBase64 string `json:"audio_base64"`
}

type wsError struct {
	Error string `json:"error"`
}

func (s *HTTPServer) registerWSRoutes(mux *http.ServeMux) {
	prefix := s.cfg.WebSocket.Prefix

	mux.HandleFunc(prefix+"/translate", func(w http.ResponseWriter, r *http.Request) {
		s.serveWS(w, r, func(msg []byte) any {
			var req service.TranslationRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				return wsError{Error: "invalid request: " + err.Error()}
			}
			res, err := s.deps.Translator.Translate(r.Context(), req)
			if err != nil {
				return wsError{Error: err.Error()}
			}
			return translateResponse{TranslatedText: res.TranslatedText}
		})
	})

	mux.HandleFunc(prefix+"/speak", func(w http.ResponseWriter, r *http.Request) {
		s.serveWS(w, r, func(msg []byte) any {
			var req service.SpeakRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				return wsError{Error: "invalid request: " + err.Error()}
			}
			res, err := s.deps.Speaker.Speak(r.Context(), req)
			if err != nil {
				return wsError{Error: err.Error()}
			}
			return wsSpeakReply{
				OK:          true,
				Mime:        res.MediaType,
				Voice:       res.Voice,
				AudioBase64: base64.StdEncoding.EncodeToString(res.Data),
			}
		})
	})

	s.logger.WithFields(logrus.Fields{
		"prefix": prefix,
	}).Info("WebSocket endpoints enabled")
}

// serveWS upgrades the connection and answers each text frame with handle's reply.
// A failed frame gets an error reply and the socket stays open.
func (s *HTTPServer) serveWS(w http.ResponseWriter, r *http.Request, handle func(msg []byte) any) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"request_id": RequestID(r.Context()),
		}).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(s.cfg.MaxBodyBytes)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"request_id": RequestID(r.Context()),
				}).Warn("WebSocket closed unexpectedly")
			}
			return
		}
		if err := conn.WriteJSON(handle(msg)); err != nil {
			s.logger.WithError(err).Debug("WebSocket write failed")
			return
		}
	}
}
