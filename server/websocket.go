package server

import (
	"encoding/json"

	socketio "github.com/doquangtan/socketio/v4"
)

// setupEventFeed mounts socket.io on the app and sends stats to new clients
func (s *Server) setupEventFeed() {
	s.io = socketio.New()

	s.app.Use("/socket.io", s.io.FiberMiddleware) // attaches socketio to the fiber context
	s.app.Route("/socket.io", s.io.FiberRoute)

	s.io.OnConnection(func(socket *socketio.Socket) {
		s.logger.Printf("Dashboard connected: %s", socket.Id)

		statsJSON, err := json.Marshal(s.config.Orchestrator.Stats())
		if err == nil {
			socket.Emit("initial_stats", string(statsJSON))
		}

		socket.On("request_stats", func(ep *socketio.EventPayload) {
			s.broadcastStats()
		})

		socket.On("disconnect", func(ep *socketio.EventPayload) {
			s.logger.Printf("Dashboard disconnected: %s", socket.Id)
		})
	})
}

// broadcastEvents forwards orchestrator events to every connected client until
// the orchestrator closes its channel
func (s *Server) broadcastEvents() {
	for event := range s.config.Orchestrator.Events() {
		eventJSON, err := json.Marshal(event)
		if err != nil {
			s.logger.Errorf("Error marshaling event: %v", err)
			continue
		}

		s.io.Emit("gateway_event", string(eventJSON))
	}
}

// broadcastStats sends current stats to all connected clients
func (s *Server) broadcastStats() {
	if s.io == nil {
		return
	}

	statsJSON, err := json.Marshal(s.config.Orchestrator.Stats())
	if err != nil {
		s.logger.Errorf("Error marshaling stats: %v", err)
		return
	}

	s.io.Emit("stats_update", string(statsJSON))
}
