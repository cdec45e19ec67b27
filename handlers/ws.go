package handlers

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"

	"github.com/arneor/vault-api/middleware"
	"github.com/arneor/vault-api/services"
	"github.com/arneor/vault-api/utils"
)

// WSHandler pushes ledger change events to every open dashboard so clients
// refetch instead of polling.
type WSHandler struct {
	M *melody.Melody
}

func NewWSHandler() *WSHandler {
	m := melody.New()

	m.Config.MaxMessageSize = 4 * 1024

	// keep idle connections alive behind proxies
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	m.HandleConnect(func(s *melody.Session) {
		email, _ := s.Get("email")
		utils.SafeDebug("Client connected: %v", email)
	})

	m.HandleDisconnect(func(s *melody.Session) {
		email, _ := s.Get("email")
		utils.SafeDebug("Client disconnected: %v", email)
	})

	m.HandleError(func(s *melody.Session, err error) {
		log.Printf("❌ WebSocket Error: %v", err)
	})

	return &WSHandler{M: m}
}

// HandleWS upgrades an authenticated request.
func (h *WSHandler) HandleWS(c *gin.Context) {
	keys := map[string]interface{}{"email": middleware.GetUserID(c)}
	if err := h.M.HandleRequestWithKeys(c.Writer, c.Request, keys); err != nil {
		log.Printf("❌ Failed to upgrade websocket: %v", err)
	}
}

// Broadcast sends ev to every session. It is registered with
// LedgerService.Subscribe and the background refresher.
func (h *WSHandler) Broadcast(ev services.ChangeEvent) {
	msg, err := json.Marshal(ev)
	if err != nil {
		log.Printf("⚠️ Failed to encode change event: %v", err)
		return
	}
	if err := h.M.Broadcast(msg); err != nil {
		log.Printf("⚠️ Error broadcasting %s %s: %v", ev.Type, ev.Entity, err)
	}
}

// Sessions is the number of connected clients.
func (h *WSHandler) Sessions() int {
	return h.M.Len()
}

func (h *WSHandler) Close() error {
	return h.M.Close()
}
