package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/hostelhub/hostelchat/internal/api/http/converter"
	"github.com/hostelhub/hostelchat/internal/api/http/middleware"
	"github.com/hostelhub/hostelchat/internal/domain"
	"github.com/hostelhub/hostelchat/internal/repository"
	"github.com/hostelhub/hostelchat/internal/service"
	"github.com/hostelhub/hostelchat/lib/logger/sl"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type ChatController struct {
	rooms    service.RoomInteractor
	history  service.HistoryInteractor
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewChatController(rooms service.RoomInteractor, history service.HistoryInteractor, log *slog.Logger) *ChatController {
	if log == nil {
		log = slog.Default()
	}
	return &ChatController{
		rooms:   rooms,
		history: history,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ProvisionRoom creates the chat room record for a hostel.
func (c *ChatController) ProvisionRoom(ctx *gin.Context) {
	type request struct {
		HostelCode string `json:"hostel_code" binding:"required"`
		HostelName string `json:"hostel_name"`
	}

	user, err := middleware.CurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	roomKey, err := c.history.ProvisionRoom(ctx.Request.Context(), req.HostelCode, req.HostelName, user)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, service.ErrPermissionDenied):
			status = http.StatusForbidden
		case errors.Is(err, repository.ErrChatAlreadyExists):
			status = http.StatusConflict
		}
		ctx.JSON(status, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"room_key": roomKey})
}

// History serves one page of a room's transcript. Page 1 is the newest page;
// the client walks the page number upward to load older messages.
func (c *ChatController) History(ctx *gin.Context) {
	roomKey := ctx.Param("roomKey")

	page, err := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}

	messages, totalPages, err := c.history.GetPage(ctx.Request.Context(), roomKey, page)
	if err != nil {
		if errors.Is(err, repository.ErrChatNotProvisioned) {
			// Distinct from an empty history: the hostel has no chat yet.
			ctx.JSON(http.StatusNotFound, gin.H{"error": "chat_not_created"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	pinned, _, err := c.rooms.RoomState(ctx.Request.Context(), roomKey)
	if err != nil {
		c.log.Warn("failed to read pin state for history", sl.Err(err))
	}

	chats := make([]*converter.MessageResponse, 0, len(messages))
	for _, msg := range messages {
		if pinned != nil && msg.ID == pinned.ID {
			msg.Pinned = true
		}
		chats = append(chats, converter.MessageToApi(msg))
	}

	ctx.JSON(http.StatusOK, gin.H{
		"chats":       chats,
		"total_pages": totalPages,
	})
}

// RoomState is the authoritative resync a client performs right after
// (re)joining: the current pin and the current poll, if any.
func (c *ChatController) RoomState(ctx *gin.Context) {
	roomKey := ctx.Param("roomKey")

	pinned, poll, err := c.rooms.RoomState(ctx.Request.Context(), roomKey)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	response := gin.H{
		"pinned_message": nil,
		"active_poll":    nil,
	}
	if pinned != nil {
		response["pinned_message"] = converter.MessageToApi(pinned)
	}
	if poll != nil {
		response["active_poll"] = converter.PollToApi(poll)
	}
	ctx.JSON(http.StatusOK, response)
}

// JoinRoom upgrades the connection and runs the participant's read loop until
// the socket closes. All writes to the socket go through the participant's
// event channel so the write loop is the only writer.
func (c *ChatController) JoinRoom(ctx *gin.Context) {
	roomKey := ctx.Param("roomKey")

	user, err := middleware.CurrentUser(ctx)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.log.Error("failed to upgrade connection", sl.Err(err))
		return
	}

	participant, err := c.rooms.JoinRoom(context.Background(), roomKey, user)
	if err != nil {
		conn.WriteJSON(gin.H{"error": err.Error()})
		conn.Close()
		return
	}
	participant.Socket = conn
	participant.SetStatus(domain.ParticipantStatusConnected)

	go c.forwardParticipantEvents(participant)

	participant.EnqueueEvent(domain.RoomEvent{
		Type:     domain.EventJoined,
		Room:     roomKey,
		SenderID: participant.ID,
		Payload: map[string]any{
			"participant_id": participant.ID,
			"user_id":        participant.UserID.String(),
			"display_name":   participant.DisplayName,
		},
	})

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var event domain.RoomEvent
		if err := conn.ReadJSON(&event); err != nil {
			_ = c.rooms.LeaveRoom(context.Background(), roomKey, participant.ID)
			conn.Close()
			return
		}

		if err := c.rooms.HandleEvent(context.Background(), roomKey, participant.ID, &event); err != nil {
			// Command failures degrade to "try again" on the issuing client;
			// they never tear down the session.
			participant.EnqueueEvent(domain.RoomEvent{
				Type: domain.EventError,
				Room: roomKey,
				Payload: map[string]any{
					"error":   err.Error(),
					"command": event.Type,
				},
			})
		}

		if event.Type == domain.EventLeave {
			conn.Close()
			return
		}
	}
}

func (c *ChatController) forwardParticipantEvents(p *domain.Participant) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.Socket.Close()
	}()

	for {
		select {
		case event, ok := <-p.Events:
			p.Socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				p.Socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := p.Socket.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			p.Socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.Socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
