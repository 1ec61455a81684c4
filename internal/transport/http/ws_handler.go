package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"live-poll-service/internal/app"
	"live-poll-service/internal/domain"
)

type WSHandler struct {
	service  *app.PollService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.PollService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type presetPayload struct {
	QuestionID string `json:"questionId"`
}

type answerPayload struct {
	Option      *int   `json:"option"`
	StudentName string `json:"studentName"`
	QuestionRef string `json:"questionRef"`
}

type chatPayload struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

type historyPayload struct {
	Entries []domain.HistoryEntry `json:"entries"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Seq     uint64 `json:"seq,omitempty"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Kind: errorKind(err), Message: err.Error()}}
}

// ServeWS upgrades HTTP requests to websockets and wires them into the poll use cases.
// Query: role=teacher|student, name=<display name>, userId=<optional stable id>.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	displayName := strings.TrimSpace(r.URL.Query().Get("name"))
	if displayName == "" {
		http.Error(w, "missing name", http.StatusBadRequest)
		return
	}
	role := domain.ParseRole(r.URL.Query().Get("role"))
	participantID := r.URL.Query().Get("userId")
	if participantID == "" {
		participantID = uuid.NewString()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connection, err := h.service.Connect(r.Context(), participantID, displayName, role)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	defer connection.Close()
	log.Printf("participant joined: id=%s role=%s name=%q", participantID, role, displayName)
	updates := connection.Events

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer; gorilla connections do not support concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				// Unblock the reader and keep draining so producers never stall.
				_ = conn.Close()
				for range send {
				}
				return
			}
		}
	}()

	// The view goes out before any event that followed it.
	send <- outboundMessage[any]{Type: "joined", Payload: connection.View}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case ev, ok := <-updates:
				if !ok {
					// Evicted for falling behind; drop the connection so the client resyncs.
					_ = conn.Close()
					return
				}
				select {
				case send <- outboundMessage[any]{Type: string(ev.Type), Seq: ev.Seq, Payload: ev.Payload()}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if reply, ok := h.dispatch(r, participantID, inbound); ok {
			send <- reply
		}
	}
	log.Printf("participant left: id=%s", participantID)

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// dispatch runs one inbound request. Broadcast effects arrive through the
// subscription; the returned message goes to the sender only.
func (h *WSHandler) dispatch(r *http.Request, participantID string, inbound inboundMessage) (outboundMessage[any], bool) {
	ctx := r.Context()
	switch inbound.Type {
	case "newQuestion":
		var draft domain.QuestionDraft
		if err := json.Unmarshal(inbound.Payload, &draft); err != nil {
			return errorMessage(errInvalidPayload), true
		}
		if _, err := h.service.PublishQuestion(ctx, participantID, draft); err != nil {
			log.Printf("publish rejected: id=%s err=%v", participantID, err)
			return errorMessage(err), true
		}
	case "publishPreset":
		var payload presetPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.QuestionID == "" {
			return errorMessage(errInvalidPayload), true
		}
		if _, err := h.service.PublishPreset(ctx, participantID, payload.QuestionID); err != nil {
			log.Printf("preset rejected: id=%s question=%s err=%v", participantID, payload.QuestionID, err)
			return errorMessage(err), true
		}
	case "submitAnswer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Option == nil {
			return errorMessage(errInvalidPayload), true
		}
		receipt, err := h.service.SubmitAnswer(ctx, participantID, domain.AnswerSubmission{
			Option:      *payload.Option,
			StudentName: payload.StudentName,
			QuestionRef: payload.QuestionRef,
		})
		if err != nil {
			return errorMessage(err), true
		}
		return outboundMessage[any]{Type: "answerResult", Payload: receipt}, true
	case "closeQuestion":
		if _, err := h.service.CloseQuestion(ctx, participantID); err != nil {
			return errorMessage(err), true
		}
	case "chatMessage":
		var payload chatPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage(errInvalidPayload), true
		}
		if _, err := h.service.SendChat(ctx, participantID, payload.Sender, payload.Message); err != nil {
			return errorMessage(err), true
		}
	case "history":
		return outboundMessage[any]{Type: "history", Payload: historyPayload{Entries: h.service.History(ctx)}}, true
	default:
		return errorMessage(errUnsupportedType), true
	}
	return outboundMessage[any]{}, false
}
