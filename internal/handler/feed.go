package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/yarukoto/yarukoto/internal/ctxkeys"
	"github.com/yarukoto/yarukoto/internal/realtime"
	"github.com/yarukoto/yarukoto/internal/service"
)

// FeedHandler streams collection snapshots over a websocket. Clients get
// the current state on attach and a fresh full snapshot after every
// committed change, mirroring a document-store subscription.
type FeedHandler struct {
	hub         *realtime.Hub
	goalService *service.GoalService
	yearService *service.YearService
}

func NewFeedHandler(hub *realtime.Hub, goalService *service.GoalService, yearService *service.YearService) *FeedHandler {
	return &FeedHandler{
		hub:         hub,
		goalService: goalService,
		yearService: yearService,
	}
}

func (h *FeedHandler) Feed(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	collection := r.URL.Query().Get("collection")
	if collection == "" {
		collection = service.TodosCollection
	}

	snapshot, err := h.snapshot(user.ID, collection)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err, "user_id", user.ID)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	ch, cancel := h.hub.Subscribe(realtime.Topic(user.ID, collection))
	defer cancel()

	// CloseRead gives us a context that ends when the client goes away.
	ctx := conn.CloseRead(r.Context())

	err = conn.Write(ctx, websocket.MessageText, snapshot)
	if err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case msg, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			err = conn.Write(ctx, websocket.MessageText, msg)
			if err != nil {
				return
			}
		}
	}
}

func (h *FeedHandler) snapshot(userID, collection string) ([]byte, error) {
	switch collection {
	case service.TodosCollection:
		goals, err := h.goalService.TimeframeGoals(userID, time.Now())
		if err != nil {
			return nil, err
		}
		return json.Marshal(goals)
	case service.YearsCollection:
		years, err := h.yearService.Years(userID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(years)
	}

	var year int
	_, err := fmt.Sscanf(collection, "years/%d/items", &year)
	if err != nil {
		return nil, fmt.Errorf("unknown collection %q", collection)
	}
	goals, err := h.goalService.YearGoals(userID, year)
	if err != nil {
		return nil, err
	}
	return json.Marshal(goals)
}
