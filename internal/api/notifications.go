package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jdholdren/bazaar/internal/market"
	"github.com/jdholdren/bazaar/internal/serverutil"
)

type NotificationsResp struct {
	Items      []market.Notification `json:"items"`
	Unread     int                   `json:"unread"`
	Pagination paginationMeta        `json:"pagination"`
}

func (s *Server) getNotifications(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx = r.Context()
		ws  = workspaceFrom(ctx)
	)
	limit, offset := parsePaginationParams(r, 20, 100)

	all, err := ws.client.Notifications(ctx)
	if err != nil {
		return err
	}

	var unread int
	for _, n := range all {
		if !n.IsRead {
			unread++
		}
	}
	page, meta := paginate(all, limit, offset)

	return serverutil.WriteJSON(w, http.StatusOK, NotificationsResp{
		Items:      page,
		Unread:     unread,
		Pagination: meta,
	})
}

func (s *Server) postNotificationRead(w http.ResponseWriter, r *http.Request) error {
	ws := workspaceFrom(r.Context())
	if err := ws.client.MarkNotificationRead(r.Context(), mux.Vars(r)["id"]); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) deleteNotification(w http.ResponseWriter, r *http.Request) error {
	ws := workspaceFrom(r.Context())
	if err := ws.client.DeleteNotification(r.Context(), mux.Vars(r)["id"]); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}
