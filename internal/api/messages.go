package api

import (
	"net/http"
	"strings"
	"unicode/utf8"

	goaway "github.com/TwiN/go-away"
	"github.com/gorilla/mux"

	bazerrs "github.com/jdholdren/bazaar/internal/errors"
	"github.com/jdholdren/bazaar/internal/serverutil"
)

type messageReq struct {
	Content string `json:"content"`
}

const maxMessageLength = 2000

func (req messageReq) Validate() error {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return bazerrs.Invalid("invalid message", []bazerrs.Detail{{Field: "content", Error: "Message cannot be empty."}})
	}

	// Run a length and profanity check.
	if utf8.RuneCountInString(content) > maxMessageLength {
		return bazerrs.E("message too long", http.StatusUnprocessableEntity)
	}
	if goaway.IsProfane(content) {
		return bazerrs.E("profanity detected in message", http.StatusUnprocessableEntity)
	}

	return nil
}

// postMessage sends a message to the seller of the listing.
func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx = r.Context()
		ws  = workspaceFrom(ctx)
		id  = mux.Vars(r)["id"]
	)
	body, err := serverutil.DecodeValid[messageReq](r.Body)
	if err != nil {
		return err
	}

	l, err := s.listing(ctx, ws, id)
	if err != nil {
		return err
	}
	if l.SellerID == ws.sess.User().ID {
		return bazerrs.E("you can't message yourself", http.StatusBadRequest)
	}

	msg, err := ws.client.SendMessage(ctx, l.ID, l.SellerID, strings.TrimSpace(body.Content))
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusCreated, msg)
}
