package api

import (
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	bazerrs "github.com/jdholdren/bazaar/internal/errors"
	"github.com/jdholdren/bazaar/internal/market"
	"github.com/jdholdren/bazaar/internal/serverutil"
)

// Viewer is the structured data about the current user in the frontend.
type Viewer struct {
	User        *market.User `json:"user,omitempty"`
	DisplayName string       `json:"displayName,omitempty"`
	Favorites   []string     `json:"favorites"`
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx = r.Context()
		ws  = workspaceFrom(ctx)
	)
	if !ws.sess.Active() {
		return serverutil.WriteJSON(w, http.StatusOK, Viewer{Favorites: []string{}})
	}

	usr, err := ws.client.Profile(ctx, ws.sess.User().ID)
	if err != nil {
		return err
	}
	favs, err := ws.favs.IDs(ctx)
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, Viewer{
		User:        &usr,
		DisplayName: usr.DisplayName(),
		Favorites:   favs,
	})
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (req loginReq) Validate() error {
	var details []bazerrs.Detail
	if strings.TrimSpace(req.Username) == "" {
		details = append(details, bazerrs.Detail{Field: "username", Error: "Username is required."})
	}
	if req.Password == "" {
		details = append(details, bazerrs.Detail{Field: "password", Error: "Password is required."})
	}

	return bazerrs.Invalid("invalid login", details)
}

func (s *Server) postLogin(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx = r.Context()
		ws  = workspaceFrom(ctx)
	)
	body, err := serverutil.DecodeValid[loginReq](r.Body)
	if err != nil {
		return err
	}

	usr, err := ws.client.Login(ctx, market.Credentials{
		Username: strings.TrimSpace(body.Username),
		Password: body.Password,
	})
	if err != nil {
		return err
	}

	setSession(w, s.secureCookie, s.httpsCookies, sessionState{
		WorkspaceID: ws.id,
		Token:       ws.sess.AccessToken(),
		UserID:      usr.ID,
		Username:    usr.Username,
	})

	// The feed marks favorites from the local set, so fill it now.
	favs, err := ws.favs.IDs(ctx)
	if err != nil {
		slog.WarnContext(ctx, "error loading favorites after login", "error", err)
		favs = []string{}
	}

	return serverutil.WriteJSON(w, http.StatusOK, Viewer{
		User:        &usr,
		DisplayName: usr.DisplayName(),
		Favorites:   favs,
	})
}

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

const minPasswordLength = 6

func (req registerReq) Validate() error {
	var details []bazerrs.Detail
	if len(strings.TrimSpace(req.Username)) < 3 {
		details = append(details, bazerrs.Detail{Field: "username", Error: "Username must be at least 3 characters."})
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		details = append(details, bazerrs.Detail{Field: "email", Error: "Email is not valid."})
	}
	if len(req.Password) < minPasswordLength {
		details = append(details, bazerrs.Detail{Field: "password", Error: "Password must be at least 6 characters."})
	}

	return bazerrs.Invalid("invalid registration", details)
}

func (s *Server) postRegister(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx = r.Context()
		ws  = workspaceFrom(ctx)
	)
	body, err := serverutil.DecodeValid[registerReq](r.Body)
	if err != nil {
		return err
	}

	usr, err := ws.client.Register(ctx, market.Registration{
		Username: strings.TrimSpace(body.Username),
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusCreated, usr)
}

func (s *Server) getLogout(w http.ResponseWriter, r *http.Request) error {
	ws := workspaceFrom(r.Context())
	ws.client.Logout()
	setSession(w, s.secureCookie, s.httpsCookies, sessionState{WorkspaceID: ws.id})

	// Back to the feed
	http.Redirect(w, r, "/", http.StatusFound)

	return nil
}
