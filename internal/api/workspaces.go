package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	bazerrs "github.com/jdholdren/bazaar/internal/errors"
	"github.com/jdholdren/bazaar/internal/favorites"
	"github.com/jdholdren/bazaar/internal/feed"
	"github.com/jdholdren/bazaar/internal/logger"
	"github.com/jdholdren/bazaar/internal/market"
	"github.com/jdholdren/bazaar/internal/marketapi"
	"github.com/jdholdren/bazaar/internal/serverutil"
	"github.com/jdholdren/bazaar/internal/session"
)

const workspaceNamespace = "-ws"

// A workspace is everything one browser has going on with the backend.
type workspace struct {
	id     string
	sess   *session.Session
	client *marketapi.Client
	feed   *feed.Controller
	favs   *favorites.Set
}

func (s *Server) newWorkspace(id string) *workspace {
	var (
		sess   = session.New()
		client = marketapi.New(s.marketURL, sess, s.clientOpts...)
		attrs  = slog.String("workspace", id)
	)

	return &workspace{
		id:     id,
		sess:   sess,
		client: client,
		feed: feed.New(client,
			feed.WithPageSize(s.feedSize),
			feed.WithReporter(func(err error) {
				slog.Error("error loading listings", attrs, "error", err)
			}),
		),
		favs: favorites.New(client, sess),
	}
}

func (ws *workspace) close() {
	ws.favs.Close()
}

type workspaceKey struct{}

// workspaceFrom returns the workspace [Server.workspaceMiddleware] put on the context.
func workspaceFrom(ctx context.Context) *workspace {
	ws, _ := ctx.Value(workspaceKey{}).(*workspace)
	return ws
}

// workspaceMiddleware finds the request's workspace, rebuilding it from the cookie
// or starting a new one.
func (s *Server) workspaceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := session(r, s.secureCookie)
		if state.WorkspaceID == "" {
			state = sessionState{WorkspaceID: fmt.Sprintf("%s%s", uuid.NewString(), workspaceNamespace)}
			setSession(w, s.secureCookie, s.httpsCookies, state)
		}

		ws, ok := s.workspaces.Get(state.WorkspaceID)
		if !ok {
			ws = s.restoreWorkspace(r.Context(), w, state)
		}

		ctx := logger.Ctx(r.Context(), slog.String("workspace", ws.id))
		ctx = context.WithValue(ctx, workspaceKey{}, ws)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) restoreWorkspace(ctx context.Context, w http.ResponseWriter, state sessionState) *workspace {
	ws := s.newWorkspace(state.WorkspaceID)
	if state.Token != "" {
		err := ws.sess.Set(state.Token, market.User{ID: state.UserID, Username: state.Username})
		if err != nil {
			slog.InfoContext(ctx, "dropping session from cookie", "error", err)
			setSession(w, s.secureCookie, s.httpsCookies, sessionState{WorkspaceID: state.WorkspaceID})
		}
	}

	// Another request may have restored it first.
	prev, ok, _ := s.workspaces.PeekOrAdd(ws.id, ws)
	if ok {
		ws.close()
		return prev
	}

	return ws
}

// requireSessionMiddleware turns away requests whose workspace isn't logged in.
func requireSessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws := workspaceFrom(r.Context())
		if ws == nil || !ws.sess.Active() {
			serverutil.HandlerFuncE(func(http.ResponseWriter, *http.Request) error {
				return bazerrs.E(market.ErrUnauthorized, http.StatusUnauthorized)
			}).ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}
