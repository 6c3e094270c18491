package api

import (
	"net/http"
	"strings"

	bazerrs "github.com/jdholdren/bazaar/internal/errors"
	"github.com/jdholdren/bazaar/internal/market"
	"github.com/jdholdren/bazaar/internal/serverutil"
)

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx = r.Context()
		ws  = workspaceFrom(ctx)
	)

	usr, err := ws.client.Profile(ctx, ws.sess.User().ID)
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, usr)
}

type profileReq struct {
	market.ProfileUpdate
}

func (req profileReq) Validate() error {
	phone := strings.TrimSpace(req.PhoneNumber)
	if phone == "" {
		return nil
	}

	digits := 0
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' && i == 0, r == ' ', r == '-', r == '(', r == ')':
		default:
			return bazerrs.Invalid("invalid profile", []bazerrs.Detail{{Field: "phoneNumber", Error: "Phone number may only contain digits."}})
		}
	}
	if digits < 10 {
		return bazerrs.Invalid("invalid profile", []bazerrs.Detail{{Field: "phoneNumber", Error: "Phone number is too short."}})
	}

	return nil
}

func (s *Server) putProfile(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx = r.Context()
		ws  = workspaceFrom(ctx)
	)
	body, err := serverutil.DecodeValid[profileReq](r.Body)
	if err != nil {
		return err
	}

	usr, err := ws.client.UpdateProfile(ctx, body.ProfileUpdate)
	if err != nil {
		return err
	}
	// Listing pages show the seller's name and city.
	s.sellerCache.Remove(usr.ID)

	return serverutil.WriteJSON(w, http.StatusOK, usr)
}

type passwordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (req passwordReq) Validate() error {
	var details []bazerrs.Detail
	if req.CurrentPassword == "" {
		details = append(details, bazerrs.Detail{Field: "currentPassword", Error: "Current password is required."})
	}
	switch {
	case len(req.NewPassword) < minPasswordLength:
		details = append(details, bazerrs.Detail{Field: "newPassword", Error: "Password must be at least 6 characters."})
	case req.NewPassword == req.CurrentPassword:
		details = append(details, bazerrs.Detail{Field: "newPassword", Error: "New password must differ from the current one."})
	}

	return bazerrs.Invalid("invalid password change", details)
}

func (s *Server) postPassword(w http.ResponseWriter, r *http.Request) error {
	var (
		ctx = r.Context()
		ws  = workspaceFrom(ctx)
	)
	body, err := serverutil.DecodeValid[passwordReq](r.Body)
	if err != nil {
		return err
	}

	err = ws.client.ChangePassword(ctx, market.PasswordChange{
		CurrentPassword: body.CurrentPassword,
		NewPassword:     body.NewPassword,
	})
	if err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}
