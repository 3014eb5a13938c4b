package fakehub

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/frenchtutorhub/hub/pkg/httpx"
	"github.com/frenchtutorhub/hub/pkg/hubsdk"
)

func decodeBody(r *http.Request, v any) bool {
	return json.NewDecoder(r.Body).Decode(v) == nil
}

// currentUser resolves the account behind the verified access token.
func (h *Hub) currentUser(w http.ResponseWriter, r *http.Request) (*account, bool) {
	raw, ok := httpx.UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return nil, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		httpx.WriteDetail(w, http.StatusUnauthorized, "User not found")
		return nil, false
	}

	h.mu.Lock()
	acct, ok := h.users[id]
	h.mu.Unlock()
	if !ok {
		httpx.WriteDetail(w, http.StatusUnauthorized, "User not found")
		return nil, false
	}
	return acct, true
}

// csrfValid mirrors Django's double-submit check: header must equal cookie.
func csrfValid(r *http.Request) bool {
	ck, err := r.Cookie(hubsdk.CookieCSRF)
	if err != nil || ck.Value == "" {
		return false
	}
	return r.Header.Get(hubsdk.HeaderCSRF) == ck.Value
}

func (h *Hub) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req hubsdk.LoginRequest
	if !decodeBody(r, &req) {
		httpx.WriteDetail(w, http.StatusBadRequest, "JSON parse error")
		return
	}

	h.mu.Lock()
	var found *account
	for _, acct := range h.users {
		if acct.user.Username == req.Username && acct.password == req.Password {
			found = acct
			break
		}
	}
	h.mu.Unlock()

	if found == nil {
		httpx.WriteDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}

	access, refresh, err := h.tokens.issuePair(found.user.ID)
	if err != nil {
		httpx.WriteDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	user := found.user
	httpx.WriteJSON(w, http.StatusOK, hubsdk.LoginResponse{Access: access, Refresh: refresh, User: &user})
}

func (h *Hub) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req hubsdk.RegisterRequest
	if !decodeBody(r, &req) {
		httpx.WriteDetail(w, http.StatusBadRequest, "JSON parse error")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	fields := map[string][]string{}
	if strings.TrimSpace(req.Username) == "" {
		fields["username"] = []string{"This field may not be blank."}
	}
	for _, acct := range h.users {
		if acct.user.Username == req.Username {
			fields["username"] = []string{"A user with that username already exists."}
		}
	}
	if !strings.Contains(req.Email, "@") {
		fields["email"] = []string{"Enter a valid email address."}
	}
	if len(req.Password) < 6 {
		fields["password"] = []string{"Ensure this field has at least 6 characters."}
	}
	if req.Role != "" && req.Role != "student" && req.Role != "teacher" {
		fields["role"] = []string{`"` + req.Role + `" is not a valid choice.`}
	}
	if len(fields) > 0 {
		httpx.WriteJSON(w, http.StatusBadRequest, fields)
		return
	}

	id := h.addUserLocked(req)
	httpx.WriteJSON(w, http.StatusCreated, h.users[id].user)
}

func (h *Hub) handleRefresh(w http.ResponseWriter, r *http.Request) {
	h.refreshCalls.Add(1)
	if h.opts.OnRefresh != nil {
		h.opts.OnRefresh()
	}

	var req struct {
		Refresh string `json:"refresh"`
	}
	if !decodeBody(r, &req) || req.Refresh == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, map[string][]string{"refresh": {"This field is required."}})
		return
	}

	claims, err := h.tokens.verifyRefresh(req.Refresh)
	if err != nil {
		httpx.WriteJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "Token is invalid or expired",
			"code":   "token_not_valid",
		})
		return
	}

	userID, err := strconv.ParseInt(string(claims.UserID), 10, 64)
	if err != nil {
		httpx.WriteDetail(w, http.StatusUnauthorized, "Token contained no recognizable user identification")
		return
	}

	access, err := h.tokens.issueAccess(userID)
	if err != nil {
		httpx.WriteDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := hubsdk.TokenPair{Access: access}
	if h.opts.RotateRefresh {
		h.tokens.blacklistJTI(claims.ID)
		if resp.Refresh, err = h.tokens.issueRefresh(userID); err != nil {
			httpx.WriteDetail(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Hub) handleSync(w http.ResponseWriter, r *http.Request) {
	h.syncCalls.Add(1)

	if !csrfValid(r) {
		httpx.WriteDetail(w, http.StatusForbidden, "CSRF Failed: CSRF token missing or incorrect.")
		return
	}

	var req struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if !decodeBody(r, &req) || req.AccessToken == "" {
		httpx.WriteDetail(w, http.StatusBadRequest, "Access token is required")
		return
	}

	h.mu.Lock()
	h.lastSync = SyncRecord{
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		CSRF:         r.Header.Get(hubsdk.HeaderCSRF),
	}
	h.mu.Unlock()

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"detail": "Tokens synced with session", "success": true})
}

func (h *Hub) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.logoutCalls.Add(1)

	if !csrfValid(r) {
		httpx.WriteDetail(w, http.StatusForbidden, "CSRF Failed: CSRF token missing or incorrect.")
		return
	}
	httpx.WriteDetail(w, http.StatusOK, "Successfully logged out")
}

func (h *Hub) handleMe(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	h.mu.Lock()
	user := acct.user
	h.mu.Unlock()
	httpx.WriteJSON(w, http.StatusOK, user)
}

func (h *Hub) handleProfile(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	h.mu.Lock()
	profile := acct.profile
	h.mu.Unlock()
	httpx.WriteJSON(w, http.StatusOK, profile)
}

func (h *Hub) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	acct, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var upd hubsdk.ProfileUpdate
	if !decodeBody(r, &upd) {
		httpx.WriteDetail(w, http.StatusBadRequest, "JSON parse error")
		return
	}

	h.mu.Lock()
	if upd.FirstName != nil {
		acct.user.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		acct.user.LastName = *upd.LastName
	}
	if upd.Email != nil {
		acct.user.Email = *upd.Email
	}
	if upd.Bio != nil {
		acct.profile.Bio = *upd.Bio
	}
	profile := acct.profile
	h.mu.Unlock()

	httpx.WriteJSON(w, http.StatusOK, profile)
}
