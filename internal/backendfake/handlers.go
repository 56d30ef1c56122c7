package backendfake

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/auction-storefront/users"
)

// Route templates, usable with Override and Calls
const (
	RouteToken          = apiPrefix + "/token/"
	RouteTokenRefresh   = apiPrefix + "/token/refresh/"
	RouteLogout         = apiPrefix + "/usuarios/log-out/"
	RouteProfile        = apiPrefix + "/usuarios/profile/"
	RouteChangePassword = apiPrefix + "/usuarios/change-password/"
	RouteRegister       = registerPath
	RouteAuctions       = apiPrefix + "/subastas/"
	RouteCategories     = apiPrefix + "/subastas/categorias/"
	RouteAuction        = apiPrefix + "/subastas/{id:[0-9]+}/"
	RouteAuctionBids    = apiPrefix + "/subastas/{id:[0-9]+}/pujas/"
	RouteBid            = apiPrefix + "/subastas/{id:[0-9]+}/pujas/{bid:[0-9]+}/"
	RouteComments       = apiPrefix + "/subastas/{id:[0-9]+}/comentarios/"
	RouteComment        = apiPrefix + "/subastas/{id:[0-9]+}/comentarios/{comment:[0-9]+}/"
	RouteRatings        = apiPrefix + "/subastas/{id:[0-9]+}/ratings/"
	RouteRating         = apiPrefix + "/subastas/{id:[0-9]+}/ratings/{rating:[0-9]+}/"
	RouteMyAuctions     = apiPrefix + "/misSubastas/"
	RouteMyBids         = apiPrefix + "/misPujas/"
)

func (b *Backend) registerRoutes() {
	r := b.router
	r.HandleFunc(RouteToken, b.handleToken).Methods(http.MethodPost)
	r.HandleFunc(RouteTokenRefresh, b.handleRefresh).Methods(http.MethodPost)
	r.HandleFunc(RouteLogout, b.handleLogout).Methods(http.MethodPost)
	r.HandleFunc(RouteProfile, b.handleGetProfile).Methods(http.MethodGet)
	r.HandleFunc(RouteProfile, b.handlePatchProfile).Methods(http.MethodPatch)
	r.HandleFunc(RouteChangePassword, b.handleChangePassword).Methods(http.MethodPost)
	r.HandleFunc(RouteRegister, b.handleRegister).Methods(http.MethodPost)

	r.HandleFunc(RouteCategories, b.handleCategories).Methods(http.MethodGet)
	r.HandleFunc(RouteAuctions, b.handleListAuctions).Methods(http.MethodGet)
	r.HandleFunc(RouteAuctions, b.handleCreateAuction).Methods(http.MethodPost)
	r.HandleFunc(RouteAuction, b.handleGetAuction).Methods(http.MethodGet)
	r.HandleFunc(RouteAuction, b.handleUpdateAuction).Methods(http.MethodPatch, http.MethodPut)
	r.HandleFunc(RouteAuction, b.handleDeleteAuction).Methods(http.MethodDelete)
	r.HandleFunc(RouteMyAuctions, b.handleMyAuctions).Methods(http.MethodGet)

	r.HandleFunc(RouteAuctionBids, b.handlePlaceBid).Methods(http.MethodPost)
	r.HandleFunc(RouteBid, b.handleUpdateBid).Methods(http.MethodPatch, http.MethodPut)
	r.HandleFunc(RouteBid, b.handleDeleteBid).Methods(http.MethodDelete)
	r.HandleFunc(RouteMyBids, b.handleMyBids).Methods(http.MethodGet)

	r.HandleFunc(RouteComments, b.handleListComments).Methods(http.MethodGet)
	r.HandleFunc(RouteComments, b.handleAddComment).Methods(http.MethodPost)
	r.HandleFunc(RouteComment, b.handleUpdateComment).Methods(http.MethodPut, http.MethodPatch)
	r.HandleFunc(RouteComment, b.handleDeleteComment).Methods(http.MethodDelete)

	r.HandleFunc(RouteRatings, b.handleAddRating).Methods(http.MethodPost)
	r.HandleFunc(RouteRating, b.handleUpdateRating).Methods(http.MethodPut, http.MethodPatch)
}

func (b *Backend) handleToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "JSON parse error"})
		return
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	acc, ok := b.users[req.Username]
	if !ok || acc.password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "No active account found with the given credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access":  b.accessTokenLocked(req.Username, b.accessTTL),
		"refresh": b.refreshTokenLocked(req.Username),
	})
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := decodeBody(r, &req); err != nil || req.Refresh == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"refresh": []string{"This field is required."}})
		return
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	username, ok := b.refreshTokens[req.Refresh]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": b.accessTokenLocked(username, b.accessTTL)})
}

func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.authenticate(w, r); !ok {
		return
	}
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := decodeBody(r, &req); err != nil || req.Refresh == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"refresh": []string{"This field is required."}})
		return
	}

	b.lock.Lock()
	delete(b.refreshTokens, req.Refresh)
	b.lock.Unlock()
	w.WriteHeader(http.StatusResetContent)
}

func (b *Backend) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	acc, ok := b.authenticate(w, r)
	if !ok {
		return
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	writeJSON(w, http.StatusOK, acc.profile)
}

func (b *Backend) handlePatchProfile(w http.ResponseWriter, r *http.Request) {
	acc, ok := b.authenticate(w, r)
	if !ok {
		return
	}
	var update users.ProfileUpdate
	if err := decodeBody(r, &update); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "JSON parse error"})
		return
	}
	if update.Email != nil && !strings.Contains(*update.Email, "@") {
		writeJSON(w, http.StatusBadRequest, map[string]any{"email": []string{"Enter a valid email address."}})
		return
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	p := &acc.profile
	apply(&p.Email, update.Email)
	apply(&p.FirstName, update.FirstName)
	apply(&p.LastName, update.LastName)
	apply(&p.BirthDate, update.BirthDate)
	apply(&p.Locality, update.Locality)
	apply(&p.Municipality, update.Municipality)
	writeJSON(w, http.StatusOK, acc.profile)
}

func apply(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func (b *Backend) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	acc, ok := b.authenticate(w, r)
	if !ok {
		return
	}
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "JSON parse error"})
		return
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	if acc.password != req.OldPassword {
		writeJSON(w, http.StatusBadRequest, map[string]any{"old_password": []string{"Wrong password."}})
		return
	}
	acc.password = req.NewPassword
	writeJSON(w, http.StatusOK, map[string]any{"detail": "Password updated successfully"})
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "JSON parse error"})
		return
	}
	if _, ok := req["confirm_password"]; ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"confirm_password": []string{"Unknown field."}})
		return
	}
	username, _ := req["username"].(string)
	password, _ := req["password"].(string)

	b.lock.Lock()
	defer b.lock.Unlock()
	if _, exists := b.users[username]; exists {
		writeJSON(w, http.StatusBadRequest, map[string]any{"username": []string{"A user with that username already exists."}})
		return
	}
	profile := users.Profile{}
	profile.Email, _ = req["email"].(string)
	profile.FirstName, _ = req["first_name"].(string)
	profile.LastName, _ = req["last_name"].(string)
	profile.BirthDate, _ = req["birth_date"].(string)
	profile.Locality, _ = req["locality"].(string)
	profile.Municipality, _ = req["municipality"].(string)
	writeJSON(w, http.StatusCreated, b.addUserLocked(username, password, profile))
}

func (b *Backend) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"count": len(b.categories), "results": b.categories})
}

// handleListAuctions serves the paginated shape, misSubastas serves a bare array
func (b *Backend) handleListAuctions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search := strings.ToLower(q.Get("search"))
	category := q.Get("categoria")

	b.lock.Lock()
	defer b.lock.Unlock()
	results := []resource{}
	for _, a := range sorted(b.auctions) {
		if search != "" {
			title, _ := a["titulo"].(string)
			if !strings.Contains(strings.ToLower(title), search) {
				continue
			}
		}
		if category != "" && toString(a["categoria"]) != category {
			continue
		}
		price := toFloat(a["precio_actual"])
		if lo := q.Get("precio_min"); lo != "" && price < toFloat(lo) {
			continue
		}
		if hi := q.Get("precio_max"); hi != "" && price > toFloat(hi) {
			continue
		}
		results = append(results, a)
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(results), "next": nil, "previous": nil, "results": results})
}

func (b *Backend) handleCreateAuction(w http.ResponseWriter, r *http.Request) {
	acc, ok := b.authenticate(w, r)
	if !ok {
		return
	}
	var req map[string]any
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "JSON parse error"})
		return
	}
	if title, _ := req["titulo"].(string); title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"titulo": []string{"This field is required."}})
		return
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	id := b.insertLocked(b.auctions, withOwner(req, "usuario", acc.profile.ID))
	writeJSON(w, http.StatusCreated, b.auctions[id])
}

func (b *Backend) handleGetAuction(w http.ResponseWriter, r *http.Request) {
	b.lock.Lock()
	defer b.lock.Unlock()
	a, ok := b.auctions[pathID(r, "id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not found."})
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (b *Backend) handleUpdateAuction(w http.ResponseWriter, r *http.Request) {
	acc, ok := b.authenticate(w, r)
	if !ok {
		return
	}
	var req map[string]any
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "JSON parse error"})
		return
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	a, found := b.ownedLocked(w, b.auctions, pathID(r, "id"), "usuario", acc.profile.ID)
	if !found {
		return
	}
	for k, v := range req {
		if k != "id" && k != "usuario" {
			a[k] = v
		}
	}
	writeJSON(w, http.StatusOK, a)
}

func (b *Backend) handleDeleteAuction(w http.ResponseWriter, r *http.Request) {
	acc, ok := b.authenticate(w, r)
	if !ok {
		return
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	id := pathID(r, "id")
	if _, found := b.ownedLocked(w, b.auctions, id, "usuario", acc.profile.ID); !found {
		return
	}
	delete(b.auctions, id)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) handleMyAuctions(w http.ResponseWriter, r *http.Request) {
	acc, ok := b.authenticate(w, r)
	if !ok {
		return
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	writeJSON(w, http.StatusOK, filterOwned(b.auctions, "usuario", acc.profile.ID))
}

func (b *Backend) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	acc, ok := b.authenticate(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount float64 `json:"cantidad"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"cantidad": []string{"A valid number is required."}})
		return
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	auctionID := pathID(r, "id")
	a, found := b.auctions[auctionID]
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not found."})
		return
	}
	if current := toFloat(a["precio_actual"]); req.Amount <= current {
		writeJSON(w, http.StatusBadRequest, map[string]any{"cantidad": []string{"La puja debe ser mayor que el precio actual."}})
		return
	}
	a["precio_actual"] = formatAmount(req.Amount)
	id := b.insertLocked(b.bids, resource{
		"subasta":        auctionID,
		"pujador":        acc.profile.ID,
		"pujador_nombre": acc.profile.Username,
		"cantidad":       formatAmount(req.Amount),
		"fecha_puja":     b.now().UTC().Format(time.RFC3339),
	})
	writeJSON(w, http.StatusCreated, b.bids[id])
}

func (b *Backend) handleUpdateBid(w http.ResponseWriter, r *http.Request) {
	acc, ok := b.authenticate(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount float64 `json:"cantidad"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"cantidad": []string{"A valid number is required."}})
		return
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	bid, found := b.ownedLocked(w, b.bids, pathID(r, "bid"), "pujador", acc.profile.ID)
	if !found {
		return
	}
	bid["cantidad"] = formatAmount(req.Amount)
	writeJSON(w, http.StatusOK, bid)
}

func (b *Backend) handleDeleteBid(w http.ResponseWriter, r *http.Request) {
	acc, ok := b.authenticate(w, r)
	if !ok {
		return
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	id := pathID(r, "bid")
	if _, found := b.ownedLocked(w, b.bids, id, "pujador", acc.profile.ID); !found {
		return
	}
	delete(b.bids, id)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) handleMyBids(w http.ResponseWriter, r *http.Request) {
	acc, ok := b.authenticate(w, r)
	if !ok {
		return
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	writeJSON(w, http.StatusOK, filterOwned(b.bids, "pujador", acc.profile.ID))
}

func (b *Backend) handleListComments(w http.ResponseWriter, r *http.Request) {
	b.lock.Lock()
	defer b.lock.Unlock()
	auctionID := pathID(r, "id")
	results := []resource{}
	for _, c := range sorted(b.comments) {
		if toInt(c["subasta"]) == auctionID {
			results = append(results, c)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(results), "results": results})
}

func (b *Backend) handleAddComment(w http.ResponseWriter, r *http.Request) {
	acc, ok := b.authenticate(w, r)
	if !ok {
		return
	}
	var req struct {
		Title string `json:"titulo"`
		Text  string `json:"texto"`
	}
	if err := decodeBody(r, &req); err != nil || req.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"texto": []string{"This field may not be blank."}})
		return
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	id := b.insertLocked(b.comments, resource{
		"subasta":        pathID(r, "id"),
		"usuario":        acc.profile.ID,
		"usuario_nombre": acc.profile.Username,
		"titulo":         req.Title,
		"texto":          req.Text,
		"fecha_creacion": b.now().UTC().Format(time.RFC3339),
	})
	writeJSON(w, http.StatusCreated, b.comments[id])
}

func (b *Backend) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	acc, ok := b.authenticate(w, r)
	if !ok {
		return
	}
	var req struct {
		Title string `json:"titulo"`
		Text  string `json:"texto"`
	}
	if err := decodeBody(r, &req); err != nil || req.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"texto": []string{"This field may not be blank."}})
		return
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	comment, found := b.ownedLocked(w, b.comments, pathID(r, "comment"), "usuario", acc.profile.ID)
	if !found {
		return
	}
	comment["titulo"] = req.Title
	comment["texto"] = req.Text
	writeJSON(w, http.StatusOK, comment)
}

func (b *Backend) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	acc, ok := b.authenticate(w, r)
	if !ok {
		return
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	id := pathID(r, "comment")
	if _, found := b.ownedLocked(w, b.comments, id, "usuario", acc.profile.ID); !found {
		return
	}
	delete(b.comments, id)
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) handleAddRating(w http.ResponseWriter, r *http.Request) {
	acc, ok := b.authenticate(w, r)
	if !ok {
		return
	}
	var req struct {
		Value int `json:"valor"`
	}
	if err := decodeBody(r, &req); err != nil || req.Value < 1 || req.Value > 5 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"valor": []string{"Ensure this value is between 1 and 5."}})
		return
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	id := b.insertLocked(b.ratings, resource{"subasta": pathID(r, "id"), "usuario": acc.profile.ID, "valor": req.Value})
	writeJSON(w, http.StatusCreated, b.ratings[id])
}

func (b *Backend) handleUpdateRating(w http.ResponseWriter, r *http.Request) {
	acc, ok := b.authenticate(w, r)
	if !ok {
		return
	}
	var req struct {
		Value int `json:"valor"`
	}
	if err := decodeBody(r, &req); err != nil || req.Value < 1 || req.Value > 5 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"valor": []string{"Ensure this value is between 1 and 5."}})
		return
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	rating, found := b.ownedLocked(w, b.ratings, pathID(r, "rating"), "usuario", acc.profile.ID)
	if !found {
		return
	}
	rating["valor"] = req.Value
	writeJSON(w, http.StatusOK, rating)
}

// ownedLocked looks up id in table, writing 404 or 403 when the caller may not touch it
func (b *Backend) ownedLocked(w http.ResponseWriter, table map[int]resource, id int, ownerKey string, userID int) (resource, bool) {
	res, ok := table[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not found."})
		return nil, false
	}
	if toInt(res[ownerKey]) != userID {
		writeJSON(w, http.StatusForbidden, map[string]any{"detail": "You do not have permission to perform this action."})
		return nil, false
	}
	return res, true
}

func filterOwned(table map[int]resource, ownerKey string, userID int) []resource {
	out := []resource{}
	for _, res := range sorted(table) {
		if toInt(res[ownerKey]) == userID {
			out = append(out, res)
		}
	}
	return out
}

func sorted(table map[int]resource) []resource {
	ids := make([]int, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]resource, 0, len(ids))
	for _, id := range ids {
		out = append(out, table[id])
	}
	return out
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return -1
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	default:
		return ""
	}
}

func formatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
