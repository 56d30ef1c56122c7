package backendfake

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jrsteele09/auction-storefront/routes"
	"github.com/jrsteele09/auction-storefront/users"
)

const (
	apiPrefix    = "/api"
	registerPath = "/register/api/users/register/"
)

// Backend is an in-memory stand-in for the storefront REST API, served over
// httptest. Routes follow the real backend, tokens are HS256 JWTs.
type Backend struct {
	server *httptest.Server
	router *mux.Router

	lock          sync.Mutex
	secret        []byte
	accessTTL     time.Duration
	now           func() time.Time
	nextID        int
	users         map[string]*account // username -> account
	refreshTokens map[string]string   // refresh token -> username
	auctions      map[int]resource
	bids          map[int]resource
	comments      map[int]resource
	ratings       map[int]resource
	categories    []resource
	overrides     map[string]http.HandlerFunc // "METHOD template" -> handler
	calls         map[string]int              // "METHOD template" -> count
}

type account struct {
	password string
	profile  users.Profile
}

type resource map[string]any

// Option defines a function type to modify the Backend instance.
type Option func(*Backend)

// WithAccessTTL sets the lifetime of issued access tokens
func WithAccessTTL(ttl time.Duration) Option {
	return func(b *Backend) {
		b.accessTTL = ttl
	}
}

// WithNow sets the clock used to issue and check tokens
func WithNow(now func() time.Time) Option {
	return func(b *Backend) {
		b.now = now
	}
}

// New starts a backend that is closed when the test finishes
func New(t testing.TB, options ...Option) *Backend {
	t.Helper()

	b := &Backend{
		secret:        []byte("backendfake-secret"),
		accessTTL:     5 * time.Minute,
		now:           time.Now,
		users:         make(map[string]*account),
		refreshTokens: make(map[string]string),
		auctions:      make(map[int]resource),
		bids:          make(map[int]resource),
		comments:      make(map[int]resource),
		ratings:       make(map[int]resource),
		categories: []resource{
			{"id": 1, "nombre": "Electrónica"},
			{"id": 2, "nombre": "Hogar"},
		},
		overrides: make(map[string]http.HandlerFunc),
		calls:     make(map[string]int),
	}
	for _, opt := range options {
		opt(b)
	}

	b.router = mux.NewRouter()
	b.router.Use(b.record)
	b.registerRoutes()
	b.server = httptest.NewServer(b.router)
	t.Cleanup(b.server.Close)
	return b
}

// BaseURL is the API base, the equivalent of the configured base URL
func (b *Backend) BaseURL() string {
	return b.server.URL + apiPrefix
}

func (b *Backend) RegisterURL() string {
	return b.server.URL + registerPath
}

func (b *Backend) Routes() routes.Routes {
	return routes.New(b.BaseURL(), b.RegisterURL())
}

// Client returns an HTTP client wired to the test server
func (b *Backend) Client() *http.Client {
	return b.server.Client()
}

// Override replaces the handler for a route template such as "POST /api/usuarios/log-out/"
func (b *Backend) Override(method, template string, h http.HandlerFunc) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.overrides[method+" "+template] = h
}

// Calls counts requests that matched a route template
func (b *Backend) Calls(method, template string) int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.calls[method+" "+template]
}

// TotalCalls counts every request the backend has seen
func (b *Backend) TotalCalls() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	total := 0
	for _, n := range b.calls {
		total += n
	}
	return total
}

// AddUser creates an account and returns its profile with the assigned id
func (b *Backend) AddUser(username, password string, profile users.Profile) users.Profile {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.addUserLocked(username, password, profile)
}

func (b *Backend) addUserLocked(username, password string, profile users.Profile) users.Profile {
	if profile.ID == 0 {
		b.nextID++
		profile.ID = b.nextID
	}
	profile.Username = username
	b.users[username] = &account{password: password, profile: profile}
	return profile
}

// AccessToken mints an access token for username that expires after ttl
func (b *Backend) AccessToken(username string, ttl time.Duration) string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.accessTokenLocked(username, ttl)
}

func (b *Backend) accessTokenLocked(username string, ttl time.Duration) string {
	userID := 0
	if acc, ok := b.users[username]; ok {
		userID = acc.profile.ID
	}
	now := b.now()
	claims := jwtlib.MapClaims{
		"token_type": "access",
		"user_id":    userID,
		"username":   username,
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
		"jti":        uuid.New().String(),
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

func (b *Backend) refreshTokenLocked(username string) string {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		panic(err)
	}
	tok := hex.EncodeToString(raw)
	b.refreshTokens[tok] = username
	return tok
}

// RefreshTokenValid reports whether the backend still accepts a refresh token
func (b *Backend) RefreshTokenValid(tok string) bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	_, ok := b.refreshTokens[tok]
	return ok
}

// AddAuction stores an auction owned by ownerID and returns its id
func (b *Backend) AddAuction(ownerID int, fields map[string]any) int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.insertLocked(b.auctions, withOwner(fields, "usuario", ownerID))
}

// Auction returns a stored auction
func (b *Backend) Auction(id int) (map[string]any, bool) {
	b.lock.Lock()
	defer b.lock.Unlock()
	a, ok := b.auctions[id]
	return a, ok
}

func (b *Backend) insertLocked(table map[int]resource, r resource) int {
	b.nextID++
	r["id"] = b.nextID
	table[b.nextID] = r
	return b.nextID
}

func withOwner(fields map[string]any, key string, ownerID int) resource {
	r := resource{}
	for k, v := range fields {
		r[k] = v
	}
	r[key] = ownerID
	return r
}

// record counts the request by route template and applies any override
func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				key = r.Method + " " + tpl
			}
		}

		b.lock.Lock()
		b.calls[key]++
		override := b.overrides[key]
		b.lock.Unlock()

		if override != nil {
			override(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authenticate resolves the bearer token to an account, writing a 401 when it cannot
func (b *Backend) authenticate(w http.ResponseWriter, r *http.Request) (*account, bool) {
	header := r.Header.Get("Authorization")
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || raw == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Authentication credentials were not provided."})
		return nil, false
	}

	parsed, err := jwtlib.Parse(raw, func(t *jwtlib.Token) (any, error) {
		return b.secret, nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}), jwtlib.WithTimeFunc(b.now))
	if err != nil || !parsed.Valid {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"detail": "Given token not valid for any token type",
			"code":   "token_not_valid",
		})
		return nil, false
	}

	claims, _ := parsed.Claims.(jwtlib.MapClaims)
	username, _ := claims["username"].(string)

	b.lock.Lock()
	acc, ok := b.users[username]
	b.lock.Unlock()
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "User not found", "code": "user_not_found"})
		return nil, false
	}
	return acc, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func pathID(r *http.Request, name string) int {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil {
		return -1
	}
	return id
}
