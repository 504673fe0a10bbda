// Application handles and the access tokens registered for them.
package auth

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// App is an opaque application handle. Services are bound to one App and
// look its token up on every call.
type App struct {
	id uint64
}

var appSeq uint64

// NewApp returns a handle distinct from every other handle in the process.
func NewApp() App {
	return App{id: atomic.AddUint64(&appSeq, 1)}
}

// Valid reports whether the handle came from NewApp.
func (a App) Valid() bool {
	return a.id != 0
}

type Token struct {
	AccessToken string
	ProjectID   string
	// Expiry is zero when unknown.
	Expiry time.Time
}

// Expired reports whether the token has a known expiry before now.
func (t Token) Expired(now time.Time) bool {
	return !t.Expiry.IsZero() && now.After(t.Expiry)
}

// Registry maps application handles to tokens. It is passed to the
// dispatcher explicitly; there is no process-wide registry.
type Registry struct {
	m      sync.RWMutex
	tokens map[App]Token
}

func NewRegistry() *Registry {
	return &Registry{tokens: make(map[App]Token)}
}

func (r *Registry) Register(app App, tok Token) {
	r.m.Lock()
	defer r.m.Unlock()
	r.tokens[app] = tok
}

func (r *Registry) Remove(app App) {
	r.m.Lock()
	defer r.m.Unlock()
	delete(r.tokens, app)
}

func (r *Registry) Token(app App) (Token, bool) {
	r.m.RLock()
	defer r.m.RUnlock()
	tok, ok := r.tokens[app]
	return tok, ok
}

func (r *Registry) Len() int {
	r.m.RLock()
	defer r.m.RUnlock()
	return len(r.tokens)
}

// ParseAccessToken builds a Token from raw. JWT-shaped tokens contribute
// their exp and project_id claims; the signature is not checked since the
// server does that. Opaque tokens are returned with only AccessToken set.
func ParseAccessToken(raw, projectID string) Token {
	tok := Token{AccessToken: raw, ProjectID: projectID}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return tok
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		tok.Expiry = exp.Time
	}
	if tok.ProjectID == "" {
		if p, ok := claims["project_id"].(string); ok {
			tok.ProjectID = p
		}
	}
	return tok
}
