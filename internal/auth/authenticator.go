package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/guonaihong/gout"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mgcaisse/caisse/internal/domain"
	"github.com/mgcaisse/caisse/internal/store"
)

// ErrInvalidCredentials authentication failure surfaced as a user-facing
// message. The credential itself is never logged.
var ErrInvalidCredentials = errors.New("invalid email or serial number")

// Result is a successful authentication outcome.
type Result struct {
	Token string           `json:"token"`
	User  domain.LocalUser `json:"user"`
}

// Authenticator proves an (email, serial) identity either against the local
// user table or the remote identity service, and issues session tokens.
type Authenticator struct {
	store       store.Store
	tokens      *TokenStore
	secret      string
	identityURL string
}

func NewAuthenticator(st store.Store, tokens *TokenStore, secret, identityURL string) *Authenticator {
	return &Authenticator{
		store:       st,
		tokens:      tokens,
		secret:      secret,
		identityURL: identityURL,
	}
}

// AuthenticateLocal checks the locally provisioned user table. On match a
// session token is issued and persisted client-side.
func (a *Authenticator) AuthenticateLocal(ctx context.Context, email, serial string) (*Result, error) {
	user, err := a.store.GetLocalUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.Status != "" && user.Status != "enabled" {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.SerialHash), []byte(serial)) != nil {
		return nil, ErrInvalidCredentials
	}

	return a.openSession(ctx, user, serial)
}

// identityResponse is the remote identity service answer shape.
type identityResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	User    struct {
		ID    int64  `json:"id,string"`
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"user"`
}

// AuthenticateOnline asks the remote identity service, then falls back to
// the local table on any transport failure. Network loss must never block
// sign-in for a previously provisioned user.
func (a *Authenticator) AuthenticateOnline(ctx context.Context, email, serial string) (*Result, error) {
	var (
		resp identityResponse
		code int
	)
	err := gout.POST(a.identityURL).
		WithContext(ctx).
		SetTimeout(5 * time.Second).
		SetJSON(gout.H{"email": email, "serial": serial}).
		BindJSON(&resp).
		Code(&code).
		Do()
	if err != nil {
		zap.S().Warnf("identity service unreachable, falling back to local auth: %s", err)
		return a.AuthenticateLocal(ctx, email, serial)
	}

	if code != http.StatusOK || !resp.Success {
		return nil, ErrInvalidCredentials
	}

	// Refresh the local provisioning so the next offline sign-in works.
	hash, err := bcrypt.GenerateFromPassword([]byte(serial), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash serial")
	}
	user := &domain.LocalUser{
		ID:         resp.User.ID,
		Email:      resp.User.Email,
		Name:       resp.User.Name,
		SerialHash: string(hash),
		Status:     "enabled",
	}
	if err := a.store.UpsertLocalUser(ctx, user); err != nil {
		zap.S().Warnf("failed to provision local user %s: %s", user.Email, err)
	}

	return a.openSession(ctx, user, serial)
}

// Validate returns the current session claims, or nil when the persisted
// token is absent, malformed or expired.
func (a *Authenticator) Validate() *Claims {
	return ValidateToken(a.secret, a.tokens.Load())
}

// Logout clears the persisted token; session state becomes absent.
func (a *Authenticator) Logout() error {
	return a.tokens.Clear()
}

func (a *Authenticator) openSession(ctx context.Context, user *domain.LocalUser, serial string) (*Result, error) {
	token, err := IssueToken(a.secret, user.ID, user.Email, serial)
	if err != nil {
		return nil, errors.Wrap(err, "issue token")
	}
	if err := a.tokens.Save(token); err != nil {
		return nil, errors.Wrap(err, "persist token")
	}
	if err := a.store.TouchLocalUserLogin(ctx, user.ID); err != nil {
		zap.S().Warnf("failed to record login time: %s", err)
	}
	return &Result{Token: token, User: *user}, nil
}
