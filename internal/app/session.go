package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

const sessionCookie = "wc_session"

// SessionManager issues a signed cookie naming the visitor's attribution session.
type SessionManager struct {
	sc     *securecookie.SecureCookie
	secure bool
	maxAge int
}

// NewSessionManager signs with hashKey and encrypts with blockKey when set.
// An empty hashKey gets a random one, so sessions do not survive a restart.
func NewSessionManager(hashKey, blockKey []byte, secure bool, maxAge int) *SessionManager {
	if len(hashKey) == 0 {
		hashKey = securecookie.GenerateRandomKey(32)
	}
	if len(blockKey) == 0 {
		blockKey = nil
	}
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(maxAge)
	return &SessionManager{sc: sc, secure: secure, maxAge: maxAge}
}

// ID returns the session id carried by the request, if the cookie is valid.
func (s *SessionManager) ID(r *http.Request) (string, bool) {
	ck, err := r.Cookie(sessionCookie)
	if err != nil {
		return "", false
	}
	value := map[string]string{}
	if err := s.sc.Decode(sessionCookie, ck.Value, &value); err != nil {
		return "", false
	}
	sid := value["sid"]
	if _, err := uuid.Parse(sid); err != nil {
		return "", false
	}
	return sid, true
}

// Ensure returns the current session id, starting a new session if needed.
func (s *SessionManager) Ensure(c *gin.Context) (string, error) {
	if sid, ok := s.ID(c.Request); ok {
		return sid, nil
	}
	sid := uuid.NewString()
	encoded, err := s.sc.Encode(sessionCookie, map[string]string{"sid": sid})
	if err != nil {
		return "", err
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sessionCookie,
		Value:    encoded,
		Path:     "/",
		MaxAge:   s.maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return sid, nil
}
