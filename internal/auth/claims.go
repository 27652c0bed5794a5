// Package auth derives request credentials from a Cursor session token.
package auth

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PlaceholderUserID stands in for the user id when the token carries none.
const PlaceholderUserID = "user_01OOOOOOOOOOOOOOOOOOOOOOOO"

const sessionCookieName = "WorkosCursorSessionToken"

var auth0Subject = regexp.MustCompile(`auth0\|(.+)`)

var parser = jwt.NewParser(jwt.WithPaddingAllowed())

// stdToURLAlphabet lets payloads encoded with the standard base64 alphabet
// decode through the URL-safe decoder.
var stdToURLAlphabet = strings.NewReplacer("+", "-", "/", "_")

type Claims struct {
	SubjectID string
	ExpiresAt time.Time // zero when the token has no exp claim
}

// Expired reports whether the token carries an expiry that lies before now.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && c.ExpiresAt.Before(now)
}

// DecodeClaims reads the second dot-separated segment of token as JSON
// claims without verifying anything. The header and signature segments are
// ignored. Any decode failure yields empty Claims.
func DecodeClaims(token string) Claims {
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return Claims{}
	}
	payload, err := parser.DecodeSegment(stdToURLAlphabet.Replace(parts[1]))
	if err != nil {
		return Claims{}
	}
	claims := jwt.MapClaims{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claims{}
	}

	var out Claims
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return out
	}
	if m := auth0Subject.FindStringSubmatch(sub); m != nil {
		out.SubjectID = m[1]
	}
	return out
}

// DecodeSubjectID returns the auth0 user id embedded in the token's sub
// claim, or "" when it cannot be extracted.
func DecodeSubjectID(token string) string {
	return DecodeClaims(token).SubjectID
}

// Credentials are the headers every Cursor dashboard request is built from.
type Credentials struct {
	Token  string
	UserID string // empty when the token carries no auth0 subject
	Cookie string
}

func NewCredentials(token string) Credentials {
	userID := DecodeSubjectID(token)
	return Credentials{
		Token:  token,
		UserID: userID,
		Cookie: SessionCookie(userID, token),
	}
}

// SessionCookie builds the browser session cookie the web dashboard expects.
func SessionCookie(userID, token string) string {
	if userID == "" {
		userID = PlaceholderUserID
	}
	return sessionCookieName + "=" + userID + "%3A%3A" + token
}

func (c Credentials) BearerHeader() string {
	return "Bearer " + c.Token
}
