package api

import (
	"errors"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

// DefaultJWKSCacheTTL bounds how long a resolved signing key is reused.
const DefaultJWKSCacheTTL = 15 * time.Minute

var (
	errWrongOwner  = errors.New("token subject is not the board owner")
	errNoJWKS      = errors.New("jwks not configured")
	errBadSigning  = errors.New("invalid signing method")
	errBadClaims   = errors.New("invalid claims")
	errMissingSub  = errors.New("missing sub")
	errExpired     = errors.New("token expired")
	errNotYetValid = errors.New("token not valid yet")
)

// Auth validates bearer tokens for the board owner. Tokens are either HS256
// signed with a shared secret or RS256 signed by a JWKS-published key.
type Auth struct {
	JWKS     *keyfunc.JWKS
	Secret   []byte
	Audience string
	Issuer   string
	// Owner, when set, must equal the token subject.
	Owner string

	parser      *jwt.Parser
	keyCache    sync.Map
	keyCacheTTL time.Duration
}

type cachedKey struct {
	key       any
	expiresAt time.Time
}

// NewSharedSecretAuth accepts HS256 tokens signed with secret.
func NewSharedSecretAuth(secret []byte, owner string) *Auth {
	if len(secret) == 0 {
		panic("api.NewSharedSecretAuth: empty secret")
	}
	return &Auth{
		Secret: secret,
		Owner:  owner,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

// NewJWKSAuth accepts RS256 tokens whose key is published in jwks.
func NewJWKSAuth(jwks *keyfunc.JWKS, audience, issuer, owner string, cacheTTL time.Duration) *Auth {
	return &Auth{
		JWKS:        jwks,
		Audience:    audience,
		Issuer:      issuer,
		Owner:       owner,
		keyCacheTTL: cacheTTL,
		parser:      jwt.NewParser(jwt.WithValidMethods([]string{"RS256"})),
	}
}

// SignSharedSecretToken mints an HS256 token for subject that
// NewSharedSecretAuth(secret, ...) accepts until ttl elapses.
func SignSharedSecretToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("empty secret")
	}
	if subject == "" {
		return "", errMissingSub
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	return token.SignedString(secret)
}

// SubjectFromAuthHeader extracts the token subject from the Authorization header.
func (a *Auth) SubjectFromAuthHeader(h string) (string, error) {
	if h == "" {
		return "", errMissingAuthorization
	}
	token, err := bearerTokenFromString(h)
	if err != nil {
		return "", err
	}
	return a.SubjectFromBearer(token)
}

// SubjectFromBearer validates a raw bearer token and returns its subject.
func (a *Auth) SubjectFromBearer(token []byte) (string, error) {
	if len(token) == 0 {
		return "", errBadAuthorization
	}

	parsed, err := a.parser.Parse(string(token), a.keyFunc)
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", errBadClaims
	}

	// one minute of clock skew
	now := time.Now().Add(time.Minute).Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return "", errExpired
	}
	if !claims.VerifyNotBefore(now, false) {
		return "", errNotYetValid
	}
	if a.Audience != "" && !claims.VerifyAudience(a.Audience, false) {
		return "", errors.New("invalid audience")
	}
	if a.Issuer != "" && !claims.VerifyIssuer(a.Issuer, false) {
		return "", errors.New("invalid issuer")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errMissingSub
	}
	if a.Owner != "" && sub != a.Owner {
		return "", errWrongOwner
	}
	return sub, nil
}

func (a *Auth) keyFunc(t *jwt.Token) (any, error) {
	if a.Secret != nil {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errBadSigning
		}
		return a.Secret, nil
	}
	return a.keyForToken(t)
}

func (a *Auth) keyForToken(token *jwt.Token) (any, error) {
	if a.JWKS == nil {
		return nil, errNoJWKS
	}

	kid, _ := token.Header["kid"].(string)
	if kid != "" && a.keyCacheTTL > 0 {
		if cached, ok := a.keyCache.Load(kid); ok {
			entry := cached.(cachedKey)
			if time.Now().Before(entry.expiresAt) {
				return entry.key, nil
			}
			a.keyCache.Delete(kid)
		}
	}

	key, err := a.JWKS.Keyfunc(token)
	if err != nil {
		return nil, err
	}
	if kid != "" && a.keyCacheTTL > 0 {
		a.keyCache.Store(kid, cachedKey{key: key, expiresAt: time.Now().Add(a.keyCacheTTL)})
	}
	return key, nil
}
