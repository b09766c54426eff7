// Package credentials checks upload tokens and admin passwords against the
// configured lists. Secrets may be given in clear or as bcrypt hashes.
package credentials

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/crypto/bcrypt"
)

const cacheSize = 1024

type secret struct {
	value  string
	hashed bool
}

type entry struct {
	name   string
	secret secret
}

// Store answers the credential questions of the web layer. Successful token
// lookups are cached by token digest because bcrypt is slow by intent.
type Store struct {
	tokens []entry
	admins map[string]secret
	cache  *expirable.LRU[string, string]
}

// New parses "name:secret" pairs. cacheTTL of zero disables caching.
func New(tokens, admins []string, cacheTTL time.Duration) (*Store, error) {
	s := &Store{admins: make(map[string]secret, len(admins))}

	for _, pair := range tokens {
		name, sec, err := parsePair(pair)
		if err != nil {
			return nil, fmt.Errorf("upload token: %w", err)
		}
		s.tokens = append(s.tokens, entry{name: name, secret: sec})
	}
	for _, pair := range admins {
		name, sec, err := parsePair(pair)
		if err != nil {
			return nil, fmt.Errorf("admin user: %w", err)
		}
		s.admins[name] = sec
	}

	if cacheTTL > 0 {
		s.cache = expirable.NewLRU[string, string](cacheSize, nil, cacheTTL)
	}

	return s, nil
}

func parsePair(pair string) (string, secret, error) {
	name, value, ok := strings.Cut(strings.TrimSpace(pair), ":")
	if !ok || name == "" || value == "" {
		return "", secret{}, fmt.Errorf("malformed entry %q, want name:secret", redact(pair))
	}

	return name, secret{value: value, hashed: isBcrypt(value)}, nil
}

func isBcrypt(v string) bool {
	_, err := bcrypt.Cost([]byte(v))
	return err == nil
}

func redact(pair string) string {
	name, _, _ := strings.Cut(pair, ":")
	return name + ":***"
}

func (s *Store) Identify(token string) (string, bool) {
	if token == "" {
		return "", false
	}

	key := digest(token)
	if s.cache != nil {
		if owner, ok := s.cache.Get(key); ok {
			return owner, true
		}
	}

	for _, e := range s.tokens {
		if e.secret.matches(token) {
			if s.cache != nil {
				s.cache.Add(key, e.name)
			}
			return e.name, true
		}
	}

	return "", false
}

func (s *Store) IsAdmin(identity string) bool {
	_, ok := s.admins[identity]
	return ok
}

func (s *Store) VerifyAdmin(username, password string) bool {
	sec, ok := s.admins[username]
	if !ok {
		// keep the timing of unknown users close to known ones
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return false
	}

	return sec.matches(password)
}

func (sec secret) matches(candidate string) bool {
	if sec.hashed {
		return bcrypt.CompareHashAndPassword([]byte(sec.value), []byte(candidate)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(sec.value), []byte(candidate)) == 1
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("devtransfer"), bcrypt.MinCost)
