package localstore

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Session is the persisted login of the local user.
type Session struct {
	Token      string    `json:"token"`
	UserID     uint      `json:"userId"`
	Username   string    `json:"username"`
	LoggedInAt time.Time `json:"loggedInAt"`
}

// Session returns the stored session, or nil when nobody is logged in.
func (s *Store) Session() (*Session, error) {
	var sess Session
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		found, err = getJSON(txn, KeySession, &sess)
		return err
	})
	if err != nil || !found {
		return nil, err
	}
	return &sess, nil
}

// SetSession replaces the stored session.
func (s *Store) SetSession(sess Session) error {
	if sess.LoggedInAt.IsZero() {
		sess.LoggedInAt = s.now()
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, KeySession, sess)
	})
}

// ClearSession logs the local user out.
func (s *Store) ClearSession() error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(KeySession))
	})
}

// OnboardingHidden reports whether the welcome hint was dismissed.
func (s *Store) OnboardingHidden() (bool, error) {
	var hidden bool
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := getJSON(txn, KeyOnboarding, &hidden)
		return err
	})
	return hidden, err
}

// SetOnboardingHidden stores the dismissal flag.
func (s *Store) SetOnboardingHidden(hidden bool) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, KeyOnboarding, hidden)
	})
}

// Secret returns the token signing secret, generating and persisting one on first use.
func (s *Store) Secret() (string, error) {
	var secret string
	err := s.db.Update(func(txn *badger.Txn) error {
		found, err := getJSON(txn, KeySecret, &secret)
		if err != nil || (found && secret != "") {
			return err
		}
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("generate secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
		return setJSON(txn, KeySecret, secret)
	})
	if err != nil {
		return "", err
	}
	if secret == "" {
		return "", errors.New("empty signing secret")
	}
	return secret, nil
}
