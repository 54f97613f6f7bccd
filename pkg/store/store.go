// Package store keeps the small JSON documents a session reads at start and
// rewrites wholesale on every update: the purchased-product history, the
// cached user profile and the collected delivery records. There is no
// locking; the last writer wins.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Document file names inside the storage directory.
const (
	PurchasedFile  = "purchased.json"
	ProfileFile    = "profile.json"
	DeliveriesFile = "deliveries.json"
)

// Purchase is one purchased-history entry.
type Purchase struct {
	Text      string  `json:"text"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"`
	Date      string  `json:"date"`
}

// User is the account part of a profile.
type User struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Phone       string `json:"phone"`
}

// Recipient is the default shipping address.
type Recipient struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	IsDefault bool   `json:"isDefault"`
}

// Profile is the cached user profile.
type Profile struct {
	User      User      `json:"user"`
	Recipient Recipient `json:"recipient"`
	Timestamp int64     `json:"timestamp"`
}

// Delivery is one tracked parcel.
type Delivery struct {
	Product   string `json:"product"`
	Number    string `json:"number"`
	Courier   string `json:"courier"`
	Timestamp int64  `json:"timestamp"`
}

// Store reads and writes the documents under one directory.
type Store struct {
	dir string
	now func() time.Time

	mu        sync.Mutex
	purchased []Purchase
	loaded    bool
}

// Open returns a store rooted at dir. Nothing is read until first use.
func Open(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Dir returns the storage directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(name string) string { return filepath.Join(s.dir, name) }

// Purchased returns the purchased history, loading it on first call. A
// missing file is an empty history.
func (s *Store) Purchased() ([]Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	return append([]Purchase(nil), s.purchased...), nil
}

func (s *Store) loadLocked() error {
	if s.loaded {
		return nil
	}
	var list []Purchase
	if err := ReadJSON(s.path(PurchasedFile), &list); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load purchased history: %w", err)
	}
	s.purchased = list
	s.loaded = true
	return nil
}

// HasPurchased reports whether an entry with the same text exists.
func (s *Store) HasPurchased(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return false
	}
	text = strings.TrimSpace(text)
	for _, p := range s.purchased {
		if p.Text == text {
			return true
		}
	}
	return false
}

// AddPurchase appends an entry and rewrites the document. Duplicate texts
// are ignored and reported as false.
func (s *Store) AddPurchase(text string, price float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return false, err
	}
	text = strings.TrimSpace(text)
	for _, p := range s.purchased {
		if p.Text == text {
			return false, nil
		}
	}
	now := s.now()
	s.purchased = append(s.purchased, Purchase{
		Text:      text,
		Price:     price,
		Timestamp: now.UnixMilli(),
		Date:      now.Format("2006-01-02 15:04:05"),
	})
	if err := WriteJSON(s.path(PurchasedFile), s.purchased); err != nil {
		return true, fmt.Errorf("write purchased history: %w", err)
	}
	return true, nil
}

// ClearPurchased empties the history.
func (s *Store) ClearPurchased() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purchased = nil
	s.loaded = true
	return WriteJSON(s.path(PurchasedFile), []Purchase{})
}

// Profile returns the cached profile, or ok=false when none is stored.
func (s *Store) Profile() (Profile, bool, error) {
	var p Profile
	err := ReadJSON(s.path(ProfileFile), &p)
	if errors.Is(err, fs.ErrNotExist) {
		return Profile{}, false, nil
	}
	if err != nil {
		return Profile{}, false, fmt.Errorf("load profile: %w", err)
	}
	return p, true, nil
}

// SaveProfile stamps and writes p.
func (s *Store) SaveProfile(p Profile) error {
	p.Timestamp = s.now().UnixMilli()
	if err := WriteJSON(s.path(ProfileFile), p); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

// SaveDeliveries rewrites the delivery document with list.
func (s *Store) SaveDeliveries(list []Delivery) error {
	if list == nil {
		list = []Delivery{}
	}
	if err := WriteJSON(s.path(DeliveriesFile), list); err != nil {
		return fmt.Errorf("write deliveries: %w", err)
	}
	return nil
}

// Deliveries returns the stored delivery records.
func (s *Store) Deliveries() ([]Delivery, error) {
	var list []Delivery
	if err := ReadJSON(s.path(DeliveriesFile), &list); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load deliveries: %w", err)
	}
	return list, nil
}

// Stamp returns a delivery timestamp from the store clock.
func (s *Store) Stamp() int64 { return s.now().UnixMilli() }
