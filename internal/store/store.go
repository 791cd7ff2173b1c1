// Package store keeps registered users and topic entries.
//
// Two backends share the Store interface: a single JSON document on disk and
// Postgres. Both issue registration statuses from one counter that only grows.
package store

import (
	"context"
	"errors"
	"sort"
	"strconv"

	"github.com/samber/lo"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("store: not found")

// User is a registered identity.
type User struct {
	ID     int64  `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	Age    string `json:"age" db:"age"`
	Region string `json:"region" db:"region"`
	Phone  string `json:"phone" db:"phone"`
	Status int64  `json:"status" db:"status"`
}

// Registration carries the answers of the registration flow.
type Registration struct {
	Name   string
	Age    string
	Region string
	Phone  string
}

// Topic is one operator-managed lookup entry.
type Topic struct {
	Number  int64  `db:"number"`
	Message string `db:"message"`
}

// Document is the whole store content in its on-disk shape.
type Document struct {
	Users         map[string]User   `json:"users"`
	NextStatus    int64             `json:"next_status"`
	TopicMessages map[string]string `json:"topic_messages"`
}

// NewDocument returns the empty document.
func NewDocument() *Document {
	return &Document{
		Users:         map[string]User{},
		NextStatus:    1,
		TopicMessages: map[string]string{},
	}
}

// normalize repairs a decoded document so the derived operations can rely on it.
func (d *Document) normalize() {
	if d.Users == nil {
		d.Users = map[string]User{}
	}
	if d.TopicMessages == nil {
		d.TopicMessages = map[string]string{}
	}
	if d.NextStatus < 1 {
		d.NextStatus = 1
	}
	for _, u := range d.Users {
		if u.Status >= d.NextStatus {
			d.NextStatus = u.Status + 1
		}
	}
}

func key(n int64) string {
	return strconv.FormatInt(n, 10)
}

// register returns the identity's status, issuing a new one when needed.
func (d *Document) register(id int64, reg Registration) (int64, bool) {
	if u, ok := d.Users[key(id)]; ok {
		return u.Status, false
	}
	status := d.NextStatus
	d.Users[key(id)] = User{
		ID:     id,
		Name:   reg.Name,
		Age:    reg.Age,
		Region: reg.Region,
		Phone:  reg.Phone,
		Status: status,
	}
	d.NextStatus++
	return status, true
}

func (d *Document) findIDByStatus(status int64) (int64, bool) {
	for _, u := range d.Users {
		if u.Status == status {
			return u.ID, true
		}
	}
	return 0, false
}

// topics lists entries sorted by number; keys that are not numbers are skipped.
func (d *Document) topics() []Topic {
	out := make([]Topic, 0, len(d.TopicMessages))
	for k, msg := range d.TopicMessages {
		n, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, Topic{Number: n, Message: msg})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

func (d *Document) users() []User {
	out := lo.Values(d.Users)
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out
}

// Store is the Record Store contract.
type Store interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error

	// Status returns the identity's status and whether it is registered.
	Status(ctx context.Context, id int64) (int64, bool, error)
	// Register is idempotent: a known identity keeps its status and the counter does not move.
	Register(ctx context.Context, id int64, reg Registration) (int64, error)
	User(ctx context.Context, id int64) (User, error)
	FindIDByStatus(ctx context.Context, status int64) (int64, bool, error)
	Users(ctx context.Context) ([]User, error)

	// AddTopic creates or overwrites the entry for number.
	AddTopic(ctx context.Context, number int64, message string) error
	// DeleteTopic reports false without changing anything when number is unknown.
	DeleteTopic(ctx context.Context, number int64) (bool, error)
	Topic(ctx context.Context, number int64) (string, bool, error)
	ListTopics(ctx context.Context) ([]Topic, error)

	Ping(ctx context.Context) error
	Close() error
}

// Stats summarises the store for the operator panel.
type Stats struct {
	Users      int
	Topics     int
	NextStatus int64
}

// Summarize computes Stats from a loaded document.
func Summarize(doc *Document) Stats {
	return Stats{Users: len(doc.Users), Topics: len(doc.TopicMessages), NextStatus: doc.NextStatus}
}
