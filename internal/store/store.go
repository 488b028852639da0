// ABOUTME: Persistence collaborator interface and shared types
// ABOUTME: The relay stays correct even when this is the in-memory mock

package store

import (
	"context"
	"errors"

	"github.com/marketbot/haggle-gateway/internal/session"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Product is a marketplace listing under negotiation.
type Product struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int    `json:"price"`
	Condition   string `json:"condition"`
	SellerName  string `json:"seller_name"`
	Location    string `json:"location"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Store defines durable persistence for sessions and the product catalog.
// Durability is layered on top of the in-memory session table: the gateway
// functions correctly within one process lifetime even if SaveSession is a
// no-op.
type Store interface {
	SaveSession(ctx context.Context, sess *session.Session) error
	LoadSession(ctx context.Context, id string) (*session.Session, error)

	ListProducts(ctx context.Context) ([]*Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)

	Close() error
}
