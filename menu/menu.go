// Package menu binds the authorization-data collaborator: the tree of
// navigable entries whose visibility depends on server-side permissions.
package menu

import (
	"context"
	"fmt"

	"github.com/viant/authgate/pipeline"
)

// Item is a single navigable entry.
type Item struct {
	ID         int     `json:"id,omitempty"`
	Name       string  `json:"name"`
	Title      string  `json:"title"`
	Path       string  `json:"path"`
	URL        string  `json:"url,omitempty"`
	Component  string  `json:"component,omitempty"`
	Redirect   string  `json:"redirect,omitempty"`
	Icon       string  `json:"icon,omitempty"`
	Hidden     bool    `json:"hidden,omitempty"`
	KeepAlive  bool    `json:"keepAlive,omitempty"`
	Permission string  `json:"permission,omitempty"`
	Type       int     `json:"type,omitempty"`
	Sort       int     `json:"sort,omitempty"`
	ParentID   *int    `json:"parentId,omitempty"`
	Children   []*Item `json:"children,omitempty"`
}

// RoutePath returns the addressable path of the entry; URL takes
// precedence over Path for backward compatibility with older payloads.
func (i *Item) RoutePath() string {
	if i.URL != "" {
		return i.URL
	}
	return i.Path
}

// Query filters menu listings.
type Query struct {
	Title      string `json:"title,omitempty"`
	Permission string `json:"permission,omitempty"`
}

// API exposes the menu resource endpoints over the promise-style client.
type API struct {
	client *pipeline.Client
}

// NewAPI creates a menu binding.
func NewAPI(client *pipeline.Client) *API {
	return &API{client: client}
}

// Tree fetches the full authorization-scoped menu tree.
func (a *API) Tree(ctx context.Context) ([]*Item, error) {
	var items []*Item
	if err := a.client.Get(ctx, "/api/resources/tree", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// List fetches a flat menu listing.
func (a *API) List(ctx context.Context, query *Query) ([]*Item, error) {
	path := "/api/resources"
	if query != nil {
		separator := "?"
		if query.Title != "" {
			path += separator + "title=" + query.Title
			separator = "&"
		}
		if query.Permission != "" {
			path += separator + "permission=" + query.Permission
		}
	}
	var items []*Item
	if err := a.client.Get(ctx, path, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Detail fetches a single entry.
func (a *API) Detail(ctx context.Context, id int) (*Item, error) {
	item := &Item{}
	if err := a.client.Get(ctx, fmt.Sprintf("/api/resources/%v", id), item); err != nil {
		return nil, err
	}
	return item, nil
}

// Flatten walks the tree depth first, returning every entry with an
// addressable path.
func Flatten(items []*Item) []*Item {
	var out []*Item
	for _, item := range items {
		if item == nil {
			continue
		}
		if item.RoutePath() != "" {
			out = append(out, item)
		}
		if len(item.Children) > 0 {
			out = append(out, Flatten(item.Children)...)
		}
	}
	return out
}
