package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"dirsync.io/dirsync/internal/pkg/logger"
)

// Directory fetches a provider's full user and group listings, following
// pagination until the provider stops returning a next-page token. Calls
// block for as long as the provider takes; there is no retry or backoff,
// and a failing page ends that resource's pagination while keeping what
// was already accumulated.
type Directory struct {
	desc   *Descriptor
	client *http.Client
}

// NewDirectory creates a directory fetcher for a descriptor. A nil client
// falls back to http.DefaultClient.
func NewDirectory(desc *Descriptor, client *http.Client) *Directory {
	if client == nil {
		client = http.DefaultClient
	}
	return &Directory{desc: desc, client: client}
}

// ListUsers pulls every user page and normalizes the records.
// On a page failure the partial accumulation is returned alongside the
// error so the caller can still merge what was fetched.
func (d *Directory) ListUsers(ctx context.Context, accessToken string) ([]Employee, error) {
	raws, pageErr := d.fetchPages(ctx, accessToken, d.desc.UsersURL, d.desc.UserPageSize, d.desc.UsersField)

	users := make([]Employee, 0, len(raws))
	for _, raw := range raws {
		emp, err := d.desc.NormalizeUser(raw)
		if err != nil {
			logger.Warn("skipping malformed directory user",
				zap.String("provider", d.desc.Type),
				zap.Error(err),
			)
			continue
		}
		users = append(users, emp)
	}
	return users, pageErr
}

// ListGroups pulls every group page and normalizes the records, with the
// same partial-accumulation contract as ListUsers.
func (d *Directory) ListGroups(ctx context.Context, accessToken string) ([]Group, error) {
	raws, pageErr := d.fetchPages(ctx, accessToken, d.desc.GroupsURL, d.desc.GroupPageSize, d.desc.GroupsField)

	groups := make([]Group, 0, len(raws))
	for _, raw := range raws {
		g, err := d.desc.NormalizeGroup(raw)
		if err != nil {
			logger.Warn("skipping malformed directory group",
				zap.String("provider", d.desc.Type),
				zap.Error(err),
			)
			continue
		}
		groups = append(groups, g)
	}
	return groups, pageErr
}

// fetchPages walks every page of a list endpoint and returns the raw item
// records. A non-2xx page returns the items accumulated so far together
// with the error.
func (d *Directory) fetchPages(ctx context.Context, accessToken, endpoint string, pageSize int, itemsField string) ([]json.RawMessage, error) {
	var items []json.RawMessage

	pageURL, err := d.firstPageURL(endpoint, pageSize)
	if err != nil {
		return nil, err
	}

	for pageURL != "" {
		page, next, err := d.fetchPage(ctx, accessToken, pageURL, itemsField)
		if err != nil {
			return items, err
		}
		items = append(items, page...)

		switch d.desc.Pagination {
		case ODataNextLink:
			// Graph's nextLink is an absolute URL carrying its own
			// continuation parameters.
			pageURL = next
		default:
			if next == "" {
				pageURL = ""
				break
			}
			pageURL, err = d.tokenPageURL(endpoint, pageSize, next)
			if err != nil {
				return items, err
			}
		}
	}

	return items, nil
}

func (d *Directory) firstPageURL(endpoint string, pageSize int) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse list endpoint: %w", err)
	}
	q := u.Query()
	for k, v := range d.desc.ListParams {
		q.Set(k, v)
	}
	switch d.desc.Pagination {
	case ODataNextLink:
		q.Set("$top", strconv.Itoa(pageSize))
	default:
		q.Set("maxResults", strconv.Itoa(pageSize))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (d *Directory) tokenPageURL(endpoint string, pageSize int, pageToken string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse list endpoint: %w", err)
	}
	q := u.Query()
	for k, v := range d.desc.ListParams {
		q.Set(k, v)
	}
	q.Set("maxResults", strconv.Itoa(pageSize))
	q.Set("pageToken", pageToken)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// fetchPage performs one list call, returning the page's raw items and the
// next-page token or link (empty when pagination is exhausted).
func (d *Directory) fetchPage(ctx context.Context, accessToken, pageURL, itemsField string) ([]json.RawMessage, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create list request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("list request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("list request to %s failed with status %d", pageURL, resp.StatusCode)
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, "", fmt.Errorf("decode list response: %w", err)
	}

	var page []json.RawMessage
	if raw, ok := body[itemsField]; ok {
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, "", fmt.Errorf("decode %s field: %w", itemsField, err)
		}
	}

	var next string
	switch d.desc.Pagination {
	case ODataNextLink:
		if raw, ok := body["@odata.nextLink"]; ok {
			_ = json.Unmarshal(raw, &next)
		}
	default:
		if raw, ok := body["nextPageToken"]; ok {
			_ = json.Unmarshal(raw, &next)
		}
	}
	return page, next, nil
}
