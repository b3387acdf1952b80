package domain

import (
	"context"
	"errors"
	"regexp"
)

type GetRequest struct {
	ID string
}

type BatchGetRequest struct {
	IDs []string
}

type UpdateTemplateRequest struct {
	ID           string
	CardTemplate map[string]interface{}
}

type Service interface {
	// Get returns the store, or a default-template placeholder when the
	// store has not been provisioned yet.
	Get(context.Context, GetRequest) (Store, error)
	// BatchGet returns the named stores, silently skipping ids without a
	// provisioned store.
	BatchGet(context.Context, BatchGetRequest) (map[string]Store, error)
	UpdateTemplate(context.Context, UpdateTemplateRequest) (Store, error)
}

var (
	ErrInvalidID       = errors.New("invalid_store_id")
	ErrInvalidTemplate = errors.New("invalid_card_template")
	ErrNotFound        = errors.New("store_not_found")
)

var unsafeIDChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SanitizeID normalizes a caller-supplied store id into the storage key
// space, mirroring the claim-key charset.
func SanitizeID(id string) string {
	id = unsafeIDChars.ReplaceAllString(id, "_")
	if len(id) > 200 {
		id = id[:200]
	}
	return id
}
