package storage

import (
	"context"
	"io"
	"path"
	"strings"

	"cloakroom-backend/internal/models"

	"github.com/google/uuid"
)

// Reasons reported in an UnlinkOutcome when a blob could not be removed.
const (
	ReasonNoPath  = "no_path"
	ReasonMissing = "ENOENT"
)

// PublicPrefix is the URL prefix stored paths carry.
const PublicPrefix = "/uploads/"

// Store keeps uploaded photos. Delete never fails: every attempt yields an
// outcome the caller records.
type Store interface {
	Save(ctx context.Context, originalName string, r io.Reader) (string, error)
	Delete(ctx context.Context, p string) models.UnlinkOutcome
	Exists(ctx context.Context, p string) (bool, error)
}

// newObjectName returns a collision-free name that keeps the upload's extension.
func newObjectName(originalName string) string {
	ext := strings.ToLower(path.Ext(originalName))
	if len(ext) > 10 {
		ext = ""
	}
	return uuid.NewString() + ext
}

// objectName maps a stored path such as "/uploads/x.jpg" to its bare object
// name. Directory components are dropped so a path cannot escape the store.
func objectName(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	name := path.Base(path.Clean("/" + p))
	if name == "/" || name == "." {
		return ""
	}
	return name
}
