package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"cloakroom-backend/internal/models"
	"cloakroom-backend/internal/services"
	"cloakroom-backend/pkg/utils"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// maxItemPhotos bounds the files one deposit may carry.
const maxItemPhotos = 20

var (
	errNotImage    = errors.New("only image uploads are allowed")
	errFileTooBig  = errors.New("file exceeds the upload size limit")
	errTooManyFile = fmt.Errorf("at most %d item photos are allowed", maxItemPhotos)
)

type blobStore interface {
	Save(ctx context.Context, originalName string, r io.Reader) (string, error)
	Delete(ctx context.Context, p string) models.UnlinkOutcome
}

type RecordHandler struct {
	Service  *services.RecordService
	Blobs    blobStore
	maxBytes int64
	log      *zap.Logger
}

func NewRecordHandler(s *services.RecordService, blobs blobStore, maxUploadBytes int64, log *zap.Logger) *RecordHandler {
	return &RecordHandler{Service: s, Blobs: blobs, maxBytes: maxUploadBytes, log: log.Named("uploads")}
}

// Deposit accepts a multipart form with token_number, event_name, an items
// JSON array, an optional person_photo and item_photos aligned with items.
// Photos saved before a failed deposit are removed again.
func (h *RecordHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes*(maxItemPhotos+1)+1<<20)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.Error(w, http.StatusRequestEntityTooLarge, "request too large")
			return
		}
		writeBadRequest(w, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	var items []models.NewItem
	if raw := strings.TrimSpace(r.FormValue("items")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			writeBadRequest(w, "items must be a JSON array of {name, count}")
			return
		}
		// Photo paths only ever come from this request's uploads.
		for i := range items {
			items[i].PhotoPath = nil
		}
	}

	itemFiles := append(r.MultipartForm.File["item_photos"], r.MultipartForm.File["item_photos[]"]...)
	if len(itemFiles) > maxItemPhotos {
		writeBadRequest(w, errTooManyFile.Error())
		return
	}

	ctx := r.Context()
	var staged []string
	cleanup := func() {
		for _, p := range staged {
			out := h.Blobs.Delete(context.WithoutCancel(ctx), p)
			if !out.Success {
				h.log.Warn("staged photo not removed", zap.String("path", p), zap.String("reason", out.Reason))
			}
		}
	}

	req := models.DepositRequest{
		TokenNumber: r.FormValue("token_number"),
		EventName:   r.FormValue("event_name"),
		Location:    r.FormValue("location"),
		Items:       items,
	}

	if files := r.MultipartForm.File["person_photo"]; len(files) > 0 {
		p, err := h.saveUpload(ctx, files[0])
		if err != nil {
			h.writeUploadError(w, err)
			return
		}
		staged = append(staged, p)
		req.PersonPhotoPath = &p
	}

	for i, fh := range itemFiles {
		if i >= len(req.Items) {
			break
		}
		p, err := h.saveUpload(ctx, fh)
		if err != nil {
			cleanup()
			h.writeUploadError(w, err)
			return
		}
		staged = append(staged, p)
		req.Items[i].PhotoPath = &p
	}

	recordID, err := h.Service.Deposit(ctx, id, req)
	if err != nil {
		cleanup()
		writeServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusCreated, map[string]any{
		"id":      recordID,
		"message": "Items deposited",
	})
}

func (h *RecordHandler) saveUpload(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	if fh.Size > h.maxBytes {
		return "", errFileTooBig
	}
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	if !strings.HasPrefix(http.DetectContentType(head[:n]), "image/") {
		return "", errNotImage
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return h.Blobs.Save(ctx, fh.Filename, f)
}

func (h *RecordHandler) writeUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errNotImage):
		writeBadRequest(w, err.Error())
	case errors.Is(err, errFileTooBig):
		utils.Error(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		h.log.Error("photo upload failed", zap.Error(err))
		utils.Error(w, http.StatusInternalServerError, "could not store photo")
	}
}

// Lookup returns the newest record for a token: GET /api/records/token/{token}?event=
func (h *RecordHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	token := mux.Vars(r)["token"]
	event := r.URL.Query().Get("event")
	if event == "" {
		event = r.URL.Query().Get("event_name")
	}

	rec, err := h.Service.Lookup(r.Context(), id, token, event)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, rec)
}

type returnRequest struct {
	EventName string `json:"event_name" validate:"required"`
	Location  string `json:"location"`
}

// Return marks a deposit as handed back: POST /api/records/exit/{token}
func (h *RecordHandler) Return(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req returnRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := h.Service.Return(r.Context(), id, mux.Vars(r)["token"], req.EventName, req.Location); err != nil {
		writeServiceError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"message": "Items returned"})
}
