package api

import (
	"log/slog"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/erazemk/izposoja/internal/imaging"
	"github.com/erazemk/izposoja/internal/lending"
	"github.com/erazemk/izposoja/internal/model"
)

// ItemsHandler handles the item catalog endpoints.
type ItemsHandler struct {
	Service *lending.Service
}

// itemRequest keeps quantity raw so fractional or quoted values are reported
// as validation errors instead of decode failures.
type itemRequest struct {
	Name     string              `json:"name"`
	Quantity jsoniter.RawMessage `json:"quantity"`
}

func (req itemRequest) input() (model.ItemInput, error) {
	quantity, err := model.ParseQuantity(string(req.Quantity))
	if err != nil {
		return model.ItemInput{}, err
	}
	return model.ItemInput{Name: req.Name, Quantity: quantity}, nil
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.ListItems(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.ItemAvailability{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := h.Service.GetItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, r, err)
		return
	}

	item, err := h.Service.CreateItem(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item created", "user", actor(r), "item", item.Name, "quantity", item.Quantity)
	jsonResponse(w, http.StatusCreated, item)
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req itemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, r, err)
		return
	}

	item, err := h.Service.UpdateItem(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item updated", "user", actor(r), "item", item.Name, "quantity", item.Quantity)
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := h.Service.DeleteItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item deleted", "user", actor(r), "item", item.Name)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// UploadImage handles PUT /api/items/{id}/image with a multipart "image" file.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUploadSize); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	if err := h.Service.SetItemPhoto(r.Context(), id, file); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item photo uploaded", "user", actor(r), "item_id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	data, mime, err := h.Service.ItemPhoto(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Write(data)
}
