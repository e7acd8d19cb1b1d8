package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/izposoja/internal/imaging"
	"github.com/erazemk/izposoja/internal/model"
)

func itemForm(r *http.Request) (model.ItemInput, error) {
	qty, err := model.ParseQuantity(r.FormValue("quantity"))
	if err != nil {
		return model.ItemInput{}, err
	}
	return model.ItemInput{Name: r.FormValue("name"), Quantity: qty}, nil
}

// ItemCreateSubmit handles POST /items.
func (s *Server) ItemCreateSubmit(w http.ResponseWriter, r *http.Request) {
	in, err := itemForm(r)
	if err != nil {
		fail(w, r, "/", err)
		return
	}

	item, err := s.Service.CreateItem(r.Context(), in)
	if err != nil {
		fail(w, r, "/", err)
		return
	}

	slog.Info("item created", "user", webActor(r), "item", item.Name, "quantity", item.Quantity)
	redirectWithFlash(w, r, "/", flashSuccess, "Added "+item.Name+".")
}

// ItemUpdateSubmit handles POST /items/{id}.
func (s *Server) ItemUpdateSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	in, err := itemForm(r)
	if err != nil {
		fail(w, r, "/", err)
		return
	}

	item, err := s.Service.UpdateItem(r.Context(), id, in)
	if err != nil {
		fail(w, r, "/", err)
		return
	}

	slog.Info("item updated", "user", webActor(r), "item", item.Name, "quantity", item.Quantity)
	redirectWithFlash(w, r, "/", flashSuccess, "Saved "+item.Name+".")
}

// ItemDeleteSubmit handles POST /items/{id}/delete.
func (s *Server) ItemDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	item, err := s.Service.DeleteItem(r.Context(), id)
	if err != nil {
		fail(w, r, "/", err)
		return
	}

	slog.Info("item deleted", "user", webActor(r), "item", item.Name)
	redirectWithFlash(w, r, "/", flashSuccess, "Deleted "+item.Name+".")
}

// ItemImageSubmit handles POST /items/{id}/image.
func (s *Server) ItemImageSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadSize+1<<20)
	file, _, err := r.FormFile("image")
	if err != nil {
		fail(w, r, "/", model.NewValidationError("image", "is required"))
		return
	}
	defer file.Close()

	if err := s.Service.SetItemPhoto(r.Context(), id, file); err != nil {
		fail(w, r, "/", err)
		return
	}

	slog.Info("item image uploaded", "user", webActor(r), "item_id", id)
	redirectWithFlash(w, r, "/", flashSuccess, "Photo uploaded.")
}

// ItemImageGet handles GET /items/{id}/image.
func (s *Server) ItemImageGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	data, mime, err := s.Service.ItemPhoto(r.Context(), id)
	if err != nil {
		var nf *model.NotFoundError
		if errors.As(err, &nf) {
			http.NotFound(w, r)
			return
		}
		slog.Error("failed to get image", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write image response", "error", err)
	}
}
