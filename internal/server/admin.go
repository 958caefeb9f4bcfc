package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sinhabinayak2207/extrawork/internal/auth"
	"github.com/sinhabinayak2207/extrawork/internal/catalog"
)

func actor(r *http.Request) string {
	id, _ := auth.FromContext(r.Context())
	return id.Email
}

func (s *Server) collectionParam(w http.ResponseWriter, r *http.Request) (catalog.Collection, bool) {
	c, err := catalog.ParseCollection(chi.URLParam(r, "collection"))
	if err != nil {
		respond(w, http.StatusNotFound, errorBody{Error: err.Error()})
		return "", false
	}
	return c, true
}

func (s *Server) replaceImage(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collectionParam(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		badRequest(w, "expected multipart form with an image field")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, hdr, err := r.FormFile("image")
	if err != nil {
		badRequest(w, "missing image field")
		return
	}
	defer file.Close()

	id := chi.URLParam(r, "id")
	url, err := s.svc.ReplaceImage(r.Context(), c, id, file, hdr.Filename, actor(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("image replaced", zap.String("collection", string(c)), zap.String("id", id),
		zap.String("by", actor(r)))
	respond(w, http.StatusOK, map[string]string{"imageUrl": url})
}

type patchRequest struct {
	DisplayName *string `json:"displayName"`
	Description *string `json:"description"`
	ImageURL    *string `json:"imageUrl"`
	Category    *string `json:"category"`
	Featured    *bool   `json:"featured"`
}

func (p patchRequest) patch() catalog.Patch {
	return catalog.Patch{
		DisplayName: p.DisplayName,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Category:    p.Category,
		Featured:    p.Featured,
	}
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collectionParam(w, r)
	if !ok {
		return
	}
	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	it, err := s.svc.Update(r.Context(), c, chi.URLParam(r, "id"), req.patch(), actor(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, it)
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collectionParam(w, r)
	if !ok {
		return
	}
	var it catalog.Item
	if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	created, err := s.svc.Add(r.Context(), c, it, actor(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, created)
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collectionParam(w, r)
	if !ok {
		return
	}
	if err := s.svc.Remove(r.Context(), c, chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type recountRequest struct {
	Count *int `json:"count"`
}

func (s *Server) recount(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	var req recountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.Count != nil && *req.Count < 0 {
		badRequest(w, "count must not be negative")
		return
	}
	if _, ok := s.svc.Categories().GetBySlug(slug); !ok {
		respond(w, http.StatusNotFound, errorBody{Error: "category not found"})
		return
	}
	n := s.svc.Recount(slug, req.Count)
	respond(w, http.StatusOK, map[string]any{"slug": slug, "productCount": n})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	err := s.svc.Refresh(r.Context())
	body := map[string]any{
		"products":   statusOf(s.svc.Products()),
		"categories": statusOf(s.svc.Categories()),
	}
	if err != nil {
		body["error"] = err.Error()
		respond(w, statusFor(err), body)
		return
	}
	respond(w, http.StatusOK, body)
}
