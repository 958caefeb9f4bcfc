package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sinhabinayak2207/extrawork/internal/catalog"
	"github.com/sinhabinayak2207/extrawork/internal/store"
)

type tierStatus struct {
	Tier        string `json:"tier"`
	Items       int    `json:"items"`
	MirrorDirty bool   `json:"mirrorDirty,omitempty"`
}

func statusOf(st *store.Store) tierStatus {
	return tierStatus{Tier: string(st.Tier()), Items: st.Len(), MirrorDirty: st.MirrorDirty()}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"products":   statusOf(s.svc.Products()),
		"categories": statusOf(s.svc.Categories()),
	})
}

func queryBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}

// inCategory returns the products filed under ref, matched by the
// category's slug or id.
func (s *Server) inCategory(products []catalog.Item, ref string) []catalog.Item {
	cat, ok := s.svc.Categories().Lookup(ref)
	if !ok {
		return catalog.Filter{Category: ref}.Apply(products)
	}
	out := catalog.Filter{Category: cat.Slug}.Apply(products)
	if cat.ID != cat.Slug {
		out = append(out, catalog.Filter{Category: cat.ID}.Apply(products)...)
	}
	return out
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	items := s.svc.Products().GetAll()
	if c := r.URL.Query().Get("category"); c != "" {
		items = s.inCategory(items, c)
	}
	items = catalog.Filter{
		FeaturedOnly: queryBool(r, "featured"),
		Search:       r.URL.Query().Get("q"),
	}.Apply(items)
	respond(w, http.StatusOK, items)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	s.getItem(w, r, s.svc.Products())
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	items := catalog.Filter{
		FeaturedOnly: queryBool(r, "featured"),
		Search:       r.URL.Query().Get("q"),
	}.Apply(s.svc.Categories().GetAll())
	respond(w, http.StatusOK, items)
}

func (s *Server) getCategory(w http.ResponseWriter, r *http.Request) {
	s.getItem(w, r, s.svc.Categories())
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request, st *store.Store) {
	slug := chi.URLParam(r, "slug")
	it, ok := st.GetBySlug(slug)
	if !ok {
		it, ok = st.GetByID(slug)
	}
	if !ok {
		s.writeError(w, r, fmt.Errorf("%w: %s %q", store.ErrNotFound, st.Collection().Kind(), slug))
		return
	}
	respond(w, http.StatusOK, it)
}

func (s *Server) categoryProducts(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if _, ok := s.svc.Categories().Lookup(slug); !ok {
		s.writeError(w, r, fmt.Errorf("%w: category %q", store.ErrNotFound, slug))
		return
	}
	respond(w, http.StatusOK, s.inCategory(s.svc.Products().GetAll(), slug))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	token, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"token": token})
}
