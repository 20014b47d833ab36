package server

import (
	"net/http"

	"assettrack/pkg/types"
)

type createCategoryRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type createAccessoryTypeRequest struct {
	Name string `json:"name"`
}

func (s *Service) handleListCategories(w http.ResponseWriter, r *http.Request) {
	var pq types.PageQuery
	if err := decodeQuery(r.URL.Query(), &pq); err != nil {
		s.writeError(w, r, err)
		return
	}

	page, err := s.categories.ListCategories(r.Context(), pq)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, page)
}

func (s *Service) handleCategoryStats(w http.ResponseWriter, r *http.Request) {
	viewer, err := s.viewer(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	stats, err := s.categories.Stats(r.Context(), viewer)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Service) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var body createCategoryRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	category, err := s.categories.CreateCategory(r.Context(), body.Name, body.Slug)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.WithField("slug", category.Slug).Info("category created")
	s.writeJSON(w, http.StatusCreated, category)
}

func (s *Service) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	if err := s.categories.DeleteCategory(r.Context(), slug); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.WithField("slug", slug).Info("category deleted")
	s.writeOK(w)
}

func (s *Service) handleListAccessoryTypes(w http.ResponseWriter, r *http.Request) {
	accessoryTypes, err := s.accessories.AccessoryTypes(r.Context(), r.PathValue("slug"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, accessoryTypes)
}

func (s *Service) handleCreateAccessoryType(w http.ResponseWriter, r *http.Request) {
	var body createAccessoryTypeRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	accessoryType, err := s.accessories.CreateAccessoryType(r.Context(), r.PathValue("slug"), body.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, accessoryType)
}

func (s *Service) handleDeleteAccessoryType(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	err := s.accessories.DeleteAccessoryType(ctx, r.PathValue("slug"), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeOK(w)
}
