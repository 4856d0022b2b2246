package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"listing-admin-api/internal/listview"
	"listing-admin-api/internal/logger"
	"listing-admin-api/internal/model"
	"listing-admin-api/internal/service"
	"listing-admin-api/pkg/apierror"
	"listing-admin-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// ListingHandler serves the listings table of the dashboard.
type ListingHandler struct {
	catalog *service.CatalogService
	log     logger.Logger
}

// NewListingHandler creates a new listing handler.
func NewListingHandler(catalog *service.CatalogService, log logger.Logger) *ListingHandler {
	return &ListingHandler{
		catalog: catalog,
		log:     log.With("component", "listings"),
	}
}

// List handles GET /api/v1/listings?status=&q=&page=&limit=
func (h *ListingHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	status := model.SaleStatus(q.Get("status"))
	if status != model.SaleStatusUnset && !status.Valid() {
		response.Error(w, apierror.ValidationError("invalid filter",
			apierror.FieldError{Field: "status", Message: "status must be empty, on_sale or sold"}))
		return
	}

	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	listings, pager, err := h.catalog.ListListings(r.Context(), model.ListingFilter{
		Status: status,
		Query:  strings.TrimSpace(q.Get("q")),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		h.log.Error("list listings failed", "error", err)
		response.Error(w, apierror.InternalError("failed to list listings"))
		return
	}

	response.JSONWithMeta(w, http.StatusOK, listings, pager.Page, pager.Limit, pager.Total)
}

// Get handles GET /api/v1/listings/{id}
func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	l, err := h.catalog.GetListing(r.Context(), id)
	if errors.Is(err, service.ErrListingNotFound) {
		response.Error(w, apierror.NotFound("Listing not found"))
		return
	}
	if err != nil {
		h.log.Error("get listing failed", "listing_id", id, "error", err)
		response.Error(w, apierror.InternalError("failed to load listing"))
		return
	}

	response.OK(w, l)
}

// DeleteRequest carries the listing selection. With SelectAll every listing
// of the page described by Status, Query, Page and Limit is selected on top
// of IDs, then each id in Toggle is flipped.
type DeleteRequest struct {
	IDs       []string         `json:"ids"`
	SelectAll bool             `json:"select_all"`
	Status    model.SaleStatus `json:"status"`
	Query     string           `json:"q"`
	Page      int              `json:"page"`
	Limit     int              `json:"limit"`
	Toggle    []string         `json:"toggle"`
}

// Delete handles POST /api/v1/listings/delete
func (h *ListingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	selection := listview.NewSelection(req.IDs...)
	var pageIDs []string
	if req.SelectAll {
		if req.Status != model.SaleStatusUnset && !req.Status.Valid() {
			response.Error(w, apierror.ValidationError("invalid filter",
				apierror.FieldError{Field: "status", Message: "status must be empty, on_sale or sold"}))
			return
		}
		listings, _, err := h.catalog.ListListings(r.Context(), model.ListingFilter{
			Status: req.Status,
			Query:  strings.TrimSpace(req.Query),
			Page:   req.Page,
			Limit:  req.Limit,
		})
		if err != nil {
			h.log.Error("resolve page selection failed", "error", err)
			response.Error(w, apierror.InternalError("failed to delete listings"))
			return
		}
		pageIDs = make([]string, len(listings))
		for i, l := range listings {
			pageIDs[i] = l.ID
		}
		selection.SelectAll(pageIDs)
	}
	for _, id := range req.Toggle {
		selection.Toggle(id)
	}

	if selection.Len() == 0 {
		response.Error(w, apierror.BadRequest("select at least one listing"))
		return
	}

	deleted, err := h.catalog.DeleteListings(r.Context(), selection.IDs())
	if err != nil {
		h.log.Error("delete listings failed", "selected", selection.Len(), "error", err)
		response.Error(w, apierror.InternalError("failed to delete listings"))
		return
	}

	response.OK(w, map[string]interface{}{
		"deleted":      deleted,
		"selected":     selection.Len(),
		"all_selected": selection.AllSelected(pageIDs),
	})
}
