package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go-course-wiki/internal/data"
	"go-course-wiki/internal/logger"
	"go-course-wiki/internal/middleware"
	"go-course-wiki/internal/service"

	"github.com/go-chi/chi/v5"
)

// PageHandler holds the dependencies for the wiki content handlers.
type PageHandler struct {
	wiki service.WikiServicer
	log  logger.Logger
}

// NewPageHandler creates a new PageHandler with the given dependencies.
func NewPageHandler(wiki service.WikiServicer, log logger.Logger) *PageHandler {
	return &PageHandler{wiki: wiki, log: log}
}

// listHandler returns the whole wiki as a forest of items.
func (h *PageHandler) listHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	forest, err := h.wiki.ListTree(r.Context())
	if err != nil {
		return fromServiceError(err, "Error listing structure.")
	}
	return respondJSON(w, http.StatusOK, forest)
}

// readHandler returns a single page addressed by the wildcard path.
func (h *PageHandler) readHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	path := chi.URLParam(r, "*")
	page, err := h.wiki.GetPage(r.Context(), path)
	if err != nil {
		return fromServiceError(err, "Error reading page.")
	}
	return respondJSON(w, http.StatusOK, map[string]string{
		"path":        page.Path,
		"title":       page.Title,
		"description": page.Description,
		"content":     page.Content,
		"parentPath":  page.ParentPath,
	})
}

// saveHandler creates or updates a page.
func (h *PageHandler) saveHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req struct {
		ItemPathToUpdate string  `json:"itemPathToUpdate"`
		ParentPath       *string `json:"parentPath"`
		Title            string  `json:"title"`
		Description      string  `json:"description"`
		Content          *string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &middleware.AppError{Error: err, Message: "Invalid request body.", Code: http.StatusBadRequest}
	}

	page, err := h.wiki.SavePage(r.Context(), service.SavePageInput{
		PathToUpdate: req.ItemPathToUpdate,
		ParentPath:   req.ParentPath,
		Title:        req.Title,
		Description:  req.Description,
		Content:      req.Content,
	})
	if err != nil {
		return fromServiceError(err, "Error saving page.")
	}
	return respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Page '%s' saved.", page.Path),
		"path":    page.Path,
		"title":   page.Title,
		"name":    page.Name,
	})
}

// createDirectoryHandler creates a new folder.
func (h *PageHandler) createDirectoryHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req struct {
		ParentPath  *string `json:"parentPath"`
		Title       string  `json:"title"`
		Description string  `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &middleware.AppError{Error: err, Message: "Invalid request body.", Code: http.StatusBadRequest}
	}

	dir, err := h.wiki.CreateDirectory(r.Context(), service.CreateDirectoryInput{
		ParentPath:  req.ParentPath,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return fromServiceError(err, "Error creating directory.")
	}
	return respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Directory '%s' created.", dir.Path),
		"path":    dir.Path,
		"title":   dir.Title,
		"name":    dir.Name,
	})
}

// deleteHandler removes an item, cascading through directories.
func (h *PageHandler) deleteHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	path := chi.URLParam(r, "*")
	item, removed, err := h.wiki.DeleteItem(r.Context(), path)
	if err != nil {
		return fromServiceError(err, "Error deleting item.")
	}
	message := fmt.Sprintf("File '%s' deleted.", path)
	if item.Type == data.TypeDirectory {
		message = fmt.Sprintf("Directory '%s' and %d contained items deleted.", path, removed)
	}
	return respondJSON(w, http.StatusOK, map[string]string{"message": message})
}

// renameHandler moves and/or retitles an item.
func (h *PageHandler) renameHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req struct {
		OldPath        string  `json:"oldPath"`
		NewParentPath  string  `json:"newParentPath"`
		NewTitle       string  `json:"newTitle"`
		NewDescription *string `json:"newDescription"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &middleware.AppError{Error: err, Message: "Invalid request body.", Code: http.StatusBadRequest}
	}

	result, err := h.wiki.Rename(r.Context(), service.RenameInput{
		OldPath:        req.OldPath,
		NewParentPath:  req.NewParentPath,
		NewTitle:       req.NewTitle,
		NewDescription: req.NewDescription,
	})
	if err != nil {
		return fromServiceError(err, "Error renaming item.")
	}
	return respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Item '%s' moved to '%s'.", result.OldPath, result.NewPath),
		"newPath": result.NewPath,
		"oldPath": result.OldPath,
		"title":   result.Title,
	})
}
