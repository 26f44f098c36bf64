package handlers

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/lehigh-university-libraries/catalogsync/internal/cataloging"
	"github.com/lehigh-university-libraries/catalogsync/internal/models"
)

// resource describes one document collection exposed under prefix
type resource[T any] struct {
	name   string
	prefix string
	items  func(doc *models.CatalogDocument) map[string]*T
	id     func(v *T) *string
	add    func(ctx context.Context, v *T) (cataloging.Result, error)
	update func(ctx context.Context, v *T) (cataloging.Result, error)
	remove func(r *http.Request, id string) (cataloging.Result, error)
}

func serveList[T any](h *Handler, res resource[T], w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		entry, err := h.cache.Read(r.Context())
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		items := res.items(entry.Document)
		ids := make([]string, 0, len(items))
		for id := range items {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		list := make([]*T, 0, len(ids))
		for _, id := range ids {
			list = append(list, items[id])
		}
		h.writeJSON(w, http.StatusOK, list)
	case "POST":
		var v T
		if !h.decodeJSON(w, r, &v) {
			return
		}
		result, err := res.add(r.Context(), &v)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		h.writeJSON(w, http.StatusCreated, result)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func serveDetail[T any](h *Handler, res resource[T], w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, res.prefix)
	if id == "" || strings.Contains(id, "/") {
		h.writeError(w, res.name+" not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case "GET":
		entry, err := h.cache.Read(r.Context())
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		v, ok := res.items(entry.Document)[id]
		if !ok {
			h.writeError(w, res.name+" not found", http.StatusNotFound)
			return
		}
		h.writeJSON(w, http.StatusOK, v)
	case "PUT":
		var v T
		if !h.decodeJSON(w, r, &v) {
			return
		}
		if bodyID := res.id(&v); *bodyID == "" {
			*bodyID = id
		} else if *bodyID != id {
			h.writeError(w, "Identifier in body does not match URL", http.StatusBadRequest)
			return
		}
		result, err := res.update(r.Context(), &v)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, result)
	case "DELETE":
		result, err := res.remove(r, id)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, result)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) modules() resource[models.Module] {
	return resource[models.Module]{
		name:   "Module",
		prefix: "/api/modules/",
		items:  func(doc *models.CatalogDocument) map[string]*models.Module { return doc.Modules },
		id:     func(v *models.Module) *string { return &v.ID },
		add:    h.service.AddModule,
		update: h.service.UpdateModule,
		remove: func(r *http.Request, id string) (cataloging.Result, error) {
			return h.service.DeleteModule(r.Context(), id)
		},
	}
}

// HandleModules lists and creates modules. DELETE with ?ids=a,b removes several modules in one write.
func (h *Handler) HandleModules(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == "DELETE":
		var ids []string
		for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		result, err := h.service.BulkDeleteModules(r.Context(), ids)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, result)
	case r.Method == "GET" && r.URL.Query().Get("category") != "":
		entry, err := h.cache.Read(r.Context())
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		ids := entry.Document.ModulesInCategory(r.URL.Query().Get("category"))
		list := make([]*models.Module, 0, len(ids))
		for _, id := range ids {
			list = append(list, entry.Document.Modules[id])
		}
		h.writeJSON(w, http.StatusOK, list)
	default:
		serveList(h, h.modules(), w, r)
	}
}

func (h *Handler) HandleModuleDetail(w http.ResponseWriter, r *http.Request) {
	serveDetail(h, h.modules(), w, r)
}

func (h *Handler) packages() resource[models.Package] {
	return resource[models.Package]{
		name:   "Package",
		prefix: "/api/packages/",
		items:  func(doc *models.CatalogDocument) map[string]*models.Package { return doc.Packages },
		id:     func(v *models.Package) *string { return &v.ID },
		add:    h.service.AddPackage,
		update: h.service.UpdatePackage,
		remove: func(r *http.Request, id string) (cataloging.Result, error) {
			return h.service.DeletePackage(r.Context(), id)
		},
	}
}

func (h *Handler) HandlePackages(w http.ResponseWriter, r *http.Request) {
	serveList(h, h.packages(), w, r)
}

func (h *Handler) HandlePackageDetail(w http.ResponseWriter, r *http.Request) {
	serveDetail(h, h.packages(), w, r)
}

func (h *Handler) categories() resource[models.Category] {
	return resource[models.Category]{
		name:   "Category",
		prefix: "/api/categories/",
		items:  func(doc *models.CatalogDocument) map[string]*models.Category { return doc.Categories },
		id:     func(v *models.Category) *string { return &v.ID },
		add:    h.service.AddCategory,
		update: h.service.UpdateCategory,
		remove: func(r *http.Request, id string) (cataloging.Result, error) {
			return h.service.DeleteCategory(r.Context(), id, r.URL.Query().Get("fallback"))
		},
	}
}

func (h *Handler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	serveList(h, h.categories(), w, r)
}

// HandleCategoryDetail also serves POST /api/categories/reassign with {"from": ..., "to": ...}
func (h *Handler) HandleCategoryDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method == "POST" && r.URL.Path == "/api/categories/reassign" {
		var request struct {
			From string `json:"from"`
			To   string `json:"to"`
		}
		if !h.decodeJSON(w, r, &request) {
			return
		}
		result, err := h.service.ReassignCategory(r.Context(), request.From, request.To)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, result)
		return
	}
	serveDetail(h, h.categories(), w, r)
}

func (h *Handler) bundles() resource[models.Bundle] {
	return resource[models.Bundle]{
		name:   "Bundle",
		prefix: "/api/bundles/",
		items:  func(doc *models.CatalogDocument) map[string]*models.Bundle { return doc.ContentBundles },
		id:     func(v *models.Bundle) *string { return &v.ID },
		add:    h.service.AddBundle,
		update: h.service.UpdateBundle,
		remove: func(r *http.Request, id string) (cataloging.Result, error) {
			return h.service.DeleteBundle(r.Context(), id)
		},
	}
}

func (h *Handler) HandleBundles(w http.ResponseWriter, r *http.Request) {
	serveList(h, h.bundles(), w, r)
}

func (h *Handler) HandleBundleDetail(w http.ResponseWriter, r *http.Request) {
	serveDetail(h, h.bundles(), w, r)
}

func (h *Handler) orders() resource[models.Purchase] {
	return resource[models.Purchase]{
		name:   "Order",
		prefix: "/api/orders/",
		items:  func(doc *models.CatalogDocument) map[string]*models.Purchase { return doc.Purchases },
		id:     func(v *models.Purchase) *string { return &v.ID },
		add:    h.service.AddOrder,
		update: h.service.UpdateOrder,
		remove: func(r *http.Request, id string) (cataloging.Result, error) {
			return h.service.DeleteOrder(r.Context(), id)
		},
	}
}

func (h *Handler) HandleOrders(w http.ResponseWriter, r *http.Request) {
	serveList(h, h.orders(), w, r)
}

func (h *Handler) HandleOrderDetail(w http.ResponseWriter, r *http.Request) {
	serveDetail(h, h.orders(), w, r)
}

// HandleUsers lists users from the catalog and creates them through the entity endpoint
func (h *Handler) HandleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		entry, err := h.cache.Read(r.Context())
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		users := make([]*models.User, 0, len(entry.Document.Users))
		for _, u := range entry.Document.Users {
			users = append(users, u)
		}
		sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
		h.writeJSON(w, http.StatusOK, users)
	case "POST":
		var user models.User
		if !h.decodeJSON(w, r, &user) {
			return
		}
		created, err := h.service.CreateUser(r.Context(), &user)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		h.writeJSON(w, http.StatusCreated, created)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) HandleUserDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/users/")
	if r.Method != "DELETE" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
