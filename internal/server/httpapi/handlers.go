package httpapi

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/playqueue/internal/api/queuev1"
	"github.com/and161185/playqueue/internal/auth"
	"github.com/and161185/playqueue/internal/convert"
	"github.com/and161185/playqueue/internal/errs"
)

func ownerOf(r *http.Request) uuid.UUID {
	id, _ := auth.OwnerIDFromCtx(r.Context())
	return id
}

func (s *Server) itemID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil || id == uuid.Nil {
		writeError(w, http.StatusNotFound, "not found")
		return uuid.Nil, false
	}
	return id, true
}

// values collects key, key[] and comma separated forms of one parameter.
func values(q url.Values, key string) []string {
	var out []string
	for _, k := range []string{key, key + "[]"} {
		for _, v := range q[k] {
			for _, p := range strings.Split(v, ",") {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
		}
	}
	return out
}

func intParam(q url.Values, key string) (int32, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil || n < 0 {
		return 0, errs.Invalid(key, "must be a positive number")
	}
	return int32(n), nil
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := &queuev1.ListItemsRequest{
		Statuses:    values(q, "filter[status]"),
		Identifiers: values(q, "filter[identifier]"),
		Sources:     values(q, "filter[source]"),
		AfterID:     q.Get("filter[after_id]"),
	}
	var err error
	if req.Page, err = intParam(q, "page[number]"); err == nil {
		req.PageSize, err = intParam(q, "page[size]")
	}
	if err != nil {
		writeParamError(w, err)
		return
	}
	lq, err := convert.FromListRequest(req)
	if err != nil {
		writeParamError(w, err)
		return
	}

	page, err := s.items.List(r.Context(), ownerOf(r), lq)
	if err != nil {
		s.writeServiceError(w, "list", err)
		return
	}
	res := convert.ToListResponse(page)
	data := make([]resource, 0, len(res.Items))
	for _, it := range res.Items {
		data = append(data, toResource(it))
	}
	writeJSON(w, http.StatusOK, document{Data: data, Meta: pageMetaOf(page.Meta)})
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.itemID(w, r)
	if !ok {
		return
	}
	it, err := s.items.Get(r.Context(), ownerOf(r), id)
	if err != nil {
		s.writeServiceError(w, "get item", err)
		return
	}
	writeJSON(w, http.StatusOK, document{Data: toResource(convert.ToItem(*it))})
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	f, err := decodeRequest(r)
	if err != nil {
		s.writeServiceError(w, "create", err)
		return
	}
	in, err := convert.FromCreate(f)
	if err != nil {
		s.writeServiceError(w, "create", err)
		return
	}
	it, err := s.items.Create(r.Context(), ownerOf(r), in)
	if err != nil {
		s.writeServiceError(w, "create", err)
		return
	}
	writeJSON(w, http.StatusOK, document{Data: toResource(convert.ToItem(*it))})
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.itemID(w, r)
	if !ok {
		return
	}
	f, err := decodeRequest(r)
	if err != nil {
		s.writeServiceError(w, "update", err)
		return
	}
	patch, err := convert.FromPatch(f)
	if err != nil {
		s.writeServiceError(w, "update", err)
		return
	}
	if _, err := s.items.Update(r.Context(), ownerOf(r), id, patch); err != nil {
		s.writeServiceError(w, "update", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.itemID(w, r)
	if !ok {
		return
	}
	if err := s.items.Delete(r.Context(), ownerOf(r), id); err != nil {
		s.writeServiceError(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResort(w http.ResponseWriter, r *http.Request) {
	n, err := s.items.Resort(r.Context(), ownerOf(r))
	if err != nil {
		s.writeServiceError(w, "resort", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"meta": map[string]int{"moved": n}})
}
