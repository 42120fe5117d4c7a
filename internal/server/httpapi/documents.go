package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/playqueue/internal/api/queuev1"
	"github.com/and161185/playqueue/internal/errs"
	"github.com/and161185/playqueue/internal/model"
)

type resource struct {
	ID         string        `json:"id"`
	Type       string        `json:"type"`
	Attributes *queuev1.Item `json:"attributes"`
}

type document struct {
	Data any `json:"data"`
	Meta any `json:"meta,omitempty"`
}

type pageMeta struct {
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
	TotalCount  int `json:"total_count"`
	PageSize    int `json:"page_size"`
}

// attributes are the writable fields of a request document.
// after_id follows the original API: absent keeps the order input empty,
// null moves to the front, an id places after that item.
type attributes struct {
	queuev1.ItemFields
	AfterID json.RawMessage `json:"after_id"`
}

type requestDocument struct {
	Data struct {
		Type       string     `json:"type"`
		Attributes attributes `json:"attributes"`
	} `json:"data"`
}

type errorSource struct {
	Pointer   string `json:"pointer,omitempty"`
	Parameter string `json:"parameter,omitempty"`
}

type errorObject struct {
	Status string       `json:"status"`
	Code   string       `json:"code,omitempty"`
	Title  string       `json:"title,omitempty"`
	Detail string       `json:"detail,omitempty"`
	Source *errorSource `json:"source,omitempty"`
}

func toResource(it *queuev1.Item) resource {
	return resource{ID: it.ID, Type: ResourceType, Attributes: it}
}

func decodeRequest(r *http.Request) (queuev1.ItemFields, error) {
	var doc requestDocument
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&doc); err != nil {
		return queuev1.ItemFields{}, errs.Invalid("data", "is not a valid document")
	}
	f := doc.Data.Attributes.ItemFields
	raw := bytes.TrimSpace(doc.Data.Attributes.AfterID)
	switch {
	case len(raw) == 0:
	case bytes.Equal(raw, []byte("null")):
		f.Placement = &queuev1.Placement{Kind: queuev1.PlaceFirst}
	default:
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return queuev1.ItemFields{}, errs.Invalid("after_id", "is not a valid id")
		}
		f.Placement = &queuev1.Placement{Kind: queuev1.PlaceAfter, AfterID: id}
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, title string) {
	writeJSON(w, status, map[string]any{
		"errors": []errorObject{{Status: strconv.Itoa(status), Title: title}},
	})
}

// writeServiceError maps a service error to an error document.
func (s *Server) writeServiceError(w http.ResponseWriter, op string, err error) {
	var ve *errs.ValidationError
	switch {
	case errors.As(err, &ve):
		out := make([]errorObject, 0, len(ve.Fields))
		for _, f := range ve.Fields {
			out = append(out, errorObject{
				Status: "400",
				Title:  "Invalid Attribute",
				Detail: f.Detail,
				Source: &errorSource{Pointer: "/data/attributes/" + f.Field},
			})
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": out})
	case errors.Is(err, errs.ErrWrongUserAfter):
		writeAfterError(w, "wrong_user_after", err)
	case errors.Is(err, errs.ErrAfterItemUnpersisted):
		writeAfterError(w, "after_item_unpersisted", err)
	case errors.Is(err, errs.ErrRangeViolation):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": []errorObject{{
			Status: "422", Code: "position_range_violation", Title: err.Error(),
		}}})
	case errors.Is(err, errs.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, errs.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, errs.ErrVersionConflict):
		writeError(w, http.StatusConflict, "concurrent modification, retry")
	case errors.Is(err, errs.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "no auth")
	default:
		s.log.Error(op, zap.Error(err))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("%s failed", op))
	}
}

func writeAfterError(w http.ResponseWriter, code string, err error) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": []errorObject{{
		Status: "422",
		Code:   code,
		Title:  err.Error(),
		Source: &errorSource{Pointer: "/data/attributes/after_id"},
	}}})
}

func pageMetaOf(m model.PageMeta) pageMeta {
	return pageMeta{CurrentPage: m.CurrentPage, TotalPages: m.TotalPages, TotalCount: m.TotalCount, PageSize: m.PageSize}
}

// writeParamError reports query parameter failures with source.parameter.
func writeParamError(w http.ResponseWriter, err error) {
	var ve *errs.ValidationError
	if !errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, "bad query")
		return
	}
	out := make([]errorObject, 0, len(ve.Fields))
	for _, f := range ve.Fields {
		param := f.Field
		if !strings.Contains(param, "[") {
			param = "filter[" + param + "]"
		}
		out = append(out, errorObject{
			Status: "400",
			Title:  "Invalid Query Parameter",
			Detail: f.Detail,
			Source: &errorSource{Parameter: param},
		})
	}
	writeJSON(w, http.StatusBadRequest, map[string]any{"errors": out})
}
