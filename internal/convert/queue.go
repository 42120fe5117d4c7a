// Package convert maps queuev1 wire messages to domain types and back.
package convert

import (
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/playqueue/internal/api/queuev1"
	"github.com/and161185/playqueue/internal/errs"
	"github.com/and161185/playqueue/internal/model"
)

// --- helpers ---

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

// ParseID parses an item id, reporting failures against field.
func ParseID(field, v string) (uuid.UUID, error) {
	id, err := uuid.FromString(v)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errs.Invalid(field, "is not a valid id")
	}
	return id, nil
}

// --- domain -> wire ---

// ToItem converts a domain item into its wire form.
func ToItem(it model.Item) *queuev1.Item {
	out := &queuev1.Item{
		ID:          it.ID.String(),
		Status:      string(it.Status),
		Position:    it.Position,
		CompletedAt: utc(it.CompletedAt),
		Identifier:  it.Identifier,
		Title:       it.Title,
		URL:         it.URL,
		Description: it.Description,
		Hosts:       it.Hosts,
		Program:     it.Program,
		OriginURL:   it.OriginURL,
		ImageURL:    it.ImageURL,
		Source:      it.Source,
		Playtime:    it.Playtime,
		PublishedAt: utc(it.PublishedAt),
		CreatedAt:   it.CreatedAt.UTC(),
		UpdatedAt:   it.UpdatedAt.UTC(),
	}
	if it.AfterID != nil {
		out.AfterID = it.AfterID.String()
	}
	return out
}

// ToListResponse converts a page of the ordered view.
func ToListResponse(p model.Page) *queuev1.ListItemsResponse {
	items := make([]*queuev1.Item, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, ToItem(it))
	}
	return &queuev1.ListItemsResponse{
		Items: items,
		Meta: queuev1.PageMeta{
			TotalCount:  int32(p.Meta.TotalCount),
			TotalPages:  int32(p.Meta.TotalPages),
			CurrentPage: int32(p.Meta.CurrentPage),
			PageSize:    int32(p.Meta.PageSize),
		},
	}
}

// --- wire -> domain ---

// FromPlacement converts a wire directive. A nil directive stays nil.
func FromPlacement(p *queuev1.Placement) (*model.Placement, error) {
	if p == nil {
		return nil, nil
	}
	kind, err := model.ParsePlacementKind(p.Kind)
	if err != nil {
		return nil, errs.Invalid("placement", "is not included in the list")
	}
	if kind != model.PlaceAfter {
		if p.AfterID != "" {
			return nil, errs.Invalid("after_id", "must be blank unless placement is after")
		}
		return &model.Placement{Kind: kind}, nil
	}
	id, err := ParseID("after_id", p.AfterID)
	if err != nil {
		return nil, err
	}
	out := model.After(id)
	return &out, nil
}

func fromStatus(v *string) (*model.Status, error) {
	if v == nil {
		return nil, nil
	}
	s, err := model.ParseStatus(*v)
	if err != nil {
		return nil, errs.Invalid("status", "is not included in the list")
	}
	return &s, nil
}

// FromCreate converts create fields into an ItemInput. Missing fields are blank.
func FromCreate(f queuev1.ItemFields) (model.ItemInput, error) {
	in := model.ItemInput{
		Payload: model.Payload{
			Identifier:  str(f.Identifier),
			Title:       str(f.Title),
			URL:         str(f.URL),
			Description: str(f.Description),
			Hosts:       str(f.Hosts),
			Program:     str(f.Program),
			OriginURL:   str(f.OriginURL),
			ImageURL:    str(f.ImageURL),
			Source:      str(f.Source),
			PublishedAt: utc(f.PublishedAt),
		},
		CompletedAt: utc(f.CompletedAt),
	}
	if f.Playtime != nil {
		in.Playtime = *f.Playtime
	}
	st, err := fromStatus(f.Status)
	if err != nil {
		return model.ItemInput{}, err
	}
	if st != nil {
		in.Status = *st
	}
	if in.Placement, err = FromPlacement(f.Placement); err != nil {
		return model.ItemInput{}, err
	}
	return in, nil
}

// FromPatch converts update fields into an ItemPatch. The identifier is ignored.
func FromPatch(f queuev1.ItemFields) (model.ItemPatch, error) {
	pt := model.ItemPatch{
		Title:       f.Title,
		URL:         f.URL,
		Description: f.Description,
		Hosts:       f.Hosts,
		Program:     f.Program,
		OriginURL:   f.OriginURL,
		ImageURL:    f.ImageURL,
		Source:      f.Source,
		Playtime:    f.Playtime,
		PublishedAt: utc(f.PublishedAt),
		CompletedAt: utc(f.CompletedAt),
	}
	var err error
	if pt.Status, err = fromStatus(f.Status); err != nil {
		return model.ItemPatch{}, err
	}
	if pt.Placement, err = FromPlacement(f.Placement); err != nil {
		return model.ItemPatch{}, err
	}
	return pt, nil
}

// FromListRequest converts list parameters into a ListQuery.
func FromListRequest(r *queuev1.ListItemsRequest) (model.ListQuery, error) {
	q := model.ListQuery{
		Page:     int(r.Page),
		PageSize: int(r.PageSize),
		Filter: model.Filter{
			Identifiers: r.Identifiers,
			Sources:     r.Sources,
		},
	}
	for _, v := range r.Statuses {
		s, err := model.ParseStatus(v)
		if err != nil {
			return model.ListQuery{}, errs.Invalid("status", "is not included in the list")
		}
		q.Filter.Statuses = append(q.Filter.Statuses, s)
	}
	if r.AfterID != "" {
		id, err := ParseID("after_id", r.AfterID)
		if err != nil {
			return model.ListQuery{}, err
		}
		q.AfterID = &id
	}
	return q, nil
}
