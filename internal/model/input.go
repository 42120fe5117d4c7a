package model

import "time"

// ItemInput is a create request. A second create with the same Identifier
// for the same owner updates the existing item.
type ItemInput struct {
	Payload
	Status      Status // empty means unplayed
	CompletedAt *time.Time
	Placement   *Placement // nil means no ordering input: append
}

// ItemPatch is a partial update. Nil fields are left untouched.
// The identifier cannot be changed.
type ItemPatch struct {
	Title       *string
	URL         *string
	Description *string
	Hosts       *string
	Program     *string
	OriginURL   *string
	ImageURL    *string
	Source      *string
	Playtime    *int32
	PublishedAt *time.Time

	Status      *Status
	CompletedAt *time.Time
	Placement   *Placement
}

// ApplyPayload copies the set payload fields onto p.
func (pt ItemPatch) ApplyPayload(p *Payload) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&p.Title, pt.Title)
	set(&p.URL, pt.URL)
	set(&p.Description, pt.Description)
	set(&p.Hosts, pt.Hosts)
	set(&p.Program, pt.Program)
	set(&p.OriginURL, pt.OriginURL)
	set(&p.ImageURL, pt.ImageURL)
	set(&p.Source, pt.Source)
	if pt.Playtime != nil {
		p.Playtime = *pt.Playtime
	}
	if pt.PublishedAt != nil {
		ts := pt.PublishedAt.UTC()
		p.PublishedAt = &ts
	}
}

// Patch turns a create request into the update applied to an existing item
// with the same identifier.
func (in ItemInput) Patch() ItemPatch {
	p := in.Payload
	pt := ItemPatch{
		Title:       &p.Title,
		URL:         &p.URL,
		Description: &p.Description,
		Hosts:       &p.Hosts,
		Program:     &p.Program,
		OriginURL:   &p.OriginURL,
		ImageURL:    &p.ImageURL,
		Source:      &p.Source,
		Playtime:    &p.Playtime,
		PublishedAt: p.PublishedAt,
		CompletedAt: in.CompletedAt,
		Placement:   in.Placement,
	}
	if in.Status != "" {
		s := in.Status
		pt.Status = &s
	}
	return pt
}
