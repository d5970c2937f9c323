package projects

import (
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/portfolio/portfolio/backend/go-services/internal/models"
	"github.com/portfolio/portfolio/backend/go-services/internal/resource"
)

const (
	maxSlugLen  = 100
	maxShortLen = 500
	ellipsis    = "..."
)

// Slugify lower-cases s and joins its alphanumeric runs with hyphens.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if len(out) > maxSlugLen {
		out = strings.TrimRight(out[:maxSlugLen], "-")
	}
	return out
}

// ShortDescription derives a summary that fits the shortDescription limit.
func ShortDescription(description string) string {
	limit := maxShortLen - len(ellipsis)
	if utf8.RuneCountInString(description) <= limit {
		return description + ellipsis
	}
	return string([]rune(description)[:limit]) + ellipsis
}

func trimAll(items []string) []string {
	if items == nil {
		return nil
	}
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = strings.TrimSpace(s)
	}
	return out
}

func normalize(p *models.Project) {
	p.Slug = strings.ToLower(strings.TrimSpace(p.Slug))
	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)
	p.ShortDescription = strings.TrimSpace(p.ShortDescription)
	p.Github = strings.TrimSpace(p.Github)
	p.LiveLink = strings.TrimSpace(p.LiveLink)
	p.Goal = strings.TrimSpace(p.Goal)
	p.Technologies = trimAll(p.Technologies)
	p.Features = trimAll(p.Features)
	p.Category = trimAll(p.Category)
	for i := range p.Images {
		p.Images[i].Src = strings.TrimSpace(p.Images[i].Src)
		p.Images[i].Alt = strings.TrimSpace(p.Images[i].Alt)
		p.Images[i].Caption = strings.TrimSpace(p.Images[i].Caption)
	}
	if p.Status == "" {
		p.Status = models.StatusPlanned
	}
}

func beforeCreate(actor *resource.Actor, p *models.Project) error {
	normalize(p)
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	if p.ShortDescription == "" && p.Description != "" {
		p.ShortDescription = ShortDescription(p.Description)
	}
	p.CreatedBy, p.UpdatedBy = nil, nil
	if actor != nil {
		id := actor.ID
		p.CreatedBy = &id
	}
	return nil
}

func beforeUpdate(actor *resource.Actor, p *models.Project) error {
	normalize(p)
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	if actor != nil {
		id := actor.ID
		p.UpdatedBy = &id
	}
	return nil
}

// validateDates requires endDate to be on or after startDate when both are set.
func validateDates(sl validator.StructLevel) {
	p := sl.Current().Interface().(models.Project)
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		sl.ReportError(p.EndDate, "endDate", "EndDate", "gtefield", "startDate")
	}
}
