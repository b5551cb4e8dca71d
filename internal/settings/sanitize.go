package settings

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/hierarchy/internal/models"
)

// Validate checks settings for values that cannot be stored.
func Validate(s models.Settings) error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.PerPage, validation.Min(-1)),
		validation.Field(&s.HiddenFromMenu, validation.Each(validation.Required)),
		validation.Field(&s.Types, validation.By(validTypes)),
	)
}

func validTypes(v any) error {
	types, _ := v.(map[string]models.TypeSettings)
	for name := range types {
		if name == "" {
			return errors.New("type name must not be empty")
		}
	}
	return nil
}

// Sanitize drops settings for types that are no longer registered, along
// with unknown hidden-menu names, and normalizes the page size.
func Sanitize(s models.Settings, registered []models.ContentType) models.Settings {
	known := make(map[string]struct{}, len(registered))
	for _, t := range registered {
		known[t.Name] = struct{}{}
	}

	out := models.Settings{
		Version: CurrentVersion,
		PerPage: s.PerPage,
		Types:   make(map[string]models.TypeSettings, len(s.Types)),
	}
	if out.PerPage <= 0 {
		out.PerPage = -1
	}
	for name, ts := range s.Types {
		if _, ok := known[name]; ok && name != models.PageType {
			out.Types[name] = ts
		}
	}
	for _, name := range s.HiddenFromMenu {
		if _, ok := known[name]; ok {
			out.HiddenFromMenu = append(out.HiddenFromMenu, name)
		}
	}
	return out
}

// TypeView is one row of the content type settings listing.
type TypeView struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Order       int    `json:"order"`
	Omit        bool   `json:"omit"`
	ShowEntries bool   `json:"show_entries"`
	NoNew       bool   `json:"no_new"`
	Hidden      bool   `json:"hidden_from_admin_menu"`
}

// Views lists the registered content types with their settings. The page
// type is skipped since it is the base of the hierarchy.
func Views(s models.Settings, registered []models.ContentType) []TypeView {
	hidden := make(map[string]bool, len(s.HiddenFromMenu))
	for _, name := range s.HiddenFromMenu {
		hidden[name] = true
	}
	out := make([]TypeView, 0, len(registered))
	for _, t := range registered {
		if t.Name == models.PageType {
			continue
		}
		ts := s.For(t.Name)
		out = append(out, TypeView{
			Name:        t.Name,
			Label:       t.DisplayLabel(),
			Order:       ts.Order,
			Omit:        ts.Omit,
			ShowEntries: ts.ShowEntries,
			NoNew:       ts.NoNew,
			Hidden:      hidden[t.Name],
		})
	}
	return out
}

// String summarizes s for log lines.
func String(s models.Settings) string {
	return fmt.Sprintf("version=%s per_page=%d types=%d hidden=%d",
		s.Version, s.PerPage, len(s.Types), len(s.HiddenFromMenu))
}
