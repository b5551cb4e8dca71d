// Package fixture reads YAML site snapshots: the pages, entries, content
// types and reading options a hierarchy is assembled from.
package fixture

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/starford/hierarchy/internal/apperr"
	"github.com/starford/hierarchy/internal/models"
)

// Options are the site-wide reading options.
type Options struct {
	// ShowOnFront is "page" when a static front page is used; only then
	// does PageForPosts designate a posts-index page.
	ShowOnFront    string `yaml:"show_on_front"`
	PageForPosts   int64  `yaml:"page_for_posts"`
	PermalinkFront string `yaml:"permalink_front"`
}

// Author is a display name keyed by id.
type Author struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

// ContentType is a registered content type.
type ContentType struct {
	Name          string `yaml:"name"`
	Label         string `yaml:"label"`
	SingularLabel string `yaml:"singular_label"`
	Hierarchical  bool   `yaml:"hierarchical"`
	RouteTemplate string `yaml:"route_template"`
	HasArchive    bool   `yaml:"has_archive"`
	RouteSlug     string `yaml:"route_slug"`
}

// Record is a page or an entry of another type.
type Record struct {
	ID       int64  `yaml:"id"`
	Type     string `yaml:"type"`
	Title    string `yaml:"title"`
	Slug     string `yaml:"slug"`
	Parent   int64  `yaml:"parent"`
	Order    int    `yaml:"order"`
	Status   string `yaml:"status"`
	Author   int64  `yaml:"author"`
	Comments int    `yaml:"comments"`
	// Date is kept verbatim; unparseable dates render empty.
	Date string `yaml:"date"`
}

// Site is a complete snapshot.
type Site struct {
	Options      Options       `yaml:"options"`
	Authors      []Author      `yaml:"authors"`
	ContentTypes []ContentType `yaml:"content_types"`
	Pages        []Record      `yaml:"pages"`
	Entries      []Record      `yaml:"entries"`
}

// Parse decodes a YAML snapshot, fills defaults and validates it. Malformed
// snapshots yield errors wrapping apperr.ErrInvalid.
func Parse(data []byte) (*Site, error) {
	var s Site
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("fixture: decode: %w: %v", apperr.ErrInvalid, err)
	}
	s.normalize()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("fixture: %w: %v", apperr.ErrInvalid, err)
	}
	return &s, nil
}

func (s *Site) normalize() {
	for i := range s.Pages {
		s.Pages[i].Type = models.PageType
		s.Pages[i].fill()
	}
	for i := range s.Entries {
		s.Entries[i].fill()
	}
}

func (r *Record) fill() {
	if r.Slug == "" {
		r.Slug = Slug(r.Title)
	}
	if r.Status == "" {
		r.Status = "publish"
	}
}

// Validate checks the snapshot for structural errors. Dangling parent and
// author references are allowed; they degrade at display time.
func (s Site) Validate() error {
	if err := validation.ValidateStruct(&s,
		validation.Field(&s.ContentTypes, validation.Each(validation.By(validType))),
		validation.Field(&s.Pages, validation.Each(validation.By(validRecord))),
		validation.Field(&s.Entries, validation.Each(validation.By(validRecord))),
	); err != nil {
		return err
	}

	names := make(map[string]struct{}, len(s.ContentTypes))
	for _, t := range s.ContentTypes {
		if _, dup := names[t.Name]; dup {
			return fmt.Errorf("content type %q registered twice", t.Name)
		}
		names[t.Name] = struct{}{}
	}
	ids := make(map[int64]struct{}, len(s.Pages)+len(s.Entries))
	for _, r := range append(append([]Record(nil), s.Pages...), s.Entries...) {
		if _, dup := ids[r.ID]; dup {
			return fmt.Errorf("record id %d used twice", r.ID)
		}
		ids[r.ID] = struct{}{}
	}
	for _, e := range s.Entries {
		if _, ok := names[e.Type]; !ok {
			return fmt.Errorf("entry %d: unknown content type %q", e.ID, e.Type)
		}
	}
	return nil
}

func validType(v any) error {
	t := v.(ContentType)
	return validation.ValidateStruct(&t,
		validation.Field(&t.Name, validation.Required, validation.Length(1, 20)),
	)
}

func validRecord(v any) error {
	r := v.(Record)
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.Type, validation.Required),
		validation.Field(&r.Parent, validation.Min(int64(0))),
	)
}

// ContentTypeModels converts the registered types to models.
func (s Site) ContentTypeModels() []models.ContentType {
	out := make([]models.ContentType, len(s.ContentTypes))
	for i, t := range s.ContentTypes {
		out[i] = models.ContentType{
			Name:          t.Name,
			Label:         t.Label,
			SingularLabel: t.SingularLabel,
			Hierarchical:  t.Hierarchical,
			RouteTemplate: t.RouteTemplate,
			HasArchive:    t.HasArchive,
			RouteSlug:     t.RouteSlug,
		}
	}
	return out
}

var (
	nonSlug     = regexp.MustCompile(`[^a-z0-9-]+`)
	multiHyphen = regexp.MustCompile(`-{2,}`)
)

// Slug derives an ASCII route slug from a title.
func Slug(title string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}))
	s, _, _ := transform.String(t, title)
	s = strings.ToLower(s)
	s = nonSlug.ReplaceAllString(s, "-")
	s = multiHyphen.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
