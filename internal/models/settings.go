package models

// TypeSettings holds the per content type configuration.
type TypeSettings struct {
	Order       int  `json:"order" yaml:"order"`
	Omit        bool `json:"omit" yaml:"omit"`
	ShowEntries bool `json:"show_entries" yaml:"show_entries"`
	NoNew       bool `json:"no_new" yaml:"no_new"` // presentation only
}

// Settings is the persisted hierarchy configuration.
type Settings struct {
	Version        string                  `json:"version" yaml:"version"`
	PerPage        int                     `json:"per_page" yaml:"per_page"`
	HiddenFromMenu []string                `json:"hidden_from_admin_menu" yaml:"hidden_from_admin_menu"`
	Types          map[string]TypeSettings `json:"post_types" yaml:"post_types"`
}

// For returns the settings for a content type. Types registered after the
// settings were last saved get the zero value.
func (s Settings) For(name string) TypeSettings {
	return s.Types[name]
}
