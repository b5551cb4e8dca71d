package mcpserver

// SettingsFormat describes the hierarchy settings document for LLM consumers.
const SettingsFormat = `# Hierarchy Settings Format

The settings file is YAML. The REST API accepts the same fields as JSON.

` + "```" + `yaml
version: "1.0"             # stamped on save
per_page: -1               # rows per listing page; -1 shows everything
hidden_from_admin_menu:    # registered type names hidden from the admin menu
  - faq
post_types:
  post:
    order: 0               # section position among siblings (lower first)
    omit: false            # leave the type out of the hierarchy entirely
    show_entries: true     # list the type's entries below its section row
    no_new: false          # hide the "add new" action (presentation only)
` + "```" + `

## Rules

1. ` + "`" + `post_types` + "`" + ` keys must be registered content type names. Unknown names and
   the ` + "`" + `page` + "`" + ` type are dropped on save.
2. Types missing from ` + "`" + `post_types` + "`" + ` use zero values: order 0, not omitted,
   entries hidden.
3. A section is anchored below the page its archive route points at. Types with no
   matching page are appended at the root, ordered by ` + "`" + `order` + "`" + `.
4. ` + "`" + `per_page` + "`" + ` of 0 or less is saved as -1.
5. Saving through the API with an ` + "`" + `If-Match` + "`" + ` header fails when the file changed
   since it was read; re-read the settings and retry.
`
