// Package testutil provides shared test helpers for setting up databases,
// settings files and sample sites.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/hierarchy/internal/settings"
	"github.com/starford/hierarchy/internal/store"
)

// SampleSite is a small site with a posts page under a customized front,
// a template-anchored type with entries and an orphan type.
const SampleSite = `
options:
  show_on_front: page
  page_for_posts: 3
  permalink_front: /blog/
authors:
  - id: 1
    name: Editor
content_types:
  - name: page
    label: Pages
    hierarchical: true
  - name: post
    label: Posts
  - name: project
    label: Projects
    hierarchical: true
    route_template: services/projects/%project%
  - name: faq
    label: FAQ
pages:
  - id: 1
    title: Services
    author: 1
    date: "2024-01-02 10:00:00"
  - id: 2
    title: Web
    parent: 1
  - id: 3
    title: News
    order: 1
  - id: 4
    title: Contact
    order: 2
entries:
  - id: 10
    type: project
    title: Portal
  - id: 11
    type: project
    title: Portal API
    parent: 10
  - id: 20
    type: post
    title: Hello
`

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "hierarchy-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// SeededDB creates a temporary database loaded with SampleSite.
func SeededDB(t *testing.T) *store.DB {
	t.Helper()
	db := TestDB(t)
	if _, err := db.LoadFixture(context.Background(), []byte(SampleSite)); err != nil {
		t.Fatal(err)
	}
	return db
}

// TestSettings opens a settings file in a temporary directory.
func TestSettings(t *testing.T) *settings.File {
	t.Helper()
	f, err := settings.Open(filepath.Join(t.TempDir(), "settings.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	return f
}
