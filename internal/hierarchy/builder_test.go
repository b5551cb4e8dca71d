package hierarchy

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/hierarchy/internal/models"
)

func assemble(t *testing.T, repo *fakeRepo, settings models.Settings) []Node {
	t.Helper()
	nodes, err := New(repo, staticSettings(settings)).Assemble(context.Background())
	require.NoError(t, err)
	return nodes
}

func TestAssemble_PagesOnly(t *testing.T) {
	repo := &fakeRepo{pages: []models.Page{
		page(2, 0, 1, "About", "about"),
		page(1, 0, 0, "Home", "home"),
	}}

	nodes := assemble(t, repo, models.Settings{})

	assert.Equal(t, []string{"page:1", "page:2"}, ids(nodes))
	for _, n := range nodes {
		assert.Zero(t, n.Depth)
		assert.True(t, n.Parent.IsRoot())
	}
}

func TestAssemble_ShortTemplateIsOrphan(t *testing.T) {
	repo := &fakeRepo{
		pages: []models.Page{
			page(1, 0, 0, "Services", "services"),
			page(2, 1, 0, "Web", "web"),
		},
		types: []models.ContentType{{Name: "case-study", Label: "Case Studies", RouteTemplate: "services/case-studies"}},
	}

	nodes := assemble(t, repo, models.Settings{})

	require.Equal(t, []string{"page:1", "page:2", "section:case-study"}, ids(nodes))
	orphan := nodes[2]
	assert.True(t, orphan.Parent.IsRoot())
	assert.Zero(t, orphan.Depth)
	assert.Equal(t, "Case Studies", orphan.Title)
}

func TestAssemble_TemplateAnchorsUnderParentPage(t *testing.T) {
	repo := &fakeRepo{
		pages: []models.Page{
			page(1, 0, 0, "Services", "services"),
			page(2, 1, 0, "Web", "web"),
		},
		types: []models.ContentType{{Name: "project", Label: "Projects", RouteTemplate: "services/projects/%project%"}},
	}

	nodes := assemble(t, repo, models.Settings{})

	require.Equal(t, []string{"page:1", "section:project", "page:2"}, ids(nodes))
	assert.Equal(t, 1, nodes[1].Depth)
	assert.Equal(t, PageRef(1), nodes[1].Parent)
	assert.Equal(t, 1, nodes[2].Depth)
}

func TestAssemble_PostsIndexPage(t *testing.T) {
	repo := &fakeRepo{
		pages: []models.Page{
			page(1, 0, 0, "Home", "home"),
			page(2, 0, 1, "News", "news"),
		},
		types: []models.ContentType{
			{Name: models.PageType, Label: "Pages", Hierarchical: true},
			{Name: models.PostsType, Label: "Posts"},
		},
		postsPage: 2,
		front:     "/blog/",
	}

	nodes := assemble(t, repo, models.Settings{})

	require.Equal(t, []string{"page:1", "section:post"}, ids(nodes))
	posts := nodes[1]
	assert.Equal(t, "News", posts.Title)
	assert.Equal(t, PageRef(2), posts.Parent)
	assert.Zero(t, posts.Depth, "posts page stands in for the section marker")
}

func TestAssemble_PostsIndexBeatsEarlierFauxParent(t *testing.T) {
	repo := &fakeRepo{
		pages: []models.Page{
			page(1, 0, 0, "Archive", "archive"),
			page(2, 0, 1, "News", "news"),
		},
		types: []models.ContentType{{
			Name:          models.PostsType,
			Label:         "Posts",
			RouteTemplate: "archive/posts/%postname%",
			RouteSlug:     "archive",
		}},
		postsPage: 2,
		front:     "/blog/",
	}

	nodes := assemble(t, repo, models.Settings{})

	require.Equal(t, []string{"page:1", "section:post"}, ids(nodes))
	posts := nodes[1]
	assert.Equal(t, PageRef(2), posts.Parent)
	assert.Equal(t, "News", posts.Title)
	assert.Zero(t, posts.Depth)
}

func TestAssemble_PostsIndexWithoutCustomFrontIsOrphan(t *testing.T) {
	repo := &fakeRepo{
		pages: []models.Page{
			page(1, 0, 0, "Home", "home"),
			page(2, 0, 1, "News", "news"),
		},
		types:     []models.ContentType{{Name: models.PostsType, Label: "Posts"}},
		postsPage: 2,
		front:     "/",
	}

	nodes := assemble(t, repo, models.Settings{})

	require.Equal(t, []string{"page:1", "section:post"}, ids(nodes))
	assert.True(t, nodes[1].Parent.IsRoot())
	assert.Equal(t, "News", nodes[1].Title)
}

func TestAssemble_SelfParentTerminates(t *testing.T) {
	repo := &fakeRepo{pages: []models.Page{
		page(1, 0, 0, "Home", "home"),
		page(5, 5, 1, "Loop", "loop"),
		page(6, 7, 2, "Ping", "ping"),
		page(7, 6, 3, "Pong", "pong"),
	}}

	done := make(chan []Node, 1)
	go func() {
		nodes, err := New(repo, staticSettings{}).Assemble(context.Background())
		if err != nil {
			t.Error(err)
		}
		done <- nodes
	}()

	select {
	case nodes := <-done:
		assert.ElementsMatch(t, []string{"page:1", "page:5", "page:6", "page:7"}, ids(nodes))
		for _, n := range nodes {
			assert.LessOrEqual(t, n.Depth, len(repo.pages)+1)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("assembly did not terminate on a parent cycle")
	}
}

func TestAssemble_ShowEntries(t *testing.T) {
	repo := &fakeRepo{
		pages: []models.Page{
			page(1, 0, 0, "Services", "services"),
			page(2, 0, 1, "Contact", "contact"),
		},
		types: []models.ContentType{{
			Name: "project", Label: "Projects", Hierarchical: true,
			RouteTemplate: "services/projects/%project%",
		}},
		entries: map[string][]models.Entry{"project": {
			entry("project", 12, 0, 1, "Beta"),
			entry("project", 11, 10, 0, "Alpha Child"),
			entry("project", 10, 0, 0, "Alpha"),
		}},
	}
	settings := models.Settings{Types: map[string]models.TypeSettings{"project": {ShowEntries: true}}}

	nodes := assemble(t, repo, settings)

	require.Equal(t, []string{"page:1", "section:project", "entry:10", "entry:11", "entry:12", "page:2"}, ids(nodes))
	assert.Equal(t, 3, nodes[1].Count)
	assert.Equal(t, 2, nodes[2].Depth)
	assert.Equal(t, TypeRef("project"), nodes[2].Parent)
	assert.Equal(t, 3, nodes[3].Depth)
	assert.Equal(t, PageRef(10), nodes[3].Parent)
	assert.Equal(t, 2, nodes[4].Depth)
	assert.Equal(t, "— — Alpha", nodes[2].PaddedTitle())
}

func TestAssemble_FlatEntriesKeepSourceOrder(t *testing.T) {
	repo := &fakeRepo{
		pages: []models.Page{page(1, 0, 0, "Work", "work")},
		types: []models.ContentType{{Name: "job", Label: "Jobs", RouteTemplate: "work/jobs/%job%"}},
		entries: map[string][]models.Entry{"job": {
			entry("job", 30, 0, 5, "Zeta"),
			entry("job", 31, 0, 0, "Alpha"),
		}},
	}
	settings := models.Settings{Types: map[string]models.TypeSettings{"job": {ShowEntries: true}}}

	nodes := assemble(t, repo, settings)

	assert.Equal(t, []string{"page:1", "section:job", "entry:30", "entry:31"}, ids(nodes))
}

func TestAssemble_OmitAndPageTypeExcluded(t *testing.T) {
	repo := &fakeRepo{
		pages: []models.Page{page(1, 0, 0, "Home", "home")},
		types: []models.ContentType{
			{Name: models.PageType},
			{Name: "secret"},
			{Name: "event", Label: "Events"},
		},
	}
	settings := models.Settings{Types: map[string]models.TypeSettings{"secret": {Omit: true}}}

	nodes := assemble(t, repo, settings)

	assert.Equal(t, []string{"page:1", "section:event"}, ids(nodes))
}

func TestAssemble_OrphanInsertedBySortOrder(t *testing.T) {
	repo := &fakeRepo{
		pages: []models.Page{
			page(1, 0, 0, "First", "first"),
			page(3, 1, 0, "First Child", "first-child"),
			page(2, 0, 2, "Second", "second"),
		},
		types: []models.ContentType{
			{Name: "event", Label: "Events"},
			{Name: "faq", Label: "FAQ"},
		},
	}
	settings := models.Settings{Types: map[string]models.TypeSettings{
		"event": {Order: 1},
		"faq":   {Order: 5},
	}}

	nodes := assemble(t, repo, settings)

	assert.Equal(t, []string{"page:1", "page:3", "section:event", "page:2", "section:faq"}, ids(nodes))
}

func TestAssemble_OrphansKeepTypeOrderOnTies(t *testing.T) {
	repo := &fakeRepo{
		pages: []models.Page{page(1, 0, 0, "Home", "home")},
		types: []models.ContentType{{Name: "b"}, {Name: "a"}, {Name: "c"}},
	}

	nodes := assemble(t, repo, models.Settings{})

	assert.Equal(t, []string{"page:1", "section:b", "section:a", "section:c"}, ids(nodes))
}

func TestAssemble_FauxParent(t *testing.T) {
	repo := &fakeRepo{
		pages: []models.Page{
			page(1, 0, 0, "About", "about"),
			page(3, 1, 0, "Team", "team"),
			page(4, 0, 1, "Contact", "contact"),
		},
		types: []models.ContentType{{Name: "member", Label: "Members", RouteSlug: "about/team"}},
	}

	nodes := assemble(t, repo, models.Settings{})

	require.Equal(t, []string{"page:1", "page:3", "section:member", "page:4"}, ids(nodes))
	assert.Equal(t, 2, nodes[2].Depth)
	assert.Equal(t, PageRef(3), nodes[2].Parent)
}

func TestAssemble_FauxParentNeedsLivePermalink(t *testing.T) {
	repo := &fakeRepo{
		pages: []models.Page{page(1, 0, 0, "Team", "team")},
		types: []models.ContentType{{Name: "member", RouteSlug: "team"}},
		dead:  map[int64]bool{1: true},
	}

	nodes := assemble(t, repo, models.Settings{})

	require.Equal(t, []string{"page:1", "section:member"}, ids(nodes))
	assert.True(t, nodes[1].Parent.IsRoot())
}

func TestAssemble_DanglingParentIsRoot(t *testing.T) {
	repo := &fakeRepo{pages: []models.Page{
		page(1, 0, 0, "Home", "home"),
		page(3, 99, 0, "Lost", "lost"),
	}}

	nodes := assemble(t, repo, models.Settings{})

	require.Len(t, nodes, 2)
	for _, n := range nodes {
		assert.Zero(t, n.Depth)
	}
}

func TestAssemble_MissingDisplayFieldsDegrade(t *testing.T) {
	repo := &fakeRepo{pages: []models.Page{{ID: 1, Title: "Home"}}}

	nodes := assemble(t, repo, models.Settings{})

	require.Len(t, nodes, 1)
	assert.Empty(t, nodes[0].Author)
	assert.Empty(t, nodes[0].Date)
}

func TestAssemble_DateLayout(t *testing.T) {
	p := page(1, 0, 0, "Home", "home")
	p.CreatedAt = time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	repo := &fakeRepo{pages: []models.Page{p}}

	nodes, err := New(repo, staticSettings{}, WithDateLayout("2006-01-02")).Assemble(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2024-03-09", nodes[0].Date)
}

func TestAssemble_Idempotent(t *testing.T) {
	repo := sampleSite()
	settings := models.Settings{Types: map[string]models.TypeSettings{"project": {ShowEntries: true, Order: 2}}}
	b := New(repo, staticSettings(settings))

	first, err := b.Assemble(context.Background())
	require.NoError(t, err)
	second, err := b.Assemble(context.Background())
	require.NoError(t, err)

	a, _ := json.Marshal(first)
	c, _ := json.Marshal(second)
	assert.Equal(t, string(a), string(c))
}

// countingSettings counts reads of a fixed SettingsSource.
type countingSettings struct {
	cfg   models.Settings
	reads int
}

func (s *countingSettings) Current(context.Context) (models.Settings, error) {
	s.reads++
	return s.cfg, nil
}

func TestAssembleWith_UsesGivenSettings(t *testing.T) {
	repo := &fakeRepo{
		pages: []models.Page{page(1, 0, 0, "Home", "home")},
		types: []models.ContentType{{Name: "project", Label: "Projects"}},
	}
	src := &countingSettings{cfg: models.Settings{Types: map[string]models.TypeSettings{"project": {Omit: true}}}}
	b := New(repo, src)

	nodes, err := b.AssembleWith(context.Background(), models.Settings{})
	require.NoError(t, err)
	assert.Equal(t, []string{"page:1", "section:project"}, ids(nodes))
	assert.Zero(t, src.reads)

	nodes, err = b.Assemble(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"page:1"}, ids(nodes))
	assert.Equal(t, 1, src.reads)
}

func TestAssemble_RepositoryErrorPropagates(t *testing.T) {
	boom := errors.New("db down")
	repo := &fakeRepo{err: boom}

	_, err := New(repo, staticSettings{}).Assemble(context.Background())

	require.ErrorIs(t, err, boom)
}

func TestAssemble_Properties(t *testing.T) {
	repo := sampleSite()
	settings := models.Settings{Types: map[string]models.TypeSettings{
		"project": {ShowEntries: true},
		"event":   {Order: 1},
		"faq":     {Order: 9},
	}}

	nodes := assemble(t, repo, settings)

	// Completeness: every page and every type exactly once.
	seen := map[string]int{}
	for _, n := range nodes {
		if n.Kind != KindEntry {
			seen[string(n.Kind)+":"+n.SourceID()]++
		}
	}
	for _, p := range repo.pages {
		assert.Equal(t, 1, seen["page:"+Node{Kind: KindPage, ID: p.ID}.SourceID()], "page %d", p.ID)
	}
	for _, ct := range repo.types {
		assert.Equal(t, 1, seen["section:"+ct.Name], "type %s", ct.Name)
	}

	// Sibling order: page nodes sharing a parent are non-decreasing.
	last := map[Ref]int{}
	for _, n := range nodes {
		if n.Kind != KindPage {
			continue
		}
		if prev, ok := last[n.Parent]; ok {
			assert.LessOrEqual(t, prev, n.Order, "page %d", n.ID)
		}
		last[n.Parent] = n.Order
	}

	// Depth: pages sit one level below their parent page.
	depth := map[int64]int{}
	for _, n := range nodes {
		if n.Kind != KindPage {
			continue
		}
		depth[n.ID] = n.Depth
		if !n.Parent.IsRoot() {
			assert.Equal(t, depth[n.Parent.ID]+1, n.Depth, "page %d", n.ID)
		}
	}

	// Orphan fallback: unanchored types are at the end, at the root.
	tail := nodes[len(nodes)-1]
	assert.Equal(t, "faq", tail.Type)
	assert.True(t, tail.Parent.IsRoot())
}

func sampleSite() *fakeRepo {
	return &fakeRepo{
		pages: []models.Page{
			page(1, 0, 0, "Home", "home"),
			page(2, 0, 1, "Services", "services"),
			page(3, 2, 0, "Design", "design"),
			page(4, 2, 1, "Build", "build"),
			page(5, 4, 0, "Backend", "backend"),
			page(6, 0, 2, "Events", "events"),
			page(7, 2, 1, "Audit", "audit"),
		},
		types: []models.ContentType{
			{Name: models.PageType},
			{Name: "project", Label: "Projects", Hierarchical: true, RouteTemplate: "services/build/projects/%project%"},
			{Name: "event", Label: "Events", RouteSlug: "events"},
			{Name: "faq", Label: "FAQ", RouteTemplate: "nowhere/faq/%faq%"},
		},
		entries: map[string][]models.Entry{
			"project": {
				entry("project", 20, 0, 0, "Portal"),
				entry("project", 21, 20, 0, "Portal API"),
			},
		},
	}
}
