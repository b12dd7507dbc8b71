package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"testyourself-core/internal/app"
	"testyourself-core/internal/domain"
	"testyourself-core/internal/infra/memory"
)

func newCatalog(t *testing.T) (*app.CatalogService, *memory.DocumentStore, domain.CatalogEntry) {
	t.Helper()
	docs := memory.NewDocumentStore()
	catalog := app.NewCatalogService(docs, nil)
	entry, err := catalog.CreateEntry(context.Background(), "  Class 10 Mathematics ")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	return catalog, docs, entry
}

func TestCreateEntryRejectsBlankName(t *testing.T) {
	catalog := app.NewCatalogService(memory.NewDocumentStore(), nil)
	if _, err := catalog.CreateEntry(context.Background(), "   "); !errors.Is(err, domain.ErrInvalidCatalogEntry) {
		t.Fatalf("expected invalid catalog entry, got %v", err)
	}
}

func TestEnsureInstanceReusesExisting(t *testing.T) {
	catalog, docs, entry := newCatalog(t)
	ctx := context.Background()
	req := app.EnsureInstanceRequest{
		CatalogID: entry.ID,
		Context:   domain.NewDeliveryContext("english", "cbse", "All Exams"),
	}

	first, err := catalog.EnsureInstance(ctx, req)
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	second, err := catalog.EnsureInstance(ctx, req)
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if first != second {
		t.Fatalf("expected the same instance, got %s and %s", first, second)
	}
	if docs.Count(app.InstanceCollection) != 1 {
		t.Fatalf("expected a single instance document, got %d", docs.Count(app.InstanceCollection))
	}

	doc, err := docs.Get(ctx, app.InstanceCollection, first)
	if err != nil {
		t.Fatalf("load instance: %v", err)
	}
	if doc.Fields["name"] != "Class 10 Mathematics" || doc.Fields["order"] != app.DefaultInstanceOrder || doc.Fields["enabled"] != true {
		t.Fatalf("unexpected instance fields %+v", doc.Fields)
	}
	if doc.Fields["examId"] != nil || doc.Fields["board"] != "cbse" {
		t.Fatalf("expected board cbse and no exam, got %+v", doc.Fields)
	}
}

func TestEnsureInstanceReturnsPreexistingID(t *testing.T) {
	catalog, docs, entry := newCatalog(t)
	ctx := context.Background()
	err := docs.Set(ctx, app.InstanceCollection, "legacy-id", map[string]any{
		"catalogId": entry.ID,
		"medium":    "hindi",
		"examId":    "jee",
		"name":      "Old name",
	}, false)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	id, err := catalog.EnsureInstance(ctx, app.EnsureInstanceRequest{
		CatalogID: entry.ID,
		Context:   domain.DeliveryContext{Medium: "hindi", ExamID: "jee"},
	})
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if id != "legacy-id" {
		t.Fatalf("expected legacy-id, got %s", id)
	}
	doc, _ := docs.Get(ctx, app.InstanceCollection, id)
	if doc.Fields["name"] != "Old name" {
		t.Fatalf("reuse must not modify the instance, got %+v", doc.Fields)
	}
}

func TestEnsureInstanceDistinctContexts(t *testing.T) {
	catalog, docs, entry := newCatalog(t)
	ctx := context.Background()
	order := 4

	a, err := catalog.EnsureInstance(ctx, app.EnsureInstanceRequest{CatalogID: entry.ID, Context: domain.DeliveryContext{Medium: "english", Board: "cbse"}})
	if err != nil {
		t.Fatalf("ensure a: %v", err)
	}
	b, err := catalog.EnsureInstance(ctx, app.EnsureInstanceRequest{CatalogID: entry.ID, Context: domain.DeliveryContext{Medium: "english", ExamID: "neet"}, Order: &order})
	if err != nil {
		t.Fatalf("ensure b: %v", err)
	}
	if a == b {
		t.Fatalf("board and exam contexts must resolve to different instances")
	}
	doc, _ := docs.Get(ctx, app.InstanceCollection, b)
	if doc.Fields["order"] != 4 {
		t.Fatalf("expected explicit order 4, got %v", doc.Fields["order"])
	}
}

func TestEnsureInstanceConcurrentCallersConverge(t *testing.T) {
	catalog, docs, entry := newCatalog(t)
	req := app.EnsureInstanceRequest{CatalogID: entry.ID, Context: domain.DeliveryContext{Medium: "english", Board: "icse"}}

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := catalog.EnsureInstance(context.Background(), req)
			if err != nil {
				t.Errorf("ensure failed: %v", err)
			}
			results[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range results {
		if id != results[0] {
			t.Fatalf("expected all callers to agree, got %v", results)
		}
	}
	if docs.Count(app.InstanceCollection) != 1 {
		t.Fatalf("expected one instance document, got %d", docs.Count(app.InstanceCollection))
	}
}

func TestEnsureInstanceValidation(t *testing.T) {
	catalog, docs, entry := newCatalog(t)
	ctx := context.Background()

	cases := []struct {
		name string
		dc   domain.DeliveryContext
	}{
		{"no medium", domain.DeliveryContext{Board: "cbse"}},
		{"neither board nor exam", domain.DeliveryContext{Medium: "english"}},
		{"placeholders only", domain.NewDeliveryContext("english", "All Boards", "All Exams")},
		{"both board and exam", domain.DeliveryContext{Medium: "english", Board: "cbse", ExamID: "neet"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := catalog.EnsureInstance(ctx, app.EnsureInstanceRequest{CatalogID: entry.ID, Context: tc.dc})
			if !errors.Is(err, domain.ErrInvalidContext) {
				t.Fatalf("expected invalid context, got %v", err)
			}
		})
	}
	if docs.Count(app.InstanceCollection) != 0 {
		t.Fatalf("invalid contexts must not write")
	}
}

func TestEnsureInstanceUnknownCatalog(t *testing.T) {
	catalog, docs, _ := newCatalog(t)
	_, err := catalog.EnsureInstance(context.Background(), app.EnsureInstanceRequest{
		CatalogID: "nope",
		Context:   domain.DeliveryContext{Medium: "english", Board: "cbse"},
	})
	if !errors.Is(err, domain.ErrCatalogNotFound) {
		t.Fatalf("expected catalog not found, got %v", err)
	}
	if docs.Count(app.InstanceCollection) != 0 {
		t.Fatalf("unknown catalog must not write")
	}
}
