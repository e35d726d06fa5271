package service

import (
	"context"
	"testing"

	"invoicing_backend/internal/catalog/repository"
	"invoicing_backend/internal/catalog/transport"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fakeRepo struct {
	params repository.ListParams
	items  []repository.Product
	total  int
	keys   []string
}

func (f *fakeRepo) List(_ context.Context, params repository.ListParams) ([]repository.Product, int, error) {
	f.params = params
	return f.items, f.total, nil
}

func (f *fakeRepo) FindByKey(_ context.Context, _ uuid.UUID, key string) (repository.Product, error) {
	f.keys = append(f.keys, key)
	return repository.Product{ProductKey: key}, nil
}

func TestListProducts_ClampsPagingAndComputesPages(t *testing.T) {
	repo := &fakeRepo{
		items: []repository.Product{{ProductKey: "consulting", Cost: decimal.NewFromInt(50)}},
		total: 41,
	}
	svc := New(repo, repo)

	got, err := svc.ListProducts(context.Background(), uuid.New(), transport.ListProductsRequest{Page: 3, PageSize: 500, Search: "  cons "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.params.Limit != maxPageSize || repo.params.Offset != 2*maxPageSize || repo.params.Search != "cons" {
		t.Fatalf("unexpected list params %+v", repo.params)
	}
	if got.TotalPages != 1 || got.Page != 3 || len(got.Items) != 1 || got.Items[0].ProductKey != "consulting" {
		t.Fatalf("unexpected response %+v", got)
	}

	got, _ = svc.ListProducts(context.Background(), uuid.New(), transport.ListProductsRequest{})
	if repo.params.Limit != defaultPageSize || repo.params.Offset != 0 || got.TotalPages != 3 {
		t.Fatalf("unexpected defaults %+v / %+v", repo.params, got)
	}
}

func TestFindByKey_TrimsKey(t *testing.T) {
	repo := &fakeRepo{}
	if _, err := New(repo, repo).FindByKey(context.Background(), uuid.New(), " widget "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.keys[0] != "widget" {
		t.Fatalf("expected trimmed key, got %q", repo.keys[0])
	}
}
