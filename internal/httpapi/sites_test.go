package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/csms-ocpp16/internal/domain"
)

// fakeSiteRepository is a hand-rolled ports.SiteRepository stub, following
// the same *Func-field style as fakeTransport in handler_test.go.
type fakeSiteRepository struct {
	saveFunc     func(ctx context.Context, site *domain.Site) error
	findByIDFunc func(ctx context.Context, id string) (*domain.Site, error)
	findAllFunc  func(ctx context.Context) ([]domain.Site, error)
}

func (f *fakeSiteRepository) Save(ctx context.Context, site *domain.Site) error {
	return f.saveFunc(ctx, site)
}

func (f *fakeSiteRepository) FindByID(ctx context.Context, id string) (*domain.Site, error) {
	return f.findByIDFunc(ctx, id)
}

func (f *fakeSiteRepository) FindAll(ctx context.Context) ([]domain.Site, error) {
	return f.findAllFunc(ctx)
}

func newSiteTestApp(repo *fakeSiteRepository) *fiber.App {
	app := fiber.New()
	h := NewSiteHandler(repo, zap.NewNop())
	h.Register(app.Group("/api/v1/sites"))
	return app
}

func TestSiteCreate_AssignsIDAndSaves(t *testing.T) {
	var saved *domain.Site
	repo := &fakeSiteRepository{
		saveFunc: func(ctx context.Context, site *domain.Site) error {
			saved = site
			return nil
		},
	}
	app := newSiteTestApp(repo)

	raw, _ := json.Marshal(fiber.Map{"name": "Downtown Garage", "address": "1 Main St"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sites/", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if saved == nil || saved.ID == "" || saved.Name != "Downtown Garage" {
		t.Fatalf("expected site to be saved with an id, got %+v", saved)
	}
}

func TestSiteCreate_MissingName(t *testing.T) {
	repo := &fakeSiteRepository{}
	app := newSiteTestApp(repo)

	raw, _ := json.Marshal(fiber.Map{"address": "1 Main St"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sites/", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSiteGet_NotFound(t *testing.T) {
	repo := &fakeSiteRepository{
		findByIDFunc: func(ctx context.Context, id string) (*domain.Site, error) {
			return nil, nil
		},
	}
	app := newSiteTestApp(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sites/site_missing", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSiteList_ReturnsAll(t *testing.T) {
	repo := &fakeSiteRepository{
		findAllFunc: func(ctx context.Context) ([]domain.Site, error) {
			return []domain.Site{{ID: "site_aaaaaaaa", Name: "Depot"}}, nil
		},
	}
	app := newSiteTestApp(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sites/", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	var sites []domain.Site
	if err := json.NewDecoder(resp.Body).Decode(&sites); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(sites) != 1 || sites[0].ID != "site_aaaaaaaa" {
		t.Fatalf("expected one site, got %+v", sites)
	}
}
