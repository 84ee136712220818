package app_test

import (
	"context"
	"errors"
	"testing"

	"staybook/internal/domain"
	"staybook/internal/wizard"
)

func TestPropertyGet_CacheMissThenHit(t *testing.T) {
	h := newHarness()
	h.market.props[42] = domain.Property{ID: 42, Title: "Corniche Loft"}
	ctx := context.Background()

	p, err := h.props.Get(ctx, 42)
	if err != nil || p.Title != "Corniche Loft" {
		t.Fatalf("get: %+v %v", p, err)
	}
	h.market.props[42] = domain.Property{ID: 42, Title: "changed upstream"}
	if p, _ := h.props.Get(ctx, 42); p.Title != "Corniche Loft" {
		t.Fatalf("expected cached value, got %q", p.Title)
	}

	if err := h.props.Delete(ctx, 42); err != nil {
		t.Fatal(err)
	}
	if _, err := h.props.Get(ctx, 42); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("deleted property should be refetched and missing, got %v", err)
	}
}

func TestCreateWithImages_AttachesUploadedIDs(t *testing.T) {
	h := newHarness()
	var last int
	p, err := h.props.CreateWithImages(context.Background(), domain.PropertyInput{Title: "Dune House"},
		[]string{"a.jpg", "b.jpg"}, memOpener, func(done, total, pct int) { last = pct })
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(p.Images) != 2 || last != 100 {
		t.Fatalf("images=%v progress=%d", p.Images, last)
	}
}

func TestCreateWithImages_UploadFailureCompensates(t *testing.T) {
	h := newHarness()
	_, err := h.props.CreateWithImages(context.Background(), domain.PropertyInput{Title: "x"},
		[]string{"a.jpg", "broken.jpg", "c.jpg"}, memOpener, nil)

	var ue *wizard.UploadError
	if !errors.As(err, &ue) {
		t.Fatalf("want UploadError, got %v", err)
	}
	if len(h.market.uploaded) != 1 || len(h.market.deleted) != 1 {
		t.Fatalf("uploaded=%v deleted=%v", h.market.uploaded, h.market.deleted)
	}
}

func TestCreateWithImages_CreateFailureRecordsOrphans(t *testing.T) {
	h := newHarness()
	h.market.createErr = &domain.APIError{Status: 500}
	h.market.deleteErr[2] = errors.New("storage down")

	_, err := h.props.CreateWithImages(context.Background(), domain.PropertyInput{Title: "x"},
		[]string{"a.jpg", "b.jpg"}, memOpener, nil)
	if domain.StatusOf(err) != 500 {
		t.Fatalf("want create error, got %v", err)
	}
	if len(h.market.deleted) != 1 || h.market.deleted[0] != 1 {
		t.Fatalf("deleted = %v", h.market.deleted)
	}
	if len(h.ledger.orphans) != 1 || h.ledger.orphans[0] != 2 {
		t.Fatalf("orphans = %v", h.ledger.orphans)
	}
}
