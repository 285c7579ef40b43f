package catalog

import (
	"errors"
	"testing"

	"github.com/pawlik/clickarena/internal/domain/loot"
	"github.com/pawlik/clickarena/internal/domain/model"
)

func validContainer(id string) model.Container {
	return model.Container{
		ID:     id,
		Name:   id,
		Price:  100,
		Active: true,
		Outcomes: []model.Outcome{
			{Kind: model.OutcomeCurrency, Value: "50", Weight: 60},
			{Kind: model.OutcomeCosmetic, Value: "skin1", Weight: 40},
		},
	}
}

func TestAddAndGet(t *testing.T) {
	c := New()
	if err := c.Add(validContainer("box")); err != nil {
		t.Fatalf("add: %v", err)
	}

	got, err := c.Get("box")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Price != 100 || len(got.Outcomes) != 2 {
		t.Errorf("unexpected container: %+v", got)
	}
}

func TestAddRejectsBadWeights(t *testing.T) {
	c := New()

	under := validContainer("under")
	under.Outcomes[0].Weight = 30 // sum 70
	if err := c.Add(under); !errors.Is(err, loot.ErrWeightCoverage) {
		t.Errorf("expected ErrWeightCoverage, got %v", err)
	}

	negative := validContainer("negative")
	negative.Outcomes[1].Weight = -1
	if err := c.Add(negative); !errors.Is(err, loot.ErrNegativeWeight) {
		t.Errorf("expected ErrNegativeWeight, got %v", err)
	}
}

func TestAddRejectsDuplicates(t *testing.T) {
	c := New()
	if err := c.Add(validContainer("box")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.Add(validContainer("box")); !errors.Is(err, ErrDuplicateContainer) {
		t.Errorf("expected ErrDuplicateContainer, got %v", err)
	}
}

func TestGetIgnoresInactive(t *testing.T) {
	c := New()
	inactive := validContainer("retired")
	inactive.Active = false
	if err := c.Add(inactive); err != nil {
		t.Fatalf("add: %v", err)
	}

	if _, err := c.Get("retired"); !errors.Is(err, ErrContainerNotFound) {
		t.Errorf("expected ErrContainerNotFound, got %v", err)
	}
	if _, err := c.Get("missing"); !errors.Is(err, ErrContainerNotFound) {
		t.Errorf("expected ErrContainerNotFound, got %v", err)
	}
	if got := c.List(); len(got) != 0 {
		t.Errorf("inactive containers must not be listed: %+v", got)
	}
}

func TestSeedStockContainers(t *testing.T) {
	c := New()
	if err := c.Seed(); err != nil {
		t.Fatalf("seed: %v", err)
	}

	list := c.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 stock containers, got %d", len(list))
	}
	if list[0].ID != "basic" || list[0].Price != 100 {
		t.Errorf("expected basic first by price: %+v", list[0])
	}
	if list[1].ID != "premium" || list[1].Price != 300 {
		t.Errorf("expected premium second: %+v", list[1])
	}

	// Every stock drop table passes the authoring rule it was added under.
	for _, container := range list {
		if err := loot.ValidateWeights(container); err != nil {
			t.Errorf("container %s: %v", container.ID, err)
		}
	}

	// Seeding twice fails on the duplicate ids.
	if err := c.Seed(); !errors.Is(err, ErrDuplicateContainer) {
		t.Errorf("expected ErrDuplicateContainer on reseed, got %v", err)
	}
}
