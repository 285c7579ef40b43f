// Package catalog registers purchasable containers and enforces the
// authoring rules at registration time, so resolution never has to
// re-validate a drop table.
package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pawlik/clickarena/internal/domain/loot"
	"github.com/pawlik/clickarena/internal/domain/model"
)

// Catalog is the in-memory container registry.
type Catalog struct {
	mu         sync.RWMutex
	containers map[string]model.Container
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{containers: make(map[string]model.Container)}
}

// Add registers a container after validating its drop table.
func (c *Catalog) Add(container model.Container) error {
	if err := loot.ValidateWeights(container); err != nil {
		return fmt.Errorf("container %q: %w", container.ID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.containers[container.ID]; ok {
		return fmt.Errorf("container %q: %w", container.ID, ErrDuplicateContainer)
	}
	c.containers[container.ID] = container
	return nil
}

// Get returns an active container by id.
func (c *Catalog) Get(id string) (model.Container, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	container, ok := c.containers[id]
	if !ok || !container.Active {
		return model.Container{}, ErrContainerNotFound
	}
	return container, nil
}

// List returns all active containers ordered by price ascending.
func (c *Catalog) List() []model.Container {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Container, 0, len(c.containers))
	for _, container := range c.containers {
		if container.Active {
			out = append(out, container)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Price != out[j].Price {
			return out[i].Price < out[j].Price
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Seed registers the stock containers. Adding over an already seeded
// catalog fails on the duplicate ids.
func (c *Catalog) Seed() error {
	for _, container := range stockContainers() {
		if err := c.Add(container); err != nil {
			return err
		}
	}
	return nil
}

// stockContainers is the launch drop-table set.
func stockContainers() []model.Container {
	return []model.Container{
		{
			ID:          "basic",
			Name:        "Basic Box",
			Description: "Common rewards with a small chance at a rare skin.",
			Price:       100,
			Active:      true,
			Outcomes: []model.Outcome{
				{Kind: model.OutcomeCurrency, Value: "50", Weight: 40},
				{Kind: model.OutcomeProgress, Value: "100", Weight: 30},
				{Kind: model.OutcomeCosmetic, Value: "skin3", Weight: 15},
				{Kind: model.OutcomeCosmetic, Value: "skin4", Weight: 10, IsRare: true},
				{Kind: model.OutcomeCosmetic, Value: "skin5", Weight: 5, IsRare: true},
			},
		},
		{
			ID:          "premium",
			Name:        "Premium Box",
			Description: "Bigger payouts and the top-tier skins.",
			Price:       300,
			Active:      true,
			Outcomes: []model.Outcome{
				{Kind: model.OutcomeCurrency, Value: "200", Weight: 30},
				{Kind: model.OutcomeProgress, Value: "300", Weight: 25},
				{Kind: model.OutcomeCosmetic, Value: "skin5", Weight: 20},
				{Kind: model.OutcomeCosmetic, Value: "skin6", Weight: 15, IsRare: true},
				{Kind: model.OutcomeCosmetic, Value: "skin7", Weight: 8, IsRare: true},
				{Kind: model.OutcomeCosmetic, Value: "skin8", Weight: 2, IsRare: true},
			},
		},
	}
}
