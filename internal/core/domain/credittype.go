package domain

import "sync"

// CreditType is an immutable catalog entry for a tradable credit kind.
type CreditType struct {
	Code string `json:"code"` // e.g. "plastic-pet", "water", "carbon"
	Name string `json:"name"`
	Unit string `json:"unit"` // raw activity unit: "item", "litre", "kg"
}

// Catalog is the read-mostly registry of known credit types. It is seeded
// at startup and never mutated afterwards except by Register, which exists
// for tests and late catalog additions.
type Catalog struct {
	mu    sync.RWMutex
	types map[string]CreditType
}

// NewCatalog builds a catalog from the given credit types.
func NewCatalog(types []CreditType) *Catalog {
	c := &Catalog{types: make(map[string]CreditType, len(types))}
	for _, ct := range types {
		c.types[ct.Code] = ct
	}
	return c
}

// Register adds a credit type to the catalog.
func (c *Catalog) Register(ct CreditType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types[ct.Code] = ct
}

// Lookup returns the credit type for code, if known.
func (c *Catalog) Lookup(code string) (CreditType, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ct, ok := c.types[code]
	return ct, ok
}

// Codes returns all registered credit type codes.
func (c *Catalog) Codes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	codes := make([]string, 0, len(c.types))
	for code := range c.types {
		codes = append(codes, code)
	}
	return codes
}
