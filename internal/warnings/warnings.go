// Package warnings accumulates non-fatal data-quality problems found while
// importing an archive. A Collector is a plain value owned by one run.
package warnings

import "fmt"

type Warning struct {
	ItemID  string `json:"item_id"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("item with id=%s: %s", w.ItemID, w.Message)
}

type Collector struct {
	items []Warning
}

func (c *Collector) Add(itemID, message string) {
	c.items = append(c.items, Warning{ItemID: itemID, Message: message})
}

func (c *Collector) Addf(itemID, format string, args ...any) {
	c.Add(itemID, fmt.Sprintf(format, args...))
}

// Items returns a copy of the accumulated warnings in insertion order.
func (c *Collector) Items() []Warning {
	out := make([]Warning, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Collector) Len() int { return len(c.items) }
