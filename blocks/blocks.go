// Package blocks assembles the shipped elementary block catalogue.
package blocks

import (
	"github.com/vk/cxfgo/blocks/conversions"
	"github.com/vk/cxfgo/blocks/discrete"
	"github.com/vk/cxfgo/blocks/logical"
	"github.com/vk/cxfgo/blocks/reals"
	"github.com/vk/cxfgo/internal/catalogue"
)

// Core returns a registry with every built-in block package registered.
func Core() *catalogue.Registry {
	return catalogue.New(
		&reals.Module{},
		&logical.Module{},
		&discrete.Module{},
		&conversions.Module{},
	)
}
