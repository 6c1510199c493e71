package cxf

import (
	"fmt"

	"github.com/vk/cxfgo/internal/model"
)

// MalformedDocumentError reports a structural or schema violation in an
// exchange-format document. It names the offending node and, where known,
// the field.
type MalformedDocumentError struct {
	Node   string
	Field  string
	Reason string
}

func (e *MalformedDocumentError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("malformed document: node %q: %s", e.Node, e.Reason)
	}
	return fmt.Sprintf("malformed document: node %q field %q: %s", e.Node, e.Field, e.Reason)
}

// DanglingConnectionError reports a connection endpoint that names a
// non-existent instance or port.
type DanglingConnectionError struct {
	Network string
	Ref     model.PortRef
	Detail  string
}

func (e *DanglingConnectionError) Error() string {
	return fmt.Sprintf("dangling connection in %q: %s: %s", e.Network, e.Ref, e.Detail)
}

// PortArityError reports an input port with zero or more than one incoming
// connection. Instance is empty when the port is one of the network's own
// external outputs.
type PortArityError struct {
	Network  string
	Instance string
	Port     string
	Count    int
}

func (e *PortArityError) Error() string {
	ref := model.PortRef{Instance: e.Instance, Port: e.Port}
	if e.Count == 0 {
		return fmt.Sprintf("port arity violation in %q: input %s has no incoming connection", e.Network, ref)
	}
	return fmt.Sprintf("port arity violation in %q: input %s has %d incoming connections, want exactly 1", e.Network, ref, e.Count)
}
