// Package membership implements the view-change aggregation core of a
// Rapid-style group-membership protocol: the Watermark Buffer that turns a
// stream of per-edge link-update reports into batched view-change proposals.
package membership

import "fmt"

// Endpoint is the stable network identity of a cluster node. It is
// intentionally a plain comparable value (no pointers, no interfaces) so it
// can be used directly as a map key and compared with ==, matching spec's
// requirement that it be "opaque, hashable, equality-comparable".
type Endpoint struct {
	Host string
	Port uint32
}

// String renders the Endpoint as host:port, for logging.
func (e Endpoint) String() string { return fmt.Sprintf("%s:%d", e.Host, e.Port) }

// Validate returns an error if the Endpoint is not well-formed. A zero-valued
// Endpoint (empty Host) is the Go spelling of spec's "null" endpoint.
func (e Endpoint) Validate() error {
	if e.Host == "" {
		return fmt.Errorf("endpoint has empty Host")
	}
	if e.Port == 0 {
		return fmt.Errorf("endpoint %s has zero Port", e.Host)
	}
	return nil
}

// IsZero reports whether e is the zero-valued Endpoint.
func (e Endpoint) IsZero() bool { return e == Endpoint{} }

// LinkUpdateMessage reports that Src has observed a status change on the
// edge to Dst. Only Src and Dst are semantically consumed by the buffer.
type LinkUpdateMessage struct {
	Src Endpoint
	Dst Endpoint
}

// Validate returns an error if either endpoint of the message is malformed.
func (m LinkUpdateMessage) Validate() error {
	if err := m.Src.Validate(); err != nil {
		return fmt.Errorf("src: %w", err)
	}
	if err := m.Dst.Validate(); err != nil {
		return fmt.Errorf("dst: %w", err)
	}
	return nil
}

// Node wraps a destination Endpoint destined to appear in a Proposal.
// Equality is by Endpoint. The source protocol carries a Node rather than a
// bare Endpoint in its accumulator; this type preserves that shape so a
// future protocol revision can attach additional fields without disturbing
// callers (see DESIGN.md's Open Question notes).
type Node struct {
	Endpoint
}

// Proposal is an ordered, immutable sequence of Nodes emitted atomically.
// Ordering reflects the order in which destinations crossed the high
// threshold within the batch; there is no secondary sort.
type Proposal []Node

// Empty reports whether the Proposal carries no destinations.
func (p Proposal) Empty() bool { return len(p) == 0 }
