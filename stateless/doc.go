// Package stateless correlates replies to stateless async callbacks.
//
// A stateless consumer keeps no pending-call table. Everything a reply needs
// to find its handler travels in two identifiers on the wire:
//
//	participant id     uuid v3 of endpoint + ":^:" + interface + "#" + use case
//	request/reply id   <random> + "::" + <method correlation id>
//
// The participant id is re-derivable on any node that shares the endpoint
// identity, so a Registry of participant id -> stateless callback id can be
// rebuilt at any time from a Discovery pass over the callback handlers the
// node hosts. Changing the endpoint identity changes every participant id;
// replies addressed to the old ids are no longer routable on that node.
package stateless
