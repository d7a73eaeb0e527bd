// Package broker is a Redis-backed messaging node: pub/sub events, RPC
// providers on a stream consumed by a consumer group, stateful requests
// answered on a private pub/sub channel, and stateless requests.
//
// A stateless request carries a participant id and a request/reply id (see
// package stateless) and names the endpoint reply stream "replies:<endpoint>".
// Every node started with the same endpoint identity joins the consumer group
// on that stream, so any of them can take a reply and route it to the local
// callback handler without having sent the request.
package broker
