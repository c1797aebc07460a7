// Package httpx is the HTTP transport collaborator for the execution
// engine. It owns connection pooling and timeouts; the engine treats it
// as a stateless capability: one resolved request in, one structured
// response or transport error out. The client is safe for concurrent use
// from multiple workers.
package httpx
