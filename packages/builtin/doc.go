// Package builtin provides the function library available inside suite
// templates.
//
// Available functions:
//   - uuid(): random UUID v4
//   - now(): current time, RFC 3339
//   - timestamp() / timestampMs(): current Unix time in seconds / milliseconds
//   - date(layout): current date formatted with a Go time layout
//   - random(min, max): random integer in range
//   - randomString(length): random alphanumeric string
//   - randomEmail(): random mailbox at a random domain
//   - base64(value) / base64Decode(value)
//   - md5(value) / sha256(value): hex digests
//   - urlEncode(value) / urlDecode(value)
//   - env(name): environment variable value
//
// Functions are invoked with the ${name(args)} token syntax. They are
// evaluated at resolution time and never mutate the variable scope.
package builtin
