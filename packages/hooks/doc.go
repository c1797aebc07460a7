// Package hooks provides lifecycle callbacks around suite and case
// execution. Registrations are dispatched synchronously at each point,
// ordered by priority (descending) then registration order. A callback
// failure is logged and isolated: it never aborts sibling callbacks or
// the case, unless the registration is marked gating, in which case its
// failure becomes a case-level error before the request is sent.
package hooks
