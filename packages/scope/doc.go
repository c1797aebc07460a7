// Package scope provides the layered variable store and the template
// language used to parameterize suite definitions.
//
// Variables live in four layers (global, suite, case, extracted). Lookup
// walks innermost to outermost. Templates use ${name} and ${func(args)}
// tokens and are parsed once at suite load into a segment list; resolution
// is a single left-to-right pass with no recursive expansion.
package scope
