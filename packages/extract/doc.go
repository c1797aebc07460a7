// Package extract applies selector expressions to a structured response
// and writes the selected values into the variable scope. Selectors cover
// status metadata, headers, and the parsed body:
//
//	status               response status code
//	duration             elapsed request time in milliseconds
//	header.<Name>        header value, case-insensitive
//	body.<path>          gjson path into the parsed body
//	<path>               shorthand for body.<path>
//
// The same selector grammar drives assertion subjects in the validate
// package.
package extract
