// Package properties converts between configuration schemas and flat
// Java-style .properties text.
//
// Decode infers a schema from key=value lines: types come from the values,
// categories from the first two key segments and domain membership from the
// configuration's domain key pattern. Encode writes a schema plus a value
// snapshot back to text in category and property order, expanding repeated
// keys and domain instances.
//
// Values are written verbatim. "=", ":" and newlines inside values are not
// escaped, so such values do not survive a round trip.
package properties
