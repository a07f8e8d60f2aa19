// Package organizer maps identification decisions onto the library layout
// and relocates files into it. Placement never overwrites an existing file
// and leaves the source intact on any failure.
package organizer
