// Package gen contains a bunch of generic functions that will probably be in the Go std lib someday
package gen

// Remove element i by swapping the last element into its place.
// The order of the slice is not preserved.
func DeleteFromSliceUnordered[T any](slice []T, i int) []T {
	last := len(slice) - 1
	slice[i] = slice[last]
	var zero T
	slice[last] = zero
	return slice[:last]
}
