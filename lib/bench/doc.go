// Package bench measures how well the concurrent tree scales with the number
// of goroutines.
//
// RunThreads starts one giver goroutine that bumps random keys from v to v+1
// and n workers that each own a stride of the key list: a worker gives v -> v
// and immediately queries the key back. Because of the merge policy the answer
// must be v or v+1, anything else is reported as an error. RunSingle measures
// the unsynchronized Insert and Get path as the single threaded baseline.
//
// Results can be written as CSV with WriteCSV.
package bench
