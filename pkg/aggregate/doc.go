// Package aggregate turns collected records into frequency tables.
//
// Every aggregator is a pure function: it counts all qualifying
// observations first, then filters by the inclusive [MinCount, MaxCount]
// window, sorts by descending count (ties keep first-encounter order) and
// truncates to TopN. Records that cannot be used are reported in
// Diagnostics instead of failing the aggregation.
package aggregate
