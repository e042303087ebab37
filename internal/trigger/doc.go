// Package trigger turns operator signals into a sequential stream of events.
package trigger
