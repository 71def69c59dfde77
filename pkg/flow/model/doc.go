// Package model provides the data structures shared by the flow package and its options.
// It defines the step and visit descriptions passed to option hooks,
// and the lifecycle interface every flow option implements.
package model
