// Package services contains the concrete service variants shipped with
// Intravision Core.
package services
