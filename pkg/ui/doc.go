// Package ui prints progress and results of sync runs to the terminal and
// sends the optional desktop notification at the end of a run.
package ui
