// Package render formats challenge platform data as plain text for the
// terminal.
package render
