// Package xmaplib translates polled gamepad controller state into ordered
// keyboard/mouse action results.
package xmaplib
