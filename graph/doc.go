// Package graph models the canvas document drawn in the workflow editor and
// decides whether it can be compiled.
//
// Decode accepts the editor's cell list, either bare ({"cells": [...]}) or
// wrapped in its storage shape ({"graphData": {...}}). NewIndex enforces the
// document contract and builds ordered adjacency maps for the compiler.
// Validate runs the editor's save-time checks in order and returns the first
// failure; ValidateAll returns them all. Lint reports authoring issues that
// never block compilation.
package graph
