// Package normalisers provides document loaders that turn source files
// into plain text, and a registry that picks a loader by file extension.
//
// Loaders keep level-one markdown headings ("# ") at line start so the
// chunker can split sections. Titles default to the file stem.
package normalisers
