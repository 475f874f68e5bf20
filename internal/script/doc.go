// Package script compiles raw nested script documents into a
// path-indexed tree of dialogue steps. Compilation expands shorthand
// field aliases, named templates, and relative path placeholders, and
// registers command steps into an ordered process-wide list.
package script
